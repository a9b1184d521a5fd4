// bins.go implements bin management: creation with label uniqueness,
// updates, deletion, and the overview aggregation backing list views.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/frootsnoops/brickbin/internal/datastore"
	"github.com/frootsnoops/brickbin/internal/errors"
)

// BinSummary is one row of the bins overview: the bin plus aggregates
// computed from the assignment table.
type BinSummary struct {
	Bin            datastore.Bin `json:"bin"`
	PartCount      int64         `json:"partCount"`
	LatestActivity int64         `json:"latestActivity"` // epoch milliseconds, 0 when empty
}

// CreateBin creates a bin after validating the label. Labels are
// compared case-insensitively against existing bins; a clash yields
// ErrDuplicateLabel.
func (s *Service) CreateBin(ctx context.Context, label string, description *string) (*datastore.Bin, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrEmptyLabel
	}

	existing, err := s.findBinByLabel(ctx, label)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New(fmt.Errorf("%w: %q", ErrDuplicateLabel, label)).
			Component("inventory").
			Category(errors.CategoryConflict).
			Context("label", label).
			Build()
	}

	bin, err := s.store.CreateBin(ctx, label, description)
	if err != nil {
		return nil, err
	}
	s.log.Info("bin created", "bin_id", bin.ID, "label", bin.Label)
	return bin, nil
}

// UpdateBin renames or re-describes a bin, applying the same label
// uniqueness rule as creation. Renaming a bin to its own label (in any
// casing) is allowed.
func (s *Service) UpdateBin(ctx context.Context, id int64, label string, description *string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyLabel
	}

	existing, err := s.findBinByLabel(ctx, label)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != id {
		return errors.New(fmt.Errorf("%w: %q", ErrDuplicateLabel, label)).
			Component("inventory").
			Category(errors.CategoryConflict).
			Context("label", label).
			Build()
	}

	return s.store.UpdateBin(ctx, &datastore.Bin{ID: id, Label: label, Description: description})
}

// DeleteBin removes a bin. With deleteParts set, every part assigned to
// the bin is deleted first, taking its other assignments and scan
// references with it; otherwise parts merely lose this one assignment
// through the cascade.
func (s *Service) DeleteBin(ctx context.Context, id int64, deleteParts bool) error {
	if deleteParts {
		parts, err := s.store.PartsForBin(ctx, id)
		if err != nil {
			return err
		}
		for i := range parts {
			if err := s.store.DeletePart(ctx, parts[i].ID); err != nil {
				return err
			}
		}
		s.log.Info("deleted parts with bin", "bin_id", id, "part_count", len(parts))
	}
	return s.store.DeleteBin(ctx, id)
}

// GetBin returns a bin by id, nil when absent.
func (s *Service) GetBin(ctx context.Context, id int64) (*datastore.Bin, error) {
	return s.store.GetBin(ctx, id)
}

// PartsInBin returns the parts filed in a bin, name-ordered.
func (s *Service) PartsInBin(ctx context.Context, binID int64) ([]datastore.Part, error) {
	return s.store.PartsForBin(ctx, binID)
}

// BinsOverview builds the bin list with per-bin part counts and latest
// activity, sorted case-insensitively by label. Counts come from the
// assignment table so multi-bin parts count once per bin they are in.
func (s *Service) BinsOverview(ctx context.Context) ([]BinSummary, error) {
	bins, err := s.store.GetAllBins(ctx)
	if err != nil {
		return nil, err
	}

	refs, err := s.store.AllAssignments(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int64, len(bins))
	for _, ref := range refs {
		counts[ref.BinLocationID]++
	}

	activities, err := s.store.BinActivities(ctx)
	if err != nil {
		return nil, err
	}
	latest := make(map[int64]int64, len(activities))
	for _, a := range activities {
		latest[a.BinLocationID] = a.LatestActivity
	}

	summaries := make([]BinSummary, 0, len(bins))
	for i := range bins {
		summaries = append(summaries, BinSummary{
			Bin:            bins[i],
			PartCount:      counts[bins[i].ID],
			LatestActivity: latest[bins[i].ID],
		})
	}
	return summaries, nil
}

// LiveBinsOverview streams a fresh overview on every change to bins,
// parts or assignments until ctx is cancelled. Slow consumers see only
// the latest snapshot.
func (s *Service) LiveBinsOverview(ctx context.Context, out chan<- []BinSummary) {
	datastore.LiveQuery(ctx, s.store, s.log, out, s.BinsOverview,
		datastore.TableBins, datastore.TableParts, datastore.TableAssignments)
}

// findBinByLabel resolves a bin by case-insensitive label, nil when no
// bin matches.
func (s *Service) findBinByLabel(ctx context.Context, label string) (*datastore.Bin, error) {
	bins, err := s.store.GetAllBins(ctx)
	if err != nil {
		return nil, err
	}
	lowered := strings.ToLower(label)
	for i := range bins {
		if strings.ToLower(bins[i].Label) == lowered {
			return &bins[i], nil
		}
	}
	return nil, nil
}

// sortSummariesByActivity orders an overview most recently active
// first, label as tiebreaker. Used by the bin picker.
func sortSummariesByActivity(summaries []BinSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].LatestActivity != summaries[j].LatestActivity {
			return summaries[i].LatestActivity > summaries[j].LatestActivity
		}
		return strings.ToLower(summaries[i].Bin.Label) < strings.ToLower(summaries[j].Bin.Label)
	})
}

// BinsByActivity returns the overview sorted by recency of activity.
func (s *Service) BinsByActivity(ctx context.Context) ([]BinSummary, error) {
	summaries, err := s.BinsOverview(ctx)
	if err != nil {
		return nil, err
	}
	sortSummariesByActivity(summaries)
	return summaries, nil
}
