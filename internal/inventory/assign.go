// assign.go implements part filing: replacing a part's bin membership,
// optionally creating a new bin in the same call.
package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/frootsnoops/brickbin/internal/datastore"
)

// PartLocations decorates a part with its full bin membership. Bins is
// ordered case-insensitively by label; the first element is the
// "primary" bin where a single value is needed.
type PartLocations struct {
	Part datastore.Part  `json:"part"`
	Bins []datastore.Bin `json:"bins"`
}

// AssignPartToBins replaces a part's complete assignment set. When
// newBinLabel is non-empty a bin is created first (subject to the usual
// duplicate-label rule) and its id appended to binIDs. An empty
// resulting set unfiles the part.
func (s *Service) AssignPartToBins(ctx context.Context, partID string, binIDs []int64, newBinLabel string, newBinDescription *string) error {
	newBinLabel = strings.TrimSpace(newBinLabel)
	if newBinLabel != "" {
		bin, err := s.CreateBin(ctx, newBinLabel, newBinDescription)
		if err != nil {
			return err
		}
		binIDs = append(binIDs, bin.ID)
	}

	if err := s.store.ReplaceAssignments(ctx, partID, binIDs, time.Now().UnixMilli()); err != nil {
		return err
	}
	s.log.Info("part assignments replaced", "part_id", partID, "bin_count", len(binIDs))
	return nil
}

// GetPartLocations returns a part with its bins, nil when the part does
// not exist.
func (s *Service) GetPartLocations(ctx context.Context, partID string) (*PartLocations, error) {
	part, err := s.store.GetPart(ctx, partID)
	if err != nil {
		return nil, err
	}
	if part == nil {
		return nil, nil
	}
	bins, err := s.store.BinsForPart(ctx, partID)
	if err != nil {
		return nil, err
	}
	return &PartLocations{Part: *part, Bins: bins}, nil
}

// DeletePart removes a part together with its assignments and scan
// candidate references.
func (s *Service) DeletePart(ctx context.Context, partID string) error {
	return s.store.DeletePart(ctx, partID)
}

// AllParts returns every stored part, name-ordered.
func (s *Service) AllParts(ctx context.Context) ([]datastore.Part, error) {
	return s.store.GetAllParts(ctx)
}
