// scans.go implements scan ingestion and history: run recognition on an
// image, upsert the candidates as parts, and record the scan with its
// ranked results.
package inventory

import (
	"context"
	"time"

	"github.com/frootsnoops/brickbin/internal/datastore"
	"github.com/frootsnoops/brickbin/internal/errors"
	"github.com/frootsnoops/brickbin/internal/recognition"
)

// ErrRecognitionUnavailable indicates no recognition client is
// configured.
var ErrRecognitionUnavailable = errors.NewStd("recognition service is not configured")

// ScanResult pairs the stored scan id with the recognition outcome.
type ScanResult struct {
	ScanID  int64                      `json:"scanId"`
	Results *recognition.SearchResults `json:"results"`
}

// Recognize runs recognition on the image, upserts every candidate as a
// part (refreshing metadata, never touching an existing part's bin
// placement), and records the scan with its ranked candidates. The
// imagePath, when non-empty, is stored for later display.
func (s *Service) Recognize(ctx context.Context, recognitionType recognition.RecognitionType, image []byte, filename, imagePath string) (*ScanResult, error) {
	if s.recognizer == nil {
		return nil, errors.New(ErrRecognitionUnavailable).
			Component("inventory").
			Category(errors.CategoryConfig).
			Build()
	}

	results, err := s.recognizer.Predict(ctx, recognitionType, image, filename)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	candidates := make([]datastore.ScanCandidate, 0, len(results.Items))
	for rank, item := range results.Items {
		part := &datastore.Part{
			ID:        item.ID,
			Name:      item.Name,
			Type:      item.Type,
			Category:  item.Category,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if item.ImgURL != "" {
			url := item.ImgURL
			part.ImgURL = &url
		}
		if err := s.store.UpsertPart(ctx, part); err != nil {
			return nil, err
		}
		candidates = append(candidates, datastore.ScanCandidate{
			ItemID: item.ID,
			Rank:   rank,
			Score:  item.Score,
		})
	}

	scan := &datastore.Scan{
		Timestamp:       now,
		RecognitionType: string(recognitionType),
	}
	if imagePath != "" {
		scan.ImagePath = &imagePath
	}
	if results.ListingID != "" {
		listingID := results.ListingID
		scan.ListingID = &listingID
	}
	if len(results.Items) > 0 {
		topID := results.Items[0].ID
		scan.TopItemID = &topID
	}

	scanID, err := s.store.SaveScan(ctx, scan, candidates)
	if err != nil {
		return nil, err
	}

	s.log.Info("scan recorded", "scan_id", scanID,
		"type", recognitionType, "candidates", len(candidates))
	return &ScanResult{ScanID: scanID, Results: results}, nil
}

// ScanHistory returns the most recent scans, newest first.
func (s *Service) ScanHistory(ctx context.Context, limit int) ([]datastore.Scan, error) {
	return s.store.RecentScans(ctx, limit)
}

// GetScan returns one scan with candidates, nil when absent.
func (s *Service) GetScan(ctx context.Context, id int64) (*datastore.Scan, error) {
	return s.store.GetScan(ctx, id)
}

// DeleteScan removes a scan from history.
func (s *Service) DeleteScan(ctx context.Context, id int64) error {
	return s.store.DeleteScan(ctx, id)
}

// SubmitFeedback forwards prediction feedback to the recognition
// service.
func (s *Service) SubmitFeedback(ctx context.Context, feedback *recognition.FeedbackRequest) (*recognition.FeedbackResponse, error) {
	if s.recognizer == nil {
		return nil, errors.New(ErrRecognitionUnavailable).
			Component("inventory").
			Category(errors.CategoryConfig).
			Build()
	}
	return s.recognizer.SendFeedback(ctx, feedback)
}
