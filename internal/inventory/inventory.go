// Package inventory implements the use-case layer over the datastore:
// bin management with label uniqueness, part filing, scan ingestion,
// and the backup export/import transforms. All validation and
// cross-entity orchestration lives here; the datastore stays a dumb
// row store.
package inventory

import (
	"context"
	"log/slog"

	"github.com/frootsnoops/brickbin/internal/datastore"
	"github.com/frootsnoops/brickbin/internal/errors"
	"github.com/frootsnoops/brickbin/internal/logging"
	"github.com/frootsnoops/brickbin/internal/recognition"
)

// Typed errors surfaced to callers. API handlers map these to
// response statuses.
var (
	// ErrEmptyLabel indicates a bin label that is empty or whitespace.
	ErrEmptyLabel = errors.NewStd("bin label must not be empty")

	// ErrDuplicateLabel indicates a bin label already in use,
	// compared case-insensitively.
	ErrDuplicateLabel = errors.NewStd("a bin with this label already exists")

	// ErrNothingToExport indicates an export attempt with no bins.
	ErrNothingToExport = errors.NewStd("no bin locations to export")
)

// Recognizer is the slice of the recognition client the service needs.
type Recognizer interface {
	Predict(ctx context.Context, recognitionType recognition.RecognitionType, image []byte, filename string) (*recognition.SearchResults, error)
	SendFeedback(ctx context.Context, feedback *recognition.FeedbackRequest) (*recognition.FeedbackResponse, error)
}

// Service bundles the use cases over one datastore.
type Service struct {
	store      datastore.Interface
	recognizer Recognizer
	log        *slog.Logger
}

// NewService creates the use-case service. The recognizer may be nil
// when recognition is not configured; scan ingestion then fails with a
// typed error instead of a panic.
func NewService(store datastore.Interface, recognizer Recognizer) *Service {
	return &Service{
		store:      store,
		recognizer: recognizer,
		log:        logging.ForService("inventory"),
	}
}
