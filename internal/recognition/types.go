// Package recognition provides the client for the Brickognize image
// recognition API: photo in, ranked candidate catalog items out.
package recognition

import "time"

// RecognitionType selects which catalog the API searches.
type RecognitionType string

const (
	TypeParts RecognitionType = "parts"
	TypeSets  RecognitionType = "sets"
	TypeFigs  RecognitionType = "figs"
)

// Valid reports whether t is one of the supported recognition types.
func (t RecognitionType) Valid() bool {
	switch t {
	case TypeParts, TypeSets, TypeFigs:
		return true
	}
	return false
}

// ItemType returns the singular item type the API uses in candidates
// and feedback ("part", "set", "fig").
func (t RecognitionType) ItemType() string {
	switch t {
	case TypeSets:
		return "set"
	case TypeFigs:
		return "fig"
	default:
		return "part"
	}
}

// Config holds recognition client configuration.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:  "https://api.brickognize.com",
		Timeout:  30 * time.Second,
		CacheTTL: 5 * time.Minute,
	}
}

// SearchResults is a recognition response: a listing id correlating any
// later feedback, the detected bounding box, and candidates ordered best
// match first.
type SearchResults struct {
	ListingID   string          `json:"listing_id"`
	BoundingBox BoundingBox     `json:"bounding_box"`
	Items       []CandidateItem `json:"items"`
}

// BoundingBox locates the detected object in the query image.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// CandidateItem is one ranked match from the catalog.
type CandidateItem struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ImgURL        string         `json:"img_url"`
	ExternalSites []ExternalSite `json:"external_sites,omitempty"`
	Category      *string        `json:"category,omitempty"`
	Type          string         `json:"type"`
	Score         float64        `json:"score"` // confidence in [0.0, 1.0]
}

// ExternalSite links a candidate to a marketplace or catalog page.
type ExternalSite struct {
	Site string `json:"site"`
	URL  string `json:"url"`
}

// FeedbackRequest reports whether a prediction was correct.
type FeedbackRequest struct {
	ListingID           string `json:"listing_id"`
	ItemID              string `json:"item_id"`
	ItemType            string `json:"item_type"`
	ItemRank            int    `json:"item_rank"`
	IsPredictionCorrect bool   `json:"is_prediction_correct"`
	Source              string `json:"source"`
}

// FeedbackResponse is the API's acknowledgement of submitted feedback.
type FeedbackResponse struct {
	Status  string  `json:"status"`
	Message *string `json:"message,omitempty"`
}
