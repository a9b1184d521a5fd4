package recognition

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/frootsnoops/brickbin/internal/errors"
	"github.com/frootsnoops/brickbin/internal/logging"
)

// feedbackSource identifies this client in feedback submissions.
const feedbackSource = "external-app"

// Client talks to the Brickognize API.
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *cache.Cache
	log        *slog.Logger
}

// NewClient creates a Brickognize API client. Zero config values fall
// back to defaults.
func NewClient(config Config) *Client {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = defaults.CacheTTL
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      cache.New(config.CacheTTL, config.CacheTTL*2),
		log:        logging.ForService("recognition"),
	}
}

// Predict submits image bytes for recognition and returns the ranked
// candidates. Identical image/type pairs within the cache TTL are served
// from cache, a retake of the same photo is free.
func (c *Client) Predict(ctx context.Context, recognitionType RecognitionType, image []byte, filename string) (*SearchResults, error) {
	if !recognitionType.Valid() {
		return nil, errors.Newf("unsupported recognition type %q", recognitionType).
			Component("recognition").
			Category(errors.CategoryValidation).
			Build()
	}
	if len(image) == 0 {
		return nil, errors.Newf("empty image").
			Component("recognition").
			Category(errors.CategoryValidation).
			Build()
	}

	cacheKey := fmt.Sprintf("predict:%s:%x", recognitionType, sha256.Sum256(image))
	if cached, found := c.cache.Get(cacheKey); found {
		c.log.Debug("recognition cache hit", "type", recognitionType)
		return cached.(*SearchResults), nil
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("query_image", filename)
	if err != nil {
		return nil, errors.New(fmt.Errorf("building multipart request: %w", err)).
			Component("recognition").
			Category(errors.CategoryNetwork).
			Build()
	}
	if _, err := part.Write(image); err != nil {
		return nil, errors.New(fmt.Errorf("writing image payload: %w", err)).
			Component("recognition").
			Category(errors.CategoryNetwork).
			Build()
	}
	if err := writer.Close(); err != nil {
		return nil, errors.New(fmt.Errorf("finalizing multipart request: %w", err)).
			Component("recognition").
			Category(errors.CategoryNetwork).
			Build()
	}

	url := fmt.Sprintf("%s/predict/%s/", strings.TrimRight(c.config.BaseURL, "/"), recognitionType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, errors.New(fmt.Errorf("creating request: %w", err)).
			Component("recognition").
			Category(errors.CategoryNetwork).
			Build()
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	var results SearchResults
	if err := c.do(req, &results); err != nil {
		return nil, err
	}

	c.log.Info("recognition completed",
		"type", recognitionType,
		"listing_id", results.ListingID,
		"candidates", len(results.Items),
		"duration_ms", time.Since(start).Milliseconds())

	c.cache.Set(cacheKey, &results, cache.DefaultExpiration)
	return &results, nil
}

// SendFeedback reports whether the candidate at the given rank was the
// correct match for a previous prediction.
func (c *Client) SendFeedback(ctx context.Context, feedback *FeedbackRequest) (*FeedbackResponse, error) {
	if feedback.ListingID == "" || feedback.ItemID == "" {
		return nil, errors.Newf("feedback requires listing_id and item_id").
			Component("recognition").
			Category(errors.CategoryValidation).
			Build()
	}
	if feedback.Source == "" {
		feedback.Source = feedbackSource
	}

	payload, err := json.Marshal(feedback)
	if err != nil {
		return nil, errors.New(fmt.Errorf("encoding feedback: %w", err)).
			Component("recognition").
			Category(errors.CategoryNetwork).
			Build()
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/feedback/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.New(fmt.Errorf("creating request: %w", err)).
			Component("recognition").
			Category(errors.CategoryNetwork).
			Build()
	}
	req.Header.Set("Content-Type", "application/json")

	var response FeedbackResponse
	if err := c.do(req, &response); err != nil {
		return nil, err
	}

	c.log.Info("feedback submitted",
		"listing_id", feedback.ListingID,
		"item_id", feedback.ItemID,
		"correct", feedback.IsPredictionCorrect)
	return &response, nil
}

// do executes the request and decodes a JSON response into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.New(fmt.Errorf("calling %s: %w", req.URL.Path, err)).
			Component("recognition").
			Category(errors.CategoryNetwork).
			Context("url", req.URL.String()).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Bound the echoed body, error pages can be large.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Newf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))).
			Component("recognition").
			Category(errors.CategoryHTTP).
			Context("status_code", resp.StatusCode).
			Context("url", req.URL.String()).
			Build()
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(fmt.Errorf("decoding response: %w", err)).
			Component("recognition").
			Category(errors.CategoryNetwork).
			Context("url", req.URL.String()).
			Build()
	}
	return nil
}

// ClearCache drops all cached predictions.
func (c *Client) ClearCache() {
	c.cache.Flush()
}
