package recognition

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frootsnoops/brickbin/internal/errors"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(Config{BaseURL: "https://api.test.invalid"})
	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func sampleResults() *SearchResults {
	return &SearchResults{
		ListingID:   "listing-123",
		BoundingBox: BoundingBox{X1: 0.1, Y1: 0.1, X2: 0.9, Y2: 0.9},
		Items: []CandidateItem{
			{ID: "3001", Name: "Brick 2x4", Type: "part", Score: 0.97, ImgURL: "https://img/3001.png"},
			{ID: "3002", Name: "Brick 2x3", Type: "part", Score: 0.41, ImgURL: "https://img/3002.png"},
		},
	}
}

func TestPredictDecodesRankedCandidates(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, "https://api.test.invalid/predict/parts/",
		func(req *http.Request) (*http.Response, error) {
			require.Contains(t, req.Header.Get("Content-Type"), "multipart/form-data")
			require.NoError(t, req.ParseMultipartForm(1<<20))
			_, header, err := req.FormFile("query_image")
			require.NoError(t, err)
			assert.Equal(t, "brick.jpg", header.Filename)
			return httpmock.NewJsonResponse(http.StatusOK, sampleResults())
		})

	results, err := c.Predict(context.Background(), TypeParts, []byte("jpeg-bytes"), "brick.jpg")
	require.NoError(t, err)
	assert.Equal(t, "listing-123", results.ListingID)
	require.Len(t, results.Items, 2)
	assert.Equal(t, "3001", results.Items[0].ID)
	assert.InDelta(t, 0.97, results.Items[0].Score, 1e-9)
}

func TestPredictCachesIdenticalImages(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, "https://api.test.invalid/predict/parts/",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, sampleResults()))

	image := []byte("jpeg-bytes")
	_, err := c.Predict(context.Background(), TypeParts, image, "brick.jpg")
	require.NoError(t, err)
	_, err = c.Predict(context.Background(), TypeParts, image, "brick.jpg")
	require.NoError(t, err)

	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "second identical request should hit the cache")

	// A different recognition type is a distinct cache entry.
	httpmock.RegisterResponder(http.MethodPost, "https://api.test.invalid/predict/sets/",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, sampleResults()))
	_, err = c.Predict(context.Background(), TypeSets, image, "brick.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestPredictRejectsInvalidInput(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Predict(context.Background(), "minifigs", []byte("x"), "a.jpg")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = c.Predict(context.Background(), TypeParts, nil, "a.jpg")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestPredictSurfacesHTTPErrors(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, "https://api.test.invalid/predict/parts/",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "overloaded"))

	_, err := c.Predict(context.Background(), TypeParts, []byte("jpeg-bytes"), "brick.jpg")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))
	assert.Contains(t, err.Error(), "503")
}

func TestSendFeedback(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, "https://api.test.invalid/feedback/",
		func(req *http.Request) (*http.Response, error) {
			var got FeedbackRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
			assert.Equal(t, "listing-123", got.ListingID)
			assert.Equal(t, "3001", got.ItemID)
			assert.Equal(t, "part", got.ItemType)
			assert.True(t, got.IsPredictionCorrect)
			assert.Equal(t, feedbackSource, got.Source, "source defaults when left empty")
			return httpmock.NewJsonResponse(http.StatusOK, &FeedbackResponse{Status: "ok"})
		})

	resp, err := c.SendFeedback(context.Background(), &FeedbackRequest{
		ListingID:           "listing-123",
		ItemID:              "3001",
		ItemType:            "part",
		ItemRank:            0,
		IsPredictionCorrect: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}

func TestSendFeedbackRequiresIdentifiers(t *testing.T) {
	c := newTestClient(t)

	_, err := c.SendFeedback(context.Background(), &FeedbackRequest{ItemID: "3001"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestRecognitionTypeItemType(t *testing.T) {
	assert.Equal(t, "part", TypeParts.ItemType())
	assert.Equal(t, "set", TypeSets.ItemType())
	assert.Equal(t, "fig", TypeFigs.ItemType())
}
