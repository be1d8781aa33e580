package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSummarizeHandler(t *testing.T) {
	var received string
	summarizer := &MockSummarizer{
		SummarizeFunc: func(ctx context.Context, text string) (string, error) {
			received = text
			if strings.TrimSpace(text) == "" {
				return "", ErrEmptyText
			}
			if text == "boom" {
				return "", ErrSummarizerFailure
			}
			return "short " + text, nil
		},
	}
	api := newTestAPIHandler(nil, nil, summarizer)

	t.Run("should pass: text from query", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/summarize?text="+url.QueryEscape("long story"), nil)
		api.Summarize(w, req, httprouter.Params{})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "long story", received)
		var resp SummaryResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "short long story", resp.Summary)
	})

	t.Run("should pass: text from body", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/summarize", strings.NewReader(`{"text":"body story"}`))
		api.Summarize(w, req, httprouter.Params{})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "body story", received)
	})

	t.Run("should fail: no text at all", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.Summarize(w, httptest.NewRequest(http.MethodPost, "/summarize", http.NoBody), httprouter.Params{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrEmptyText.Error(), decodeAPIError(t, w).Message)
	})

	t.Run("should fail: malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.Summarize(w, httptest.NewRequest(http.MethodPost, "/summarize", strings.NewReader(`{"text":`)), httprouter.Params{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should fail: summarizer failure", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.Summarize(w, httptest.NewRequest(http.MethodPost, "/summarize?text=boom", nil), httprouter.Params{})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, ErrSummarizerFailure.Error(), decodeAPIError(t, w).Message)
	})
}

func TestGetRecommendationHandler(t *testing.T) {
	api := newTestAPIHandler(nil, NewRandomForest(zap.NewNop(), 100, 42), nil)

	testCases := []struct {
		name   string
		query  string
		status int
		result string
	}{
		{"should pass: fiction", "genre=Fiction&average_rating=4.1", http.StatusOK, "Recommended"},
		{"should pass: science fiction", "genre=" + url.QueryEscape("Science Fiction") + "&average_rating=4.7", http.StatusOK, "Recommended"},
		{"should pass: horror", "genre=Horror&average_rating=3.8", http.StatusOK, "Not Recommended"},
		{"should pass: non fiction", "genre=Non-Fiction&average_rating=3.9", http.StatusOK, "Not Recommended"},
		{"should fail: unknown genre", "genre=Mystery&average_rating=4.0", http.StatusBadRequest, ""},
		{"should fail: missing genre", "average_rating=4.0", http.StatusBadRequest, ""},
		{"should fail: non numeric rating", "genre=Fiction&average_rating=high", http.StatusBadRequest, ""},
		{"should fail: missing rating", "genre=Fiction", http.StatusBadRequest, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			api.GetRecommendation(w, httptest.NewRequest(http.MethodGet, "/recommendations?"+tc.query, nil), httprouter.Params{})
			assert.Equal(t, tc.status, w.Code)
			if tc.status != http.StatusOK {
				return
			}
			var resp RecommendationResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.result, resp.Recommendation)
		})
	}

	t.Run("should fail: invalid genre message", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.GetRecommendation(w, httptest.NewRequest(http.MethodGet, "/recommendations?genre=Mystery&average_rating=4", nil), httprouter.Params{})
		assert.Equal(t, "Invalid genre provided", decodeAPIError(t, w).Message)
	})

	t.Run("should fail: recommender failure", func(t *testing.T) {
		failing := newTestAPIHandler(nil, &MockRecommender{
			PredictFunc: func(genre string, rating float64) (int, error) {
				return 0, assert.AnError
			},
		}, nil)
		w := httptest.NewRecorder()
		failing.GetRecommendation(w, httptest.NewRequest(http.MethodGet, "/recommendations?genre=Fiction&average_rating=4", nil), httprouter.Params{})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
