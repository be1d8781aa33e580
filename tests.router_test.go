package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newRoutesTestAPIHandler builds a handler whose dependencies always succeed.
func newRoutesTestAPIHandler(config *Config) *APIHandler {
	mockRepo := &MockCatalogStorage{
		CreateBookFunc: func(ctx context.Context, data BookCreate) (Book, error) {
			return Book{ID: 1, BookFields: data.BookFields, Reviews: []Review{}}, nil
		},
		ListBooksFunc: func(ctx context.Context) ([]Book, error) {
			return []Book{}, nil
		},
		GetBookFunc: func(ctx context.Context, id int64) (Book, error) {
			return Book{ID: id, Reviews: []Review{}}, nil
		},
		UpdateBookFunc: func(ctx context.Context, id int64, data BookCreate) (Book, error) {
			return Book{ID: id, BookFields: data.BookFields, Reviews: []Review{}}, nil
		},
		DeleteBookFunc: func(ctx context.Context, id int64) error {
			return nil
		},
		CreateReviewFunc: func(ctx context.Context, bookID int64, data ReviewCreate) (Review, error) {
			return Review{ID: 1, BookID: bookID, ReviewFields: data.Fields()}, nil
		},
		ListReviewsFunc: func(ctx context.Context, bookID int64) ([]Review, error) {
			return []Review{}, nil
		},
	}
	summarizer := &MockSummarizer{
		SummarizeFunc: func(ctx context.Context, text string) (string, error) {
			return "summary", nil
		},
	}
	recommender := &MockRecommender{
		PredictFunc: func(genre string, rating float64) (int, error) {
			return Recommended, nil
		},
	}
	clock := NewMockClocker()
	cs := NewCatalogService(zap.NewNop(), clock, mockRepo, NewNoopQueue())
	return NewAPIHandler(zap.NewNop(), config, &Statistics{started: clock.Now()}, clock,
		NewMockUIDHandler("abc"), cs, recommender, summarizer, NewMockMirrorStorage())
}

// TestSetupBookRoutes ensures all expected catalog endpoints are implemented.
func TestSetupBookRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		request     *http.Request
		implemented bool
	}{
		{"index endpoint", httptest.NewRequest(http.MethodGet, "/", nil), true},
		{"status endpoint", httptest.NewRequest(http.MethodGet, "/status", nil), true},
		{"create book endpoint", httptest.NewRequest(http.MethodPost, "/books", nil), true},
		{"fetch all books endpoint", httptest.NewRequest(http.MethodGet, "/books", nil), true},
		{"fetch all books endpoint with slash", httptest.NewRequest(http.MethodGet, "/books/", nil), true},
		{"fetch single book endpoint", httptest.NewRequest(http.MethodGet, "/books/1", nil), true},
		{"update book endpoint", httptest.NewRequest(http.MethodPut, "/books/1", nil), true},
		{"delete book endpoint", httptest.NewRequest(http.MethodDelete, "/books/1", nil), true},
		{"create review endpoint", httptest.NewRequest(http.MethodPost, "/books/1/reviews", nil), true},
		{"fetch reviews endpoint", httptest.NewRequest(http.MethodGet, "/books/1/reviews", nil), true},
		{"summarize endpoint", httptest.NewRequest(http.MethodPost, "/summarize?text=abc", nil), true},
		{"recommendations endpoint", httptest.NewRequest(http.MethodGet, "/recommendations?genre=Fiction&average_rating=4", nil), true},
		{"invalid versioned endpoint", httptest.NewRequest(http.MethodGet, "/v1/books", nil), false},
		{"invalid nested endpoint", httptest.NewRequest(http.MethodGet, "/books/1/authors", nil), false},
	}

	api := newRoutesTestAPIHandler(&Config{})
	router := httprouter.New()
	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	api.SetupBookRoutes(router, m)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupOpsRoutes ensures all expected operations endpoints are implemented.
func TestSetupOpsRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		profiler    bool
		request     *http.Request
		implemented bool
	}{
		{"fetch configs endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), true},
		{"fetch stats endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/stats", nil), true},
		{"maintenance mode endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/maintenance?status=disable", nil), true},
		{"metrics endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/metrics", nil), true},
		{"mirror books endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/mirror/books", nil), true},
		{"expvar endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/debug/vars", nil), true},
		{"invalid ops endpoint", false, httptest.NewRequest(http.MethodGet, "/ops", nil), false},
		{"unknown ops endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/unknown", nil), false},
		{"disabled profiler endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil), false},
		{"enabled profiler endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil), true},
	}

	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newRoutesTestAPIHandler(&Config{ProfilerEnable: tc.profiler})
			router := httprouter.New()
			api.SetupOpsRoutes(router, m)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupRoutes ensures ops endpoints are only served when enabled.
func TestSetupRoutes(t *testing.T) {
	testCases := []struct {
		name               string
		OpsEndpointsEnable bool
		request            *http.Request
		implemented        bool
	}{
		{"ops disable:fetch configs endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), false},
		{"ops enable:fetch configs endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), true},
		{"ops enable:disabled profiler endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil), false},
		{"ops disable:create book endpoint", false, httptest.NewRequest(http.MethodPost, "/books", nil), true},
		{"ops enable:create book endpoint", true, httptest.NewRequest(http.MethodPost, "/books", nil), true},
		{"swagger endpoint", false, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil), true},
		{"invalid ops endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/", nil), false},
	}

	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newRoutesTestAPIHandler(&Config{OpsEndpointsEnable: tc.OpsEndpointsEnable})
			router := httprouter.New()
			api.SetupRoutes(router, m)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupRoutes_NotFound ensures exact status code and json response body when a user requests an inexistant route.
func TestSetupRoutes_NotFound(t *testing.T) {
	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	api := newRoutesTestAPIHandler(&Config{})
	router := httprouter.New()
	api.SetupRoutes(router, m)
	r := httptest.NewRequest(http.MethodGet, "/x/books/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	expected := `{"requestid":"", "status":404, "message":"the requested resource does not exist", "data":{}}`
	assert.JSONEq(t, expected, string(data))
}

// TestFullStack ensures the public middlewares and handlers work together.
func TestFullStack(t *testing.T) {
	api := newRoutesTestAPIHandler(&Config{})
	public, ops := api.MiddlewaresStacks()
	router := api.SetupRoutes(httprouter.New(), &MiddlewareMap{public: public.Chain, ops: ops.Chain})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/3", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r:abc", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, uint64(1), api.stats.called)
	assert.Equal(t, uint64(1), api.stats.status[http.StatusOK])
}
