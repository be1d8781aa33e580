package main

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var EmptyData = struct{}{}

// Statistics holds app stats for ops.
type Statistics struct {
	version   string
	container bool
	runtime   string
	platform  string
	called    uint64
	started   time.Time
	status    map[int]uint64
	mu        *sync.RWMutex
}

// Maintenance holds app maintenance mode infos.
type Maintenance struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	message string
	started time.Time
}

// APIHandler defines the API handler.
type APIHandler struct {
	logger      *zap.Logger
	config      *Config
	stats       *Statistics
	mode        *Maintenance
	clock       Clocker
	idsHandler  UIDGenerator
	catalog     CatalogServiceProvider
	recommender Recommender
	summarizer  Summarizer
	mirror      MirrorStorage
	limiter     *rate.Limiter
}

// NewAPIHandler provides a new instance of APIHandler. The mirror is optional.
func NewAPIHandler(
	logger *zap.Logger,
	config *Config,
	stats *Statistics,
	clock Clocker,
	idsHandler UIDGenerator,
	catalog CatalogServiceProvider,
	recommender Recommender,
	summarizer Summarizer,
	mirror MirrorStorage,
) *APIHandler {
	m := &Maintenance{}
	m.enabled.Store(false)
	stats.status = make(map[int]uint64)
	stats.mu = &sync.RWMutex{}

	var limiter *rate.Limiter
	if config != nil && config.RateLimit.RPS > 0 {
		burst := config.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit.RPS), burst)
	}

	return &APIHandler{
		logger:      logger,
		config:      config,
		stats:       stats,
		mode:        m,
		clock:       clock,
		idsHandler:  idsHandler,
		catalog:     catalog,
		recommender: recommender,
		summarizer:  summarizer,
		mirror:      mirror,
		limiter:     limiter,
	}
}

// NotFound returns the handler used when no route matches.
func (api *APIHandler) NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
		errResp := NewAPIError(requestID, http.StatusNotFound, "the requested resource does not exist", EmptyData)
		if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
	})
}

// sendError writes the error envelope and logs a failure to do so.
func (api *APIHandler) sendError(ctx context.Context, w http.ResponseWriter, logger *zap.Logger, status int, message string, data interface{}) {
	requestID := GetValueFromContext(ctx, RequestIDContextKey)
	if err := WriteErrorResponse(ctx, w, NewAPIError(requestID, status, message, data)); err != nil {
		logger.Error("failed to send error response", zap.Error(err))
	}
}

// send writes a success body and logs a failure to do so.
func (api *APIHandler) send(ctx context.Context, w http.ResponseWriter, logger *zap.Logger, status int, body interface{}) {
	if err := WriteResponse(ctx, w, status, body); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// Index provides same details like `Status` handler by redirecting the request.
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}
