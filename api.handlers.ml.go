package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// SummarizeRequest is the optional JSON body of the summarize endpoint.
type SummarizeRequest struct {
	Text string `json:"text"`
}

// Summarize godoc
// @Summary      Summarize a text
// @Description  The text is read from the `text` query parameter or from the JSON body.
// @Tags         ml
// @Accept       json
// @Produce      json
// @Param        text     query     string            false  "Text to summarize"
// @Param        payload  body      SummarizeRequest  false  "Text to summarize"
// @Success      200      {object}  SummaryResponse
// @Failure      400      {object}  APIError
// @Failure      500      {object}  APIError
// @Router       /summarize [post]
func (api *APIHandler) Summarize(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	logger := api.GetLoggerFromContext(ctx)

	text := r.URL.Query().Get("text")
	if len(strings.TrimSpace(text)) == 0 {
		var payload SummarizeRequest
		if err := DecodeRequestBody(r, &payload); err != nil && !errors.Is(err, ErrEmptyBody) {
			logger.Error("failed to decode summarize payload", zap.Error(err))
			api.sendError(ctx, w, logger, http.StatusBadRequest, "invalid summarize payload", err.Error())
			return
		}
		text = payload.Text
	}

	summary, err := api.summarizer.Summarize(ctx, text)
	if errors.Is(err, ErrEmptyText) {
		logger.Error("nothing to summarize", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusBadRequest, err.Error(), EmptyData)
		return
	}
	if err != nil {
		logger.Error("failed to summarize text", zap.Int("text.size", len(text)), zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusInternalServerError, err.Error(), EmptyData)
		return
	}
	logger.Info("success to summarize text", zap.Int("text.size", len(text)), zap.Int("summary.size", len(summary)))
	api.send(ctx, w, logger, http.StatusOK, SummaryResponse{Summary: summary})
}

// GetRecommendation godoc
// @Summary      Recommend a book profile
// @Tags         ml
// @Produce      json
// @Param        genre           query     string  true  "One of Fiction, Non-Fiction, Science Fiction, Fantasy, Horror"
// @Param        average_rating  query     number  true  "Average rating of the book"
// @Success      200             {object}  RecommendationResponse
// @Failure      400             {object}  APIError
// @Failure      500             {object}  APIError
// @Router       /recommendations [get]
func (api *APIHandler) GetRecommendation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	q := r.URL.Query()
	genre := q.Get("genre")
	logger := api.GetLoggerFromContext(ctx).With(zap.String("genre", genre))

	if len(genre) == 0 {
		logger.Error("failed to recommend", zap.Error(ErrMissingGenre))
		api.sendError(ctx, w, logger, http.StatusBadRequest, ErrMissingGenre.Error(), EmptyData)
		return
	}

	rating, err := strconv.ParseFloat(q.Get("average_rating"), 64)
	if err != nil {
		logger.Error("failed to recommend", zap.String("average_rating", q.Get("average_rating")), zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusBadRequest, ErrInvalidRating.Error(), EmptyData)
		return
	}

	label, err := api.recommender.Predict(genre, rating)
	if errors.Is(err, ErrInvalidGenre) {
		logger.Error("failed to recommend", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusBadRequest, "Invalid genre provided", EmptyData)
		return
	}
	if err != nil {
		logger.Error("failed to recommend", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusInternalServerError, err.Error(), EmptyData)
		return
	}

	result := "Not Recommended"
	if label == Recommended {
		result = "Recommended"
	}
	Recommendations.WithLabelValues(result).Inc()
	logger.Info("success to recommend", zap.Float64("average_rating", rating), zap.String("result", result))
	api.send(ctx, w, logger, http.StatusOK, RecommendationResponse{Recommendation: result})
}
