package main

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// CreateReview godoc
// @Summary      Add a review to a book
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Param        id      path      int           true  "Book ID"
// @Param        review  body      ReviewCreate  true  "Review to add"
// @Success      200     {object}  Review
// @Failure      400     {object}  APIError
// @Failure      404     {object}  APIError
// @Router       /books/{id}/reviews [post]
func (api *APIHandler) CreateReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	logger := api.GetLoggerFromContext(ctx).With(zap.String("book.id", ps.ByName("id")))
	bookID, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		logger.Error("book id provided is not valid", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusBadRequest, err.Error(), EmptyData)
		return
	}

	var data ReviewCreate
	if err = DecodeRequestBody(r, &data); err == nil {
		err = ValidateRequestBody(&data)
	}
	if err != nil {
		logger.Error("failed to create review", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusBadRequest, "invalid review payload", err.Error())
		return
	}

	review, err := api.catalog.CreateReview(ctx, bookID, data)
	if errors.Is(err, ErrBookNotFound) {
		logger.Error("book does not exist")
		api.sendError(ctx, w, logger, http.StatusNotFound, "Book not found", EmptyData)
		return
	}
	if err != nil {
		logger.Error("failed to create review", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusInternalServerError, "failed to create the review", EmptyData)
		return
	}
	logger.Info("success to create review", zap.Int64("review.id", review.ID))
	api.send(ctx, w, logger, http.StatusOK, review)
}

// GetBookReviews godoc
// @Summary      List the reviews of a book
// @Tags         reviews
// @Produce      json
// @Param        id   path      int  true  "Book ID"
// @Success      200  {array}   Review
// @Failure      400  {object}  APIError
// @Router       /books/{id}/reviews [get]
func (api *APIHandler) GetBookReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	logger := api.GetLoggerFromContext(ctx).With(zap.String("book.id", ps.ByName("id")))
	bookID, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		logger.Error("book id provided is not valid", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusBadRequest, err.Error(), EmptyData)
		return
	}

	reviews, err := api.catalog.ListReviews(ctx, bookID)
	if err != nil {
		logger.Error("failed to get reviews", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusInternalServerError, "failed to get the reviews", EmptyData)
		return
	}
	logger.Info("success to get reviews", zap.Int("total", len(reviews)))
	api.send(ctx, w, logger, http.StatusOK, reviews)
}
