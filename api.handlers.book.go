package main

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// decodeBook reads and validates a BookCreate payload.
func decodeBook(r *http.Request) (BookCreate, error) {
	var data BookCreate
	if err := DecodeRequestBody(r, &data); err != nil {
		return data, err
	}
	return data, ValidateRequestBody(&data)
}

// CreateBook godoc
// @Summary      Create a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        book  body      BookCreate  true  "Book to create"
// @Success      200   {object}  Book
// @Failure      400   {object}  APIError
// @Failure      500   {object}  APIError
// @Router       /books [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	logger := api.GetLoggerFromContext(ctx)
	data, err := decodeBook(r)
	if err != nil {
		logger.Error("failed to create book", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusBadRequest, "invalid book payload", err.Error())
		return
	}

	book, err := api.catalog.CreateBook(ctx, data)
	if err != nil {
		logger.Error("failed to create book", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusInternalServerError, "failed to create the book", EmptyData)
		return
	}
	logger.Info("success to create book", zap.Int64("book.id", book.ID))
	api.send(ctx, w, logger, http.StatusOK, book)
}

// GetAllBooks godoc
// @Summary      List books
// @Tags         books
// @Produce      json
// @Success      200  {array}   Book
// @Failure      500  {object}  APIError
// @Router       /books [get]
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	logger := api.GetLoggerFromContext(ctx)
	books, err := api.catalog.ListBooks(ctx)
	if err != nil {
		logger.Error("failed to get all books", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusInternalServerError, "failed to get all books", EmptyData)
		return
	}
	logger.Info("success to get all books", zap.Int("total", len(books)))
	api.send(ctx, w, logger, http.StatusOK, books)
}

// GetOneBook godoc
// @Summary      Get a book
// @Tags         books
// @Produce      json
// @Param        id   path      int  true  "Book ID"
// @Success      200  {object}  Book
// @Failure      400  {object}  APIError
// @Failure      404  {object}  APIError
// @Router       /books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	logger := api.GetLoggerFromContext(ctx).With(zap.String("book.id", ps.ByName("id")))
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		logger.Error("book id provided is not valid", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusBadRequest, err.Error(), EmptyData)
		return
	}

	book, err := api.catalog.GetBook(ctx, id)
	if errors.Is(err, ErrBookNotFound) {
		logger.Error("book does not exist")
		api.sendError(ctx, w, logger, http.StatusNotFound, "Book not found", EmptyData)
		return
	}
	if err != nil {
		logger.Error("failed to get book", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusInternalServerError, "failed to get the book", EmptyData)
		return
	}
	logger.Info("success to get book")
	api.send(ctx, w, logger, http.StatusOK, book)
}

// UpdateBook godoc
// @Summary      Replace a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        id    path      int         true  "Book ID"
// @Param        book  body      BookCreate  true  "New book content"
// @Success      200   {object}  Book
// @Failure      400   {object}  APIError
// @Failure      404   {object}  APIError
// @Router       /books/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	logger := api.GetLoggerFromContext(ctx).With(zap.String("book.id", ps.ByName("id")))
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		logger.Error("book id provided is not valid", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusBadRequest, err.Error(), EmptyData)
		return
	}

	data, err := decodeBook(r)
	if err != nil {
		logger.Error("failed to update book", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusBadRequest, "invalid book payload", err.Error())
		return
	}

	book, err := api.catalog.UpdateBook(ctx, id, data)
	if errors.Is(err, ErrBookNotFound) {
		logger.Error("book does not exist")
		api.sendError(ctx, w, logger, http.StatusNotFound, "Book not found", EmptyData)
		return
	}
	if err != nil {
		logger.Error("failed to update book", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusInternalServerError, "failed to update the book", EmptyData)
		return
	}
	logger.Info("success to update book")
	api.send(ctx, w, logger, http.StatusOK, book)
}

// DeleteOneBook godoc
// @Summary      Delete a book and its reviews
// @Tags         books
// @Produce      json
// @Param        id   path      int  true  "Book ID"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  APIError
// @Failure      404  {object}  APIError
// @Router       /books/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	logger := api.GetLoggerFromContext(ctx).With(zap.String("book.id", ps.ByName("id")))
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		logger.Error("book id provided is not valid", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusBadRequest, err.Error(), EmptyData)
		return
	}

	err = api.catalog.DeleteBook(ctx, id)
	if errors.Is(err, ErrBookNotFound) {
		logger.Error("book does not exist")
		api.sendError(ctx, w, logger, http.StatusNotFound, "Book not found", EmptyData)
		return
	}
	if err != nil {
		logger.Error("failed to delete book", zap.Error(err))
		api.sendError(ctx, w, logger, http.StatusInternalServerError, "failed to delete the book", EmptyData)
		return
	}
	logger.Info("success to delete book")
	api.send(ctx, w, logger, http.StatusOK, MessageResponse{Message: "Book deleted"})
}
