package main

import (
	"context"

	"go.uber.org/zap"
)

type CatalogServiceProvider interface {
	CreateBook(ctx context.Context, data BookCreate) (Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	UpdateBook(ctx context.Context, id int64, data BookCreate) (Book, error)
	DeleteBook(ctx context.Context, id int64) error
	CreateReview(ctx context.Context, bookID int64, data ReviewCreate) (Review, error)
	ListReviews(ctx context.Context, bookID int64) ([]Review, error)
}

// CatalogService runs catalog operations against the storage and
// notifies the mirror queue once a mutation succeeded.
type CatalogService struct {
	logger  *zap.Logger
	clock   Clocker
	storage CatalogStorage
	queue   Queuer
}

func NewCatalogService(logger *zap.Logger, clock Clocker, storage CatalogStorage, queue Queuer) CatalogServiceProvider {
	return &CatalogService{
		logger:  logger,
		clock:   clock,
		storage: storage,
		queue:   queue,
	}
}

// notify pushes a catalog event. Failures are logged and never
// fail the request since the catalog is the source of truth.
func (cs *CatalogService) notify(ctx context.Context, qid, action string, bookID int64) {
	event := CatalogEvent{
		BookID: bookID,
		Action: action,
		At:     cs.clock.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if err := cs.queue.Push(context.WithoutCancel(ctx), qid, event); err != nil {
		cs.logger.Error("service: failed to push event to queue",
			zap.String("qid", qid),
			zap.String("action", action),
			zap.Int64("book.id", bookID),
			zap.Error(err),
		)
	}
}

func (cs *CatalogService) CreateBook(ctx context.Context, data BookCreate) (Book, error) {
	book, err := cs.storage.CreateBook(ctx, data)
	if err != nil {
		return book, err
	}
	cs.notify(ctx, UpsertQueue, "book.created", book.ID)
	return book, nil
}

func (cs *CatalogService) ListBooks(ctx context.Context) ([]Book, error) {
	return cs.storage.ListBooks(ctx)
}

func (cs *CatalogService) GetBook(ctx context.Context, id int64) (Book, error) {
	return cs.storage.GetBook(ctx, id)
}

func (cs *CatalogService) UpdateBook(ctx context.Context, id int64, data BookCreate) (Book, error) {
	book, err := cs.storage.UpdateBook(ctx, id, data)
	if err != nil {
		return book, err
	}
	cs.notify(ctx, UpsertQueue, "book.updated", id)
	return book, nil
}

func (cs *CatalogService) DeleteBook(ctx context.Context, id int64) error {
	if err := cs.storage.DeleteBook(ctx, id); err != nil {
		return err
	}
	cs.notify(ctx, DeleteQueue, "book.deleted", id)
	return nil
}

func (cs *CatalogService) CreateReview(ctx context.Context, bookID int64, data ReviewCreate) (Review, error) {
	review, err := cs.storage.CreateReview(ctx, bookID, data)
	if err != nil {
		return review, err
	}
	cs.notify(ctx, UpsertQueue, "review.created", bookID)
	return review, nil
}

func (cs *CatalogService) ListReviews(ctx context.Context, bookID int64) ([]Review, error) {
	return cs.storage.ListReviews(ctx, bookID)
}
