package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

// BookReader loads the current state of a book.
type BookReader interface {
	GetBook(ctx context.Context, id int64) (Book, error)
}

// boltDBConsumer refreshes the bolt mirror from catalog events. Upsert
// events carry only the book id, the snapshot is reloaded from the catalog.
type boltDBConsumer struct {
	logger  *zap.Logger
	queue   Queuer
	catalog BookReader
	mirror  MirrorStorage
}

func NewBoltDBConsumer(logger *zap.Logger, q Queuer, catalog BookReader, mirror MirrorStorage) Consumer {
	return &boltDBConsumer{logger, q, catalog, mirror}
}

func (bc *boltDBConsumer) Consume(ctx context.Context, qids ...string) error {
	for {
		qid, event, err := bc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			bc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			bc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			continue
		}

		bc.handle(ctx, qid, event)
	}
}

func (bc *boltDBConsumer) handle(ctx context.Context, qid string, event CatalogEvent) {
	switch qid {
	case UpsertQueue:
		book, err := bc.catalog.GetBook(ctx, event.BookID)
		if errors.Is(err, ErrBookNotFound) {
			// deleted after the event was queued.
			err = bc.mirror.Delete(event.BookID)
		} else if err == nil {
			err = bc.mirror.Put(book)
		}
		if err != nil {
			MirrorEventsTotal.WithLabelValues(event.Action, "failed").Inc()
			bc.logger.Error("consumer: failed to upsert", zap.Int64("book.id", event.BookID), zap.String("action", event.Action), zap.Error(err))
			return
		}
	case DeleteQueue:
		if err := bc.mirror.Delete(event.BookID); err != nil {
			MirrorEventsTotal.WithLabelValues(event.Action, "failed").Inc()
			bc.logger.Error("consumer: failed to delete", zap.Int64("book.id", event.BookID), zap.Error(err))
			return
		}
	default:
		MirrorEventsTotal.WithLabelValues(event.Action, "ignored").Inc()
		bc.logger.Warn("consumer: received event on unknow queue id", zap.String("qid", qid), zap.Any("event", event))
		return
	}
	MirrorEventsTotal.WithLabelValues(event.Action, "applied").Inc()
}
