package main

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Predefinied Queue IDs.
const (
	UpsertQueue = "catalog.upsert"
	DeleteQueue = "catalog.delete"
)

// Ensure queues implement Queuer.
var (
	_ Queuer = (*redisQueue)(nil)
	_ Queuer = (*noopQueue)(nil)
)

// CatalogEvent notifies that a book (and its reviews) changed.
type CatalogEvent struct {
	BookID int64  `json:"book_id"`
	Action string `json:"action"`
	At     string `json:"at"`
}

// Queuer describes a queue.
type Queuer interface {
	Push(ctx context.Context, qid string, event CatalogEvent) error
	Pop(ctx context.Context, qids ...string) (string, CatalogEvent, error)
}

// redisQueue represents a queue which implements the Queuer interface.
type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queuer {
	return &redisQueue{client: client}
}

// Push enqueues an event onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, event CatalogEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, eventBytes).Err()
}

// Pop blocks until an event is available on one of the queue ids.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, CatalogEvent, error) {
	var event CatalogEvent
	var qid string
	infos, err := q.client.BLPop(ctx, 0*time.Second, qids...).Result()
	if err != nil {
		return qid, event, err
	}

	if err = json.Unmarshal([]byte(infos[1]), &event); err != nil {
		return qid, event, err
	}
	qid = infos[0]
	return qid, event, nil
}

// noopQueue drops every event. It is used when the mirror is disabled.
type noopQueue struct{}

func NewNoopQueue() Queuer {
	return noopQueue{}
}

func (noopQueue) Push(context.Context, string, CatalogEvent) error {
	return nil
}

// Pop waits for the context to be done since nothing is ever queued.
func (noopQueue) Pop(ctx context.Context, _ ...string) (string, CatalogEvent, error) {
	<-ctx.Done()
	return "", CatalogEvent{}, ctx.Err()
}
