package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// This file contains mocks definitions needed to perform unit tests.

type MockCatalogStorage struct {
	CreateBookFunc   func(ctx context.Context, data BookCreate) (Book, error)
	ListBooksFunc    func(ctx context.Context) ([]Book, error)
	GetBookFunc      func(ctx context.Context, id int64) (Book, error)
	UpdateBookFunc   func(ctx context.Context, id int64, data BookCreate) (Book, error)
	DeleteBookFunc   func(ctx context.Context, id int64) error
	CreateReviewFunc func(ctx context.Context, bookID int64, data ReviewCreate) (Review, error)
	ListReviewsFunc  func(ctx context.Context, bookID int64) ([]Review, error)
}

// CreateBook mocks the behavior of book creation by the repository.
func (m *MockCatalogStorage) CreateBook(ctx context.Context, data BookCreate) (Book, error) {
	return m.CreateBookFunc(ctx, data)
}

// ListBooks mocks the behavior of retrieving all books by the repository.
func (m *MockCatalogStorage) ListBooks(ctx context.Context) ([]Book, error) {
	return m.ListBooksFunc(ctx)
}

// GetBook mocks the behavior of retrieving a book by the repository.
func (m *MockCatalogStorage) GetBook(ctx context.Context, id int64) (Book, error) {
	return m.GetBookFunc(ctx, id)
}

// UpdateBook mocks the behavior of replacing a book by the repository.
func (m *MockCatalogStorage) UpdateBook(ctx context.Context, id int64, data BookCreate) (Book, error) {
	return m.UpdateBookFunc(ctx, id, data)
}

// DeleteBook mocks the behavior of deleting a book by the repository.
func (m *MockCatalogStorage) DeleteBook(ctx context.Context, id int64) error {
	return m.DeleteBookFunc(ctx, id)
}

// CreateReview mocks the behavior of review creation by the repository.
func (m *MockCatalogStorage) CreateReview(ctx context.Context, bookID int64, data ReviewCreate) (Review, error) {
	return m.CreateReviewFunc(ctx, bookID, data)
}

// ListReviews mocks the behavior of retrieving the reviews of a book.
func (m *MockCatalogStorage) ListReviews(ctx context.Context, bookID int64) ([]Review, error) {
	return m.ListReviewsFunc(ctx, bookID)
}

// MockQueuer records pushed events and serves popped ones from PopFunc.
type MockQueuer struct {
	PushFunc func(ctx context.Context, qid string, event CatalogEvent) error
	PopFunc  func(ctx context.Context, qids ...string) (string, CatalogEvent, error)
}

func (mq *MockQueuer) Push(ctx context.Context, qid string, event CatalogEvent) error {
	return mq.PushFunc(ctx, qid, event)
}

func (mq *MockQueuer) Pop(ctx context.Context, qids ...string) (string, CatalogEvent, error) {
	return mq.PopFunc(ctx, qids...)
}

// MockMirrorStorage is an in-memory MirrorStorage.
type MockMirrorStorage struct {
	Books    map[int64]Book
	PutErr   error
	ListFunc func() ([]Book, error)
}

func NewMockMirrorStorage() *MockMirrorStorage {
	return &MockMirrorStorage{Books: map[int64]Book{}}
}

func (mm *MockMirrorStorage) Put(book Book) error {
	if mm.PutErr != nil {
		return mm.PutErr
	}
	mm.Books[book.ID] = book
	return nil
}

func (mm *MockMirrorStorage) Get(id int64) (Book, error) {
	book, ok := mm.Books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	return book, nil
}

func (mm *MockMirrorStorage) Delete(id int64) error {
	delete(mm.Books, id)
	return nil
}

func (mm *MockMirrorStorage) List() ([]Book, error) {
	if mm.ListFunc != nil {
		return mm.ListFunc()
	}
	books := []Book{}
	for _, b := range mm.Books {
		books = append(books, b)
	}
	return books, nil
}

func (mm *MockMirrorStorage) Close() error {
	return nil
}

// MockSummarizer implements a fake Summarizer.
type MockSummarizer struct {
	SummarizeFunc func(ctx context.Context, text string) (string, error)
}

func (ms *MockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return ms.SummarizeFunc(ctx, text)
}

// MockRecommender implements a fake Recommender.
type MockRecommender struct {
	PredictFunc func(genre string, rating float64) (int, error)
}

func (mr *MockRecommender) Predict(genre string, rating float64) (int, error) {
	return mr.PredictFunc(genre, rating)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDGenerator.
type MockUIDHandler struct {
	MockedUID string
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// newTestAPIHandler builds an APIHandler around the given catalog storage
// with a no-op queue and fixed clock and ids.
func newTestAPIHandler(storage CatalogStorage, recommender Recommender, summarizer Summarizer) *APIHandler {
	clock := NewMockClocker()
	cs := NewCatalogService(zap.NewNop(), clock, storage, NewNoopQueue())
	return NewAPIHandler(zap.NewNop(), &Config{}, &Statistics{started: clock.Now()}, clock, NewMockUIDHandler("test"), cs, recommender, summarizer, nil)
}
