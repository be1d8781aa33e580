package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeAPIError reads an error envelope from the recorder.
func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr
}

// TestStatusHandler ensures api handler can provides its status.
func TestStatusHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	api := newTestAPIHandler(nil, nil, nil)
	api.Status(w, req, httprouter.Params{})
	res := w.Result()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	m := make(map[string]interface{})
	err = json.Unmarshal(data, &m)
	assert.NoError(t, err)

	_, ok := m["requestid"]
	assert.True(t, ok)
	assert.Equal(t, "up & running since 0 mins", m["status"])
	assert.Equal(t, "Hello. Book catalog api is available. Enjoy :)", m["message"])
}

// TestCreateBookHandler ensures api handler can create a book.
//
//nolint:funlen
func TestCreateBookHandler(t *testing.T) {
	t.Run("should pass: valid payload", func(t *testing.T) {
		var received BookCreate
		mockRepo := &MockCatalogStorage{
			CreateBookFunc: func(ctx context.Context, data BookCreate) (Book, error) {
				received = data
				return Book{ID: 1, BookFields: data.BookFields, Reviews: []Review{}}, nil
			},
		}
		api := newTestAPIHandler(mockRepo, nil, nil)

		payload := `{"title":"Dune","author":"Frank Herbert","genre":"Science Fiction","year_published":1965}`
		req := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(payload))
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json; charset=UTF-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "Dune", received.Title)
		require.NotNil(t, received.YearPublished)
		assert.Equal(t, 1965, *received.YearPublished)

		var book Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
		assert.Equal(t, int64(1), book.ID)
		assert.Equal(t, "Dune", book.Title)
		assert.Equal(t, "Frank Herbert", book.Author)
		assert.Equal(t, "Science Fiction", *book.Genre)
		assert.Nil(t, book.Summary)
		assert.NotNil(t, book.Reviews)
		assert.Empty(t, book.Reviews)
	})

	t.Run("should fail: missing title", func(t *testing.T) {
		api := newTestAPIHandler(&MockCatalogStorage{}, nil, nil)
		req := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(`{"author":"Frank Herbert"}`))
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		apiErr := decodeAPIError(t, w)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Equal(t, "title is required", apiErr.Data)
	})

	t.Run("should fail: empty author", func(t *testing.T) {
		api := newTestAPIHandler(&MockCatalogStorage{}, nil, nil)
		req := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(`{"title":"Dune","author":""}`))
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "author is required", decodeAPIError(t, w).Data)
	})

	t.Run("should fail: malformed json", func(t *testing.T) {
		api := newTestAPIHandler(&MockCatalogStorage{}, nil, nil)
		req := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(`{"title":`))
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should fail: empty body", func(t *testing.T) {
		api := newTestAPIHandler(&MockCatalogStorage{}, nil, nil)
		req := httptest.NewRequest(http.MethodPost, "/books", http.NoBody)
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrEmptyBody.Error(), decodeAPIError(t, w).Data)
	})

	t.Run("should fail: storage insertion failure", func(t *testing.T) {
		mockRepo := &MockCatalogStorage{
			CreateBookFunc: func(ctx context.Context, data BookCreate) (Book, error) {
				return Book{}, errors.New("storage failure")
			},
		}
		api := newTestAPIHandler(mockRepo, nil, nil)
		payload, err := json.Marshal(BookCreate{BookFields{Title: "Dune", Author: "Frank Herbert"}})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/books", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "failed to create the book", decodeAPIError(t, w).Message)
	})
}

// TestGetAllBooksHandler ensures all books are served as a bare list.
func TestGetAllBooksHandler(t *testing.T) {
	t.Run("should pass: list books", func(t *testing.T) {
		mockRepo := &MockCatalogStorage{
			ListBooksFunc: func(ctx context.Context) ([]Book, error) {
				return []Book{
					{ID: 1, BookFields: BookFields{Title: "A", Author: "X"}, Reviews: []Review{}},
					{ID: 2, BookFields: BookFields{Title: "B", Author: "Y"}, Reviews: []Review{
						{ID: 1, BookID: 2, ReviewFields: ReviewFields{ReviewText: "good", Rating: 4}},
					}},
				}, nil
			},
		}
		api := newTestAPIHandler(mockRepo, nil, nil)
		w := httptest.NewRecorder()
		api.GetAllBooks(w, httptest.NewRequest(http.MethodGet, "/books", nil), httprouter.Params{})

		assert.Equal(t, http.StatusOK, w.Code)
		var books []Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &books))
		require.Len(t, books, 2)
		assert.Equal(t, int64(1), books[0].ID)
		assert.Len(t, books[1].Reviews, 1)
		assert.Equal(t, int64(2), books[1].Reviews[0].BookID)
	})

	t.Run("should pass: empty catalog is an empty list", func(t *testing.T) {
		mockRepo := &MockCatalogStorage{
			ListBooksFunc: func(ctx context.Context) ([]Book, error) {
				return []Book{}, nil
			},
		}
		api := newTestAPIHandler(mockRepo, nil, nil)
		w := httptest.NewRecorder()
		api.GetAllBooks(w, httptest.NewRequest(http.MethodGet, "/books", nil), httprouter.Params{})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
	})

	t.Run("should fail: storage failure", func(t *testing.T) {
		mockRepo := &MockCatalogStorage{
			ListBooksFunc: func(ctx context.Context) ([]Book, error) {
				return nil, errors.New("storage failure")
			},
		}
		api := newTestAPIHandler(mockRepo, nil, nil)
		w := httptest.NewRecorder()
		api.GetAllBooks(w, httptest.NewRequest(http.MethodGet, "/books", nil), httprouter.Params{})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

// TestGetOneBookHandler ensures a single book lookup maps errors to status codes.
func TestGetOneBookHandler(t *testing.T) {
	mockRepo := &MockCatalogStorage{
		GetBookFunc: func(ctx context.Context, id int64) (Book, error) {
			switch id {
			case 1:
				return Book{ID: 1, BookFields: BookFields{Title: "Dune", Author: "Frank Herbert"}, Reviews: []Review{}}, nil
			case 2:
				return Book{}, ErrBookNotFound
			default:
				return Book{}, errors.New("storage failure")
			}
		},
	}
	api := newTestAPIHandler(mockRepo, nil, nil)

	testCases := []struct {
		name   string
		id     string
		status int
	}{
		{"should pass: existing book", "1", http.StatusOK},
		{"should fail: missing book", "2", http.StatusNotFound},
		{"should fail: storage failure", "3", http.StatusInternalServerError},
		{"should fail: non numeric id", "abc", http.StatusBadRequest},
		{"should fail: negative id", "-1", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/books/"+tc.id, nil)
			api.GetOneBook(w, req, httprouter.Params{{Key: "id", Value: tc.id}})
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				var book Book
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
				assert.Equal(t, "Dune", book.Title)
			}
			if tc.status == http.StatusNotFound {
				assert.Equal(t, "Book not found", decodeAPIError(t, w).Message)
			}
		})
	}
}

// TestUpdateBookHandler ensures a book is fully replaced.
func TestUpdateBookHandler(t *testing.T) {
	mockRepo := &MockCatalogStorage{
		UpdateBookFunc: func(ctx context.Context, id int64, data BookCreate) (Book, error) {
			if id != 1 {
				return Book{}, ErrBookNotFound
			}
			return Book{ID: id, BookFields: data.BookFields, Reviews: []Review{}}, nil
		},
	}
	api := newTestAPIHandler(mockRepo, nil, nil)

	t.Run("should pass: existing book", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/books/1", strings.NewReader(`{"title":"New","author":"Someone"}`))
		api.UpdateBook(w, req, httprouter.Params{{Key: "id", Value: "1"}})
		assert.Equal(t, http.StatusOK, w.Code)

		var book Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
		assert.Equal(t, "New", book.Title)
		assert.Nil(t, book.Genre)
		assert.Nil(t, book.YearPublished)
	})

	t.Run("should fail: missing book", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/books/9", strings.NewReader(`{"title":"New","author":"Someone"}`))
		api.UpdateBook(w, req, httprouter.Params{{Key: "id", Value: "9"}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should fail: missing author", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/books/1", strings.NewReader(`{"title":"New"}`))
		api.UpdateBook(w, req, httprouter.Params{{Key: "id", Value: "1"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "author is required", decodeAPIError(t, w).Data)
	})
}

// TestDeleteOneBookHandler ensures deletion acknowledges with a message.
func TestDeleteOneBookHandler(t *testing.T) {
	mockRepo := &MockCatalogStorage{
		DeleteBookFunc: func(ctx context.Context, id int64) error {
			if id != 1 {
				return ErrBookNotFound
			}
			return nil
		},
	}
	api := newTestAPIHandler(mockRepo, nil, nil)

	t.Run("should pass: existing book", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.DeleteOneBook(w, httptest.NewRequest(http.MethodDelete, "/books/1", nil), httprouter.Params{{Key: "id", Value: "1"}})
		assert.Equal(t, http.StatusOK, w.Code)
		var msg MessageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
		assert.Equal(t, "Book deleted", msg.Message)
	})

	t.Run("should fail: missing book", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.DeleteOneBook(w, httptest.NewRequest(http.MethodDelete, "/books/2", nil), httprouter.Params{{Key: "id", Value: "2"}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// TestHandlerCancelledRequest ensures nothing is written once the client left.
func TestHandlerCancelledRequest(t *testing.T) {
	mockRepo := &MockCatalogStorage{
		GetBookFunc: func(ctx context.Context, id int64) (Book, error) {
			return Book{ID: id, BookFields: BookFields{Title: "T", Author: "A"}, Reviews: []Review{}}, nil
		},
	}
	api := newTestAPIHandler(mockRepo, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/books/1", nil).WithContext(ctx)
	api.GetOneBook(w, req, httprouter.Params{{Key: "id", Value: "1"}})
	assert.Equal(t, 499, w.Code)
	assert.Empty(t, w.Body.String())
}
