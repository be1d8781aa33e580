package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBookID(t *testing.T) {
	for raw, expected := range map[string]int64{"1": 1, "42": 42, "9007199254740993": 9007199254740993} {
		id, err := ParseBookID(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, expected, id)
	}
	for _, raw := range []string{"", "0", "-3", "1.5", "abc", "b:1"} {
		_, err := ParseBookID(raw)
		assert.ErrorIs(t, err, ErrInvalidBookID, raw)
	}
}

func TestValidateRequestBody(t *testing.T) {
	assert.NoError(t, ValidateRequestBody(&BookCreate{BookFields{Title: "T", Author: "A"}}))
	assert.EqualError(t, ValidateRequestBody(&BookCreate{BookFields{Author: "A"}}), "title is required")

	rating := 4
	assert.EqualError(t, ValidateRequestBody(&ReviewCreate{Rating: &rating}), "review_text is required")
}

func TestDecodeRequestBody(t *testing.T) {
	var data BookCreate
	req := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(`{"title":"T","author":"A","year_published":null}`))
	require.NoError(t, DecodeRequestBody(req, &data))
	assert.Equal(t, "T", data.Title)
	assert.Nil(t, data.YearPublished)

	req = httptest.NewRequest(http.MethodPost, "/books", http.NoBody)
	assert.ErrorIs(t, DecodeRequestBody(req, &data), ErrEmptyBody)
}

func TestGetRequestSourceIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", GetRequestSourceIP(req))

	req.Header.Set("X-FORWARDED-FOR", "garbage, 192.168.1.9")
	assert.Equal(t, "192.168.1.9", GetRequestSourceIP(req))

	req.Header.Set("X-REAL-IP", "172.16.0.3")
	assert.Equal(t, "172.16.0.3", GetRequestSourceIP(req))
}

func TestCustomResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := NewCustomResponseWriter(rec, nil)
	cw.WriteHeader(http.StatusCreated)
	cw.WriteHeader(http.StatusInternalServerError)
	n, err := cw.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusCreated, cw.Status())
	assert.Equal(t, 5, cw.Bytes())
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.ErrorIs(t, http.NewResponseController(cw).SetWriteDeadline(time.Now()), http.ErrNotSupported)
}

func TestContextValues(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDContextKey, "r:1")
	assert.Equal(t, "r:1", GetValueFromContext(ctx, RequestIDContextKey))
	assert.Equal(t, "", GetValueFromContext(context.Background(), RequestIDContextKey))
	assert.Equal(t, uint64(0), GetRequestNumberFromContext(ctx))
	assert.Nil(t, GetConnFromContext(ctx))
}

func TestIDsHandler(t *testing.T) {
	ids := NewIDsHandler()
	a, b := ids.Generate(RequestIDPrefix), ids.Generate(RequestIDPrefix)
	assert.True(t, strings.HasPrefix(a, "r:"))
	assert.Len(t, a, len("r:")+36)
	assert.NotEqual(t, a, b)
}
