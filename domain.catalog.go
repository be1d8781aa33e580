package main

import "context"

// BookFields holds the book attributes provided by clients.
type BookFields struct {
	Title         string  `json:"title" validate:"required"`
	Author        string  `json:"author" validate:"required"`
	Genre         *string `json:"genre"`
	YearPublished *int    `json:"year_published"`
}

// BookCreate is the payload accepted to create or fully replace a book.
type BookCreate struct {
	BookFields
}

// Book represents a stored book with its reviews.
type Book struct {
	ID int64 `json:"id"`
	BookFields
	Summary *string  `json:"summary"`
	Reviews []Review `json:"reviews"`
}

// ReviewFields holds the review attributes provided by clients.
type ReviewFields struct {
	ReviewText string `json:"review_text"`
	Rating     int    `json:"rating"`
	UserID     *int64 `json:"user_id"`
}

// ReviewCreate is the payload accepted to add a review. Pointers
// let the validator tell a missing field apart from a zero value.
type ReviewCreate struct {
	ReviewText *string `json:"review_text" validate:"required"`
	Rating     *int    `json:"rating" validate:"required"`
	UserID     *int64  `json:"user_id"`
}

// Fields converts a validated payload into review attributes.
func (rc ReviewCreate) Fields() ReviewFields {
	var f ReviewFields
	if rc.ReviewText != nil {
		f.ReviewText = *rc.ReviewText
	}
	if rc.Rating != nil {
		f.Rating = *rc.Rating
	}
	f.UserID = rc.UserID
	return f
}

// Review represents a stored review attached to a book.
type Review struct {
	ID     int64 `json:"id"`
	BookID int64 `json:"book_id"`
	ReviewFields
}

// CatalogStorage defines possible operations on books and their reviews.
type CatalogStorage interface {
	CreateBook(ctx context.Context, data BookCreate) (Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	UpdateBook(ctx context.Context, id int64, data BookCreate) (Book, error)
	DeleteBook(ctx context.Context, id int64) error
	CreateReview(ctx context.Context, bookID int64, data ReviewCreate) (Review, error)
	ListReviews(ctx context.Context, bookID int64) ([]Review, error)
}
