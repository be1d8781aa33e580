package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

var (
	bookColumns   = []string{"id", "title", "author", "genre", "year_published", "summary"}
	reviewColumns = []string{"id", "book_id", "user_id", "review_text", "rating"}
)

// Ensure *sqlCatalogStorage implements CatalogStorage.
var _ CatalogStorage = (*sqlCatalogStorage)(nil)

type sqlCatalogStorage struct {
	logger *zap.Logger
	db     *sql.DB
	driver string
	sb     squirrel.StatementBuilderType
}

// GetSQLClient opens the pool of connections to the catalog database
// and verifies it is reachable.
func GetSQLClient(config *Config) (*sql.DB, error) {
	driverName := config.Database.Driver
	if driverName == DriverPostgres {
		// pgx registers its database/sql driver under this name.
		driverName = "pgx"
	}
	db, err := sql.Open(driverName, config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}

	if config.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.Database.MaxOpenConns)
	}
	if config.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.Database.MaxIdleConns)
	}
	if config.Database.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.Database.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Database.PingTimeout)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("test connection failed: %v", err)
	}
	return db, nil
}

// NewSQLCatalogStorage provides an instance of sql-based catalog storage.
func NewSQLCatalogStorage(logger *zap.Logger, driver string, db *sql.DB) *sqlCatalogStorage {
	var format squirrel.PlaceholderFormat = squirrel.Question
	if driver == DriverPostgres {
		format = squirrel.Dollar
	}
	return &sqlCatalogStorage{
		logger: logger,
		db:     db,
		driver: driver,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(format),
	}
}

// Close releases the pool of connections.
func (s *sqlCatalogStorage) Close() error {
	return s.db.Close()
}

// Migrate creates the catalog tables if they do not exist yet.
func (s *sqlCatalogStorage) Migrate(ctx context.Context) error {
	var statements []string
	switch s.driver {
	case DriverPostgres:
		statements = postgresSchema
	case DriverMySQL:
		statements = mysqlSchema
	default:
		statements = sqliteSchema
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	s.logger.Debug("storage: schema applied", zap.String("driver", s.driver), zap.Int("statements", len(statements)))
	return nil
}

// sqlRunner is satisfied by both *sql.DB and *sql.Tx.
type sqlRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insert runs an insert statement and returns the generated identifier.
func (s *sqlCatalogStorage) insert(ctx context.Context, runner sqlRunner, q squirrel.InsertBuilder) (int64, error) {
	var id int64
	if s.driver == DriverPostgres {
		query, args, err := q.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, err
		}
		err = runner.QueryRowContext(ctx, query, args...).Scan(&id)
		return id, err
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := runner.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// bookExists checks the presence of a book inside the given transaction.
func (s *sqlCatalogStorage) bookExists(ctx context.Context, tx *sql.Tx, id int64) error {
	query, args, err := s.sb.Select("1").From("books").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	var one int
	err = tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBookNotFound
	}
	return err
}

// CreateBook inserts a new book record and returns it with an empty list of reviews.
func (s *sqlCatalogStorage) CreateBook(ctx context.Context, data BookCreate) (Book, error) {
	q := s.sb.Insert("books").
		Columns("title", "author", "genre", "year_published").
		Values(data.Title, data.Author, data.Genre, data.YearPublished)

	id, err := s.insert(ctx, s.db, q)
	if err != nil {
		return Book{}, fmt.Errorf("failed to insert book: %w", err)
	}
	return Book{ID: id, BookFields: data.BookFields, Reviews: []Review{}}, nil
}

// ListBooks retrieves all books ordered by their ID with their reviews.
func (s *sqlCatalogStorage) ListBooks(ctx context.Context) ([]Book, error) {
	query, args, err := s.sb.Select(bookColumns...).From("books").OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var book Book
		if err = scanBook(rows, &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return books, nil
	}

	// Every book is listed, so all reviews are loaded in one pass.
	reviews, err := s.selectReviews(ctx, nil)
	if err != nil {
		return nil, err
	}
	byBook := lo.GroupBy(reviews, func(r Review) int64 { return r.BookID })
	for i := range books {
		if rs, ok := byBook[books[i].ID]; ok {
			books[i].Reviews = rs
		} else {
			books[i].Reviews = []Review{}
		}
	}
	return books, nil
}

// GetBook retrieves a book record based on its ID.
func (s *sqlCatalogStorage) GetBook(ctx context.Context, id int64) (Book, error) {
	var book Book
	query, args, err := s.sb.Select(bookColumns...).From("books").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return book, err
	}
	err = scanBook(s.db.QueryRowContext(ctx, query, args...), &book)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("failed to query book: %w", err)
	}

	book.Reviews, err = s.ListReviews(ctx, id)
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// UpdateBook replaces every writable field of an existing book.
func (s *sqlCatalogStorage) UpdateBook(ctx context.Context, id int64, data BookCreate) (Book, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Book{}, err
	}
	defer tx.Rollback()

	if err = s.bookExists(ctx, tx, id); err != nil {
		return Book{}, err
	}

	query, args, err := s.sb.Update("books").
		Set("title", data.Title).
		Set("author", data.Author).
		Set("genre", data.Genre).
		Set("year_published", data.YearPublished).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return Book{}, err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return Book{}, fmt.Errorf("failed to update book: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return Book{}, err
	}
	return s.GetBook(ctx, id)
}

// DeleteBook removes a book and all its reviews.
func (s *sqlCatalogStorage) DeleteBook(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query, args, err := s.sb.Delete("reviews").Where(squirrel.Eq{"book_id": id}).ToSql()
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete reviews: %w", err)
	}

	query, args, err = s.sb.Delete("books").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return tx.Commit()
}

// CreateReview inserts a review for an existing book.
func (s *sqlCatalogStorage) CreateReview(ctx context.Context, bookID int64, data ReviewCreate) (Review, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Review{}, err
	}
	defer tx.Rollback()

	if err = s.bookExists(ctx, tx, bookID); err != nil {
		return Review{}, err
	}

	fields := data.Fields()
	q := s.sb.Insert("reviews").
		Columns("book_id", "user_id", "review_text", "rating").
		Values(bookID, fields.UserID, fields.ReviewText, fields.Rating)
	id, err := s.insert(ctx, tx, q)
	if err != nil {
		return Review{}, fmt.Errorf("failed to insert review: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return Review{}, err
	}
	return Review{ID: id, BookID: bookID, ReviewFields: fields}, nil
}

// ListReviews retrieves the reviews of a book. It does not check the book exists.
func (s *sqlCatalogStorage) ListReviews(ctx context.Context, bookID int64) ([]Review, error) {
	return s.selectReviews(ctx, squirrel.Eq{"book_id": bookID})
}

func (s *sqlCatalogStorage) selectReviews(ctx context.Context, where squirrel.Sqlizer) ([]Review, error) {
	q := s.sb.Select(reviewColumns...).From("reviews").OrderBy("id ASC")
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		var (
			r      Review
			text   sql.NullString
			rating sql.NullInt64
		)
		if err = rows.Scan(&r.ID, &r.BookID, &r.UserID, &text, &rating); err != nil {
			return nil, err
		}
		r.ReviewText = text.String
		r.Rating = int(rating.Int64)
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner, b *Book) error {
	return row.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.YearPublished, &b.Summary)
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title VARCHAR(255) NOT NULL,
		author VARCHAR(255) NOT NULL,
		genre VARCHAR(255),
		year_published INTEGER,
		summary TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		user_id INTEGER,
		review_text TEXT,
		rating INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_book_id ON reviews(book_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		author VARCHAR(255) NOT NULL,
		genre VARCHAR(255),
		year_published INTEGER,
		summary TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id BIGSERIAL PRIMARY KEY,
		book_id BIGINT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		user_id BIGINT,
		review_text TEXT,
		rating INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_book_id ON reviews(book_id)`,
}

// The foreign key implicitly indexes reviews.book_id on mysql.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		author VARCHAR(255) NOT NULL,
		genre VARCHAR(255),
		year_published INT,
		summary TEXT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		book_id BIGINT NOT NULL,
		user_id BIGINT,
		review_text TEXT,
		rating INT,
		CONSTRAINT fk_reviews_book FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
