package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/nextreadapp/nextread-server/internal/domain"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, title, author, isbn, cover_url, genres, description, created_at`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book

	var (
		author    sql.NullString
		isbn      sql.NullString
		coverURL  sql.NullString
		genres    sql.NullString
		desc      sql.NullString
		createdAt string
	)

	err := scanner.Scan(
		&b.ID,
		&b.Title,
		&author,
		&isbn,
		&coverURL,
		&genres,
		&desc,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	b.Author = author.String
	b.ISBN = isbn.String
	b.CoverURL = coverURL.String
	b.Genres = genres.String
	b.Description = desc.String

	return &b, nil
}

// CreateBook inserts a new book and fills in its generated ID and CreatedAt.
// Returns ErrAlreadyExists when a book with the same ISBN already exists.
func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO books (title, author, isbn, cover_url, genres, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.Title,
		nullString(b.Author),
		nullString(b.ISBN),
		nullString(b.CoverURL),
		nullString(b.Genres),
		nullString(b.Description),
		formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}

	b.ID, err = result.LastInsertId()
	if err != nil {
		return err
	}
	b.CreatedAt = now.UTC()
	return nil
}

// GetBookByISBN retrieves a book by its ISBN.
// Returns ErrNotFound if no book with that ISBN exists.
func (s *Store) GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE isbn = ?`, isbn)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBook retrieves a book by internal id.
// Returns ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBooksByIDs returns the books for the given ids, in id order.
// Missing ids are silently skipped.
func (s *Store) GetBooksByIDs(ctx context.Context, ids []int64) ([]*domain.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id IN (`+placeholders+`) ORDER BY id ASC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// GetBooksByISBNs returns the books whose ISBN is in the given list.
// Unknown ISBNs are silently skipped.
func (s *Store) GetBooksByISBNs(ctx context.Context, isbns []string) ([]*domain.Book, error) {
	if len(isbns) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(isbns)), ",")
	args := make([]any, len(isbns))
	for i, isbn := range isbns {
		args[i] = isbn
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE isbn IN (`+placeholders+`) ORDER BY id ASC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}
