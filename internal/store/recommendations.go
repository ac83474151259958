package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/nextreadapp/nextread-server/internal/domain"
)

// CountRecommendations returns the number of recommendations a user has.
func (s *Store) CountRecommendations(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recommendations WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

// CreateRecommendation inserts a recommendation and its input-book links in a
// single transaction, so links never exist without their recommendation.
// Fills in the recommendation's generated ID and CreatedAt.
func (s *Store) CreateRecommendation(ctx context.Context, rec *domain.Recommendation, inputBookIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO recommendations (user_id, result_book_id, explanation, created_at)
		VALUES (?, ?, ?, ?)`,
		rec.UserID,
		rec.ResultBookID,
		nullString(rec.Explanation),
		formatTime(now),
	)
	if err != nil {
		return err
	}

	recID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	for _, bookID := range inputBookIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recommendation_books (recommendation_id, book_id)
			VALUES (?, ?)`,
			recID, bookID,
		); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	rec.ID = recID
	rec.CreatedAt = now.UTC()
	return nil
}

// ListRecommendations returns a user's recommendations, newest first, each
// with its result book and input books.
func (s *Store) ListRecommendations(ctx context.Context, userID int64) ([]*domain.RecommendationEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.explanation, r.created_at,
			b.id, b.title, b.author, b.isbn, b.cover_url, b.genres, b.description, b.created_at
		FROM recommendations r
		JOIN books b ON b.id = r.result_book_id
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC, r.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.RecommendationEntry
	for rows.Next() {
		entry, err := scanRecommendationEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, entry := range entries {
		inputs, err := s.getInputBooks(ctx, entry.ID)
		if err != nil {
			return nil, err
		}
		entry.InputBooks = inputs
	}

	return entries, nil
}

// scanRecommendationEntry scans a joined recommendation + result book row.
func scanRecommendationEntry(scanner interface{ Scan(dest ...any) error }) (*domain.RecommendationEntry, error) {
	var (
		entry    domain.RecommendationEntry
		book     domain.Book
		expl     sql.NullString
		recTime  string
		author   sql.NullString
		isbn     sql.NullString
		coverURL sql.NullString
		genres   sql.NullString
		desc     sql.NullString
		bookTime string
	)

	err := scanner.Scan(
		&entry.ID, &expl, &recTime,
		&book.ID, &book.Title, &author, &isbn, &coverURL, &genres, &desc, &bookTime,
	)
	if err != nil {
		return nil, err
	}

	entry.Explanation = expl.String
	entry.CreatedAt, err = parseTime(recTime)
	if err != nil {
		return nil, err
	}

	book.Author = author.String
	book.ISBN = isbn.String
	book.CoverURL = coverURL.String
	book.Genres = genres.String
	book.Description = desc.String
	book.CreatedAt, err = parseTime(bookTime)
	if err != nil {
		return nil, err
	}

	entry.ResultBook = &book
	return &entry, nil
}

// getInputBooks returns the input books linked to a recommendation.
func (s *Store) getInputBooks(ctx context.Context, recommendationID int64) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.title, b.author, b.isbn, b.cover_url, b.genres, b.description, b.created_at
		FROM recommendation_books rb
		JOIN books b ON b.id = rb.book_id
		WHERE rb.recommendation_id = ?
		ORDER BY rb.id ASC`, recommendationID)
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
