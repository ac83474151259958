package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/nextreadapp/nextread-server/internal/domain"
)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, external_id, created_at`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User
	var createdAt string

	if err := scanner.Scan(&u.ID, &u.ExternalID, &createdAt); err != nil {
		return nil, err
	}

	var err error
	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user for the given external identity-provider id.
// Returns ErrAlreadyExists if a user with that external id already exists;
// the unique index is the guard against concurrent first contact.
func (s *Store) CreateUser(ctx context.Context, externalID string) (*domain.User, error) {
	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (external_id, created_at) VALUES (?, ?)`,
		externalID, formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &domain.User{
		ID:         id,
		ExternalID: externalID,
		CreatedAt:  now.UTC(),
	}, nil
}

// GetUserByExternalID retrieves a user by external identity-provider id.
// Returns ErrNotFound if no such user exists.
func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes a user. Recommendations and their input-book links
// follow via ON DELETE CASCADE.
// Returns ErrNotFound if the user does not exist.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
