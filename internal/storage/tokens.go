package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LoadToken returns the stored session token, or "" when signed out.
func (s *SQLiteStorage) LoadToken(ctx context.Context) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}

	var token string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM session WHERE id = 1`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load session token: %w", err)
	}
	return token, nil
}

// SaveToken replaces the stored session token.
func (s *SQLiteStorage) SaveToken(ctx context.Context, token string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(token, "token"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, token, saved_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, saved_at = excluded.saved_at
	`, token)
	if err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

// ClearToken removes the stored session token.
func (s *SQLiteStorage) ClearToken(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	return nil
}
