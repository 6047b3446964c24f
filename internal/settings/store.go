// Package settings persists app-wide values such as the user-supplied LLM API key.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"kryta-backend/internal/db"
)

const KeyLLMAPIKey = "llm_api_key"

type Store struct {
	db db.Runner
}

func NewStore(d db.Runner) *Store {
	return &Store{db: d}
}

// Get returns the stored value and whether it exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select setting %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value)
		VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// LLMAPIKey is an ai.KeySource: the stored key, or "" when none is set.
func (s *Store) LLMAPIKey(ctx context.Context) (string, error) {
	v, _, err := s.Get(ctx, KeyLLMAPIKey)
	return strings.TrimSpace(v), err
}
