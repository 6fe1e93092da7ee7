package repository

import (
	"context"
	"database/sql"
	"errors"
	"filepipe/database"
	"fmt"
)

type SettingRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
}

type settingRepository struct {
	db *database.DB
}

func NewSettingRepository(db *database.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.D.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", database.ErrDoesNotExist
		}
		return "", fmt.Errorf("could not read setting %s: %w", key, err)
	}
	return value, nil
}

func (r *settingRepository) Set(ctx context.Context, key string, value string) error {
	_, err := r.db.D.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("could not write setting %s: %w", key, err)
	}
	return nil
}
