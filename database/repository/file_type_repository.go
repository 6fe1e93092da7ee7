package repository

import (
	"context"
	"database/sql"
	"errors"
	"filepipe/database"
	"filepipe/database/model"
	"fmt"
	"time"
)

type FileTypeRepository interface {
	Create(ctx context.Context, rule *model.FileTypeRule) error
	Get(ctx context.Context, extension string) (*model.FileTypeRule, error)
	SetEnabled(ctx context.Context, extension string, enabled bool) error
	UpdateDescription(ctx context.Context, extension string, description string) error
	Delete(ctx context.Context, extension string) error
	List(ctx context.Context, enabledOnly bool) ([]model.FileTypeRule, error)
}

type fileTypeRepository struct {
	db *database.DB
}

func NewFileTypeRepository(db *database.DB) FileTypeRepository {
	return &fileTypeRepository{db: db}
}

func (r *fileTypeRepository) Create(ctx context.Context, rule *model.FileTypeRule) error {
	now := time.Now()
	_, err := r.db.D.ExecContext(ctx,
		"INSERT INTO file_types (extension, description, enabled, created_at) VALUES (?, ?, ?, ?)",
		rule.Extension, rule.Description, database.BoolToInt(rule.Enabled), database.ToTimeStr(now))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return database.ErrAlreadyExists
		}
		return fmt.Errorf("could not create file type %s: %w", rule.Extension, err)
	}
	rule.CreatedAt = now
	return nil
}

func (r *fileTypeRepository) Get(ctx context.Context, extension string) (*model.FileTypeRule, error) {
	var rule model.FileTypeRule
	var enabled int
	var createdAt string
	err := r.db.D.QueryRowContext(ctx,
		"SELECT extension, description, enabled, created_at FROM file_types WHERE extension = ?", extension).
		Scan(&rule.Extension, &rule.Description, &enabled, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrDoesNotExist
		}
		return nil, fmt.Errorf("could not get file type %s: %w", extension, err)
	}
	rule.Enabled = enabled == 1
	rule.CreatedAt = database.FromTimeStr(createdAt)
	return &rule, nil
}

func (r *fileTypeRepository) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.D.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrDoesNotExist
	}
	return nil
}

func (r *fileTypeRepository) SetEnabled(ctx context.Context, extension string, enabled bool) error {
	return r.exec(ctx, "UPDATE file_types SET enabled = ? WHERE extension = ?", database.BoolToInt(enabled), extension)
}

func (r *fileTypeRepository) UpdateDescription(ctx context.Context, extension string, description string) error {
	return r.exec(ctx, "UPDATE file_types SET description = ? WHERE extension = ?", description, extension)
}

func (r *fileTypeRepository) Delete(ctx context.Context, extension string) error {
	return r.exec(ctx, "DELETE FROM file_types WHERE extension = ?", extension)
}

func (r *fileTypeRepository) List(ctx context.Context, enabledOnly bool) ([]model.FileTypeRule, error) {
	q := "SELECT extension, description, enabled, created_at FROM file_types"
	if enabledOnly {
		q += " WHERE enabled = 1"
	}
	q += " ORDER BY extension"
	rows, err := r.db.D.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("could not list file types: %w", err)
	}
	defer rows.Close()
	rules := []model.FileTypeRule{}
	for rows.Next() {
		var rule model.FileTypeRule
		var enabled int
		var createdAt string
		if err := rows.Scan(&rule.Extension, &rule.Description, &enabled, &createdAt); err != nil {
			return nil, err
		}
		rule.Enabled = enabled == 1
		rule.CreatedAt = database.FromTimeStr(createdAt)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
