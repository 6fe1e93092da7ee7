package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"filepipe/database"
	"filepipe/database/model"
	L "filepipe/logger"
	"fmt"
	"time"
)

type SourceRepository interface {
	Create(ctx context.Context, src *model.ScanSource) error
	Update(ctx context.Context, src *model.ScanSource) error
	SetEnabled(ctx context.Context, name string, enabled bool) error
	GetByName(ctx context.Context, name string) (*model.ScanSource, error)
	List(ctx context.Context, enabledOnly bool) ([]model.ScanSource, error)
	// Delete removes a source. Without force it fails with ErrSourceInUse
	// while file records reference it; with force those records are
	// tombstoned. The source's knowledge base mapping is removed either way.
	Delete(ctx context.Context, name string, force bool) (int64, error)
}

type sourceRepository struct {
	db *database.DB
}

func NewSourceRepository(db *database.DB) SourceRepository {
	return &sourceRepository{db: db}
}

type sourceConfig struct {
	Local *model.LocalConfig `json:"local,omitempty"`
	Ftp   *model.FtpConfig   `json:"ftp,omitempty"`
}

func encodeSourceConfig(src *model.ScanSource) (string, error) {
	data, err := json.Marshal(sourceConfig{Local: src.Local, Ftp: src.Ftp})
	if err != nil {
		return "", fmt.Errorf("could not encode config of source %s: %w", src.Name, err)
	}
	return string(data), nil
}

func scanSource(row rowScanner) (*model.ScanSource, error) {
	var s model.ScanSource
	var configJson, createdAt, updatedAt string
	var enabled int
	err := row.Scan(&s.Name, &s.Kind, &configJson, &enabled, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	var cfg sourceConfig
	if err := json.Unmarshal([]byte(configJson), &cfg); err != nil {
		return nil, fmt.Errorf("could not decode config of source %s: %w", s.Name, err)
	}
	s.Local = cfg.Local
	s.Ftp = cfg.Ftp
	s.Enabled = enabled == 1
	s.CreatedAt = database.FromTimeStr(createdAt)
	s.UpdatedAt = database.FromTimeStr(updatedAt)
	return &s, nil
}

func (r *sourceRepository) Create(ctx context.Context, src *model.ScanSource) error {
	cfg, err := encodeSourceConfig(src)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = r.db.D.ExecContext(ctx,
		`INSERT INTO scan_sources (name, kind, config, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		src.Name, src.Kind, cfg, database.BoolToInt(src.Enabled),
		database.ToTimeStr(now), database.ToTimeStr(now))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return database.ErrAlreadyExists
		}
		return fmt.Errorf("could not create source %s: %w", src.Name, err)
	}
	src.CreatedAt = now
	src.UpdatedAt = now
	L.Debug(fmt.Sprintf("db: created source %s", src.Name))
	return nil
}

func (r *sourceRepository) Update(ctx context.Context, src *model.ScanSource) error {
	cfg, err := encodeSourceConfig(src)
	if err != nil {
		return err
	}
	res, err := r.db.D.ExecContext(ctx,
		"UPDATE scan_sources SET kind = ?, config = ?, enabled = ?, updated_at = ? WHERE name = ?",
		src.Kind, cfg, database.BoolToInt(src.Enabled), database.ToTimeStr(time.Now()), src.Name)
	if err != nil {
		return fmt.Errorf("could not update source %s: %w", src.Name, err)
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

func (r *sourceRepository) SetEnabled(ctx context.Context, name string, enabled bool) error {
	res, err := r.db.D.ExecContext(ctx,
		"UPDATE scan_sources SET enabled = ?, updated_at = ? WHERE name = ?",
		database.BoolToInt(enabled), database.ToTimeStr(time.Now()), name)
	if err != nil {
		return fmt.Errorf("could not toggle source %s: %w", name, err)
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

func (r *sourceRepository) GetByName(ctx context.Context, name string) (*model.ScanSource, error) {
	row := r.db.D.QueryRowContext(ctx,
		"SELECT name, kind, config, enabled, created_at, updated_at FROM scan_sources WHERE name = ?", name)
	src, err := scanSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrDoesNotExist
		}
		return nil, fmt.Errorf("could not get source %s: %w", name, err)
	}
	return src, nil
}

func (r *sourceRepository) List(ctx context.Context, enabledOnly bool) ([]model.ScanSource, error) {
	q := "SELECT name, kind, config, enabled, created_at, updated_at FROM scan_sources"
	if enabledOnly {
		q += " WHERE enabled = 1"
	}
	q += " ORDER BY name"
	rows, err := r.db.D.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("could not list sources: %w", err)
	}
	defer rows.Close()
	sources := []model.ScanSource{}
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, rows.Err()
}

func (r *sourceRepository) Delete(ctx context.Context, name string, force bool) (int64, error) {
	tx, err := r.db.D.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var refs int64
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM file_records WHERE source_id = ? AND source_tombstoned = 0", name).Scan(&refs)
	if err != nil {
		return 0, fmt.Errorf("could not count records of source %s: %w", name, err)
	}
	if refs > 0 && !force {
		return refs, ErrSourceInUse
	}
	if refs > 0 {
		_, err = tx.ExecContext(ctx,
			"UPDATE file_records SET source_tombstoned = 1, updated_at = ? WHERE source_id = ?",
			database.ToTimeStr(time.Now()), name)
		if err != nil {
			return 0, fmt.Errorf("could not tombstone records of source %s: %w", name, err)
		}
	}
	// mappings cascade through the foreign key
	res, err := tx.ExecContext(ctx, "DELETE FROM scan_sources WHERE name = ?", name)
	if err != nil {
		return 0, fmt.Errorf("could not delete source %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, database.ErrDoesNotExist
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	L.Debug(fmt.Sprintf("db: deleted source %s, tombstoned %d records", name, refs))
	return refs, nil
}
