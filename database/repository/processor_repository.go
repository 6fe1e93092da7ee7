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

type ProcessorRepository interface {
	Register(ctx context.Context, name string, topic string) error
	SetDesired(ctx context.Context, name string, enabled bool) error
	SaveSnapshot(ctx context.Context, name string, consuming bool, stats model.ProcessorStats) error
	Get(ctx context.Context, name string) (*model.ProcessorState, error)
	List(ctx context.Context) ([]model.ProcessorState, error)
}

type processorRepository struct {
	db *database.DB
}

func NewProcessorRepository(db *database.DB) ProcessorRepository {
	return &processorRepository{db: db}
}

const processorColumns = "name, topic, enabled, consuming, processed, success, failed, skipped, updated_at"

func scanProcessor(row rowScanner) (*model.ProcessorState, error) {
	var p model.ProcessorState
	var enabled, consuming int
	var updatedAt string
	err := row.Scan(&p.Name, &p.Topic, &enabled, &consuming,
		&p.Stats.Processed, &p.Stats.Success, &p.Stats.Failed, &p.Stats.Skipped, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Enabled = enabled == 1
	p.Consuming = consuming == 1
	p.UpdatedAt = database.FromTimeStr(updatedAt)
	return &p, nil
}

func (r *processorRepository) Register(ctx context.Context, name string, topic string) error {
	_, err := r.db.D.ExecContext(ctx,
		`INSERT INTO processors (name, topic, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET topic = excluded.topic`,
		name, topic, database.ToTimeStr(time.Now()))
	if err != nil {
		return fmt.Errorf("could not register processor %s: %w", name, err)
	}
	return nil
}

func (r *processorRepository) SetDesired(ctx context.Context, name string, enabled bool) error {
	res, err := r.db.D.ExecContext(ctx,
		"UPDATE processors SET enabled = ?, updated_at = ? WHERE name = ?",
		database.BoolToInt(enabled), database.ToTimeStr(time.Now()), name)
	if err != nil {
		return fmt.Errorf("could not update processor %s: %w", name, err)
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

func (r *processorRepository) SaveSnapshot(ctx context.Context, name string, consuming bool, stats model.ProcessorStats) error {
	res, err := r.db.D.ExecContext(ctx,
		`UPDATE processors SET consuming = ?, processed = ?, success = ?, failed = ?, skipped = ?, updated_at = ?
		WHERE name = ?`,
		database.BoolToInt(consuming), stats.Processed, stats.Success, stats.Failed, stats.Skipped,
		database.ToTimeStr(time.Now()), name)
	if err != nil {
		return fmt.Errorf("could not save snapshot of processor %s: %w", name, err)
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

func (r *processorRepository) Get(ctx context.Context, name string) (*model.ProcessorState, error) {
	row := r.db.D.QueryRowContext(ctx, "SELECT "+processorColumns+" FROM processors WHERE name = ?", name)
	p, err := scanProcessor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrDoesNotExist
		}
		return nil, fmt.Errorf("could not get processor %s: %w", name, err)
	}
	return p, nil
}

func (r *processorRepository) List(ctx context.Context) ([]model.ProcessorState, error) {
	rows, err := r.db.D.QueryContext(ctx, "SELECT "+processorColumns+" FROM processors ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("could not list processors: %w", err)
	}
	defer rows.Close()
	states := []model.ProcessorState{}
	for rows.Next() {
		p, err := scanProcessor(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *p)
	}
	return states, rows.Err()
}
