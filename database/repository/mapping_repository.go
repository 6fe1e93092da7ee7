package repository

import (
	"context"
	"database/sql"
	"errors"
	"filepipe/database"
	"filepipe/database/model"
	L "filepipe/logger"
	"fmt"
	"time"
)

type MappingRepository interface {
	// SaveAll inserts new mappings (Id == 0) and updates existing ones in a
	// single transaction. Nothing is written if any mapping fails.
	SaveAll(ctx context.Context, mappings []model.KnowledgeBaseMapping) error
	List(ctx context.Context) ([]model.KnowledgeBaseMapping, error)
	GetBySource(ctx context.Context, scanConfigName string) (*model.KnowledgeBaseMapping, error)
	Delete(ctx context.Context, id int64) error
}

type mappingRepository struct {
	db *database.DB
}

func NewMappingRepository(db *database.DB) MappingRepository {
	return &mappingRepository{db: db}
}

const mappingColumns = "id, scan_config_name, knowledge_base_id, knowledge_base_name, enabled, created_at, updated_at"

func scanMapping(row rowScanner) (*model.KnowledgeBaseMapping, error) {
	var m model.KnowledgeBaseMapping
	var enabled int
	var createdAt, updatedAt string
	err := row.Scan(&m.Id, &m.ScanConfigName, &m.KnowledgeBaseId, &m.KnowledgeBaseName, &enabled, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	m.Enabled = enabled == 1
	m.CreatedAt = database.FromTimeStr(createdAt)
	m.UpdatedAt = database.FromTimeStr(updatedAt)
	return &m, nil
}

func (r *mappingRepository) SaveAll(ctx context.Context, mappings []model.KnowledgeBaseMapping) error {
	tx, err := r.db.D.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insertStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO knowledge_mappings
		(scan_config_name, knowledge_base_id, knowledge_base_name, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insertStmt.Close()
	updateStmt, err := tx.PrepareContext(ctx,
		`UPDATE knowledge_mappings SET scan_config_name = ?, knowledge_base_id = ?, knowledge_base_name = ?,
		enabled = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer updateStmt.Close()

	now := database.ToTimeStr(time.Now())
	for _, m := range mappings {
		var res sql.Result
		if m.Id == 0 {
			res, err = insertStmt.ExecContext(ctx, m.ScanConfigName, m.KnowledgeBaseId, m.KnowledgeBaseName,
				database.BoolToInt(m.Enabled), now, now)
		} else {
			res, err = updateStmt.ExecContext(ctx, m.ScanConfigName, m.KnowledgeBaseId, m.KnowledgeBaseName,
				database.BoolToInt(m.Enabled), now, m.Id)
		}
		if err != nil {
			L.Debug("db: SaveAll mappings failure, rolling back")
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("mapping for %s: %w", m.ScanConfigName, database.ErrAlreadyExists)
			}
			if database.IsForeignKeyViolation(err) {
				return fmt.Errorf("source %s: %w", m.ScanConfigName, database.ErrDoesNotExist)
			}
			return fmt.Errorf("could not save mapping for %s: %w", m.ScanConfigName, err)
		}
		if m.Id != 0 {
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("mapping %d: %w", m.Id, database.ErrDoesNotExist)
			}
		}
	}
	return tx.Commit()
}

func (r *mappingRepository) List(ctx context.Context) ([]model.KnowledgeBaseMapping, error) {
	rows, err := r.db.D.QueryContext(ctx, "SELECT "+mappingColumns+" FROM knowledge_mappings ORDER BY scan_config_name")
	if err != nil {
		return nil, fmt.Errorf("could not list mappings: %w", err)
	}
	defer rows.Close()
	mappings := []model.KnowledgeBaseMapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, *m)
	}
	return mappings, rows.Err()
}

func (r *mappingRepository) GetBySource(ctx context.Context, scanConfigName string) (*model.KnowledgeBaseMapping, error) {
	row := r.db.D.QueryRowContext(ctx,
		"SELECT "+mappingColumns+" FROM knowledge_mappings WHERE scan_config_name = ?", scanConfigName)
	m, err := scanMapping(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrDoesNotExist
		}
		return nil, fmt.Errorf("could not get mapping for %s: %w", scanConfigName, err)
	}
	return m, nil
}

func (r *mappingRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.D.ExecContext(ctx, "DELETE FROM knowledge_mappings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("could not delete mapping %d: %w", id, err)
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
