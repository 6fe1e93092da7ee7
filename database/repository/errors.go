package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// the record is not in a status that allows the requested change
	ErrStatusConflict = errors.New("file record status conflict")
	ErrNotEligible    = errors.New("not_eligible")
	ErrSourceInUse    = errors.New("source is referenced by file records")
	// the record outlived its source and can no longer be claimed
	ErrSourceDeleted = errors.New("source_deleted")
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func expectRowsAffected(res sql.Result, expected int64) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected != expected {
		return fmt.Errorf("was expecting %d row updates, but %d rows were updated", expected, rowsAffected)
	}
	return nil
}
