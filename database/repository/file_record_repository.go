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
	"slices"
	"strings"
	"time"
)

type DiscoverOutcome int

const (
	DISCOVER_NEW DiscoverOutcome = iota
	DISCOVER_UNCHANGED
	DISCOVER_CHANGED
	// changed at the source while a worker owns the record
	DISCOVER_DEFERRED
)

type FileRecordFilter struct {
	Status     model.FileStatus
	SourceId   string
	SourceType model.SourceType
	NameLike   string
	Limit      int
	Offset     int
}

type FileRecordRepository interface {
	// Discover inserts a newly found file or refreshes a known one whose size
	// or modification time changed.
	Discover(ctx context.Context, rec *model.FileRecord) (DiscoverOutcome, error)
	Insert(ctx context.Context, rec *model.FileRecord) error
	Get(ctx context.Context, fileId string) (*model.FileRecord, error)
	List(ctx context.Context, filter FileRecordFilter) ([]model.FileRecord, int64, error)
	ListClaimable(ctx context.Context, fileTypes []string, limit int) ([]model.FileRecord, error)

	// Claim moves a wait or retrying record to processing. It returns false
	// when another worker got there first.
	Claim(ctx context.Context, fileId string, processor string) (bool, error)
	Transition(ctx context.Context, fileId string, from model.FileStatus, to model.FileStatus, processor string, message string) error
	Complete(ctx context.Context, fileId string, processor string, derived []model.FileRecord) error
	Fail(ctx context.Context, fileId string, processor string, message string) error
	Reprocess(ctx context.Context, fileId string) (model.FileStatus, error)
	DeleteMany(ctx context.Context, fileIds []string) (int64, error)

	CountByStatus(ctx context.Context) (map[model.FileStatus]int64, error)
	// CountQueued counts records still ahead of the workers: claimable ones
	// whose source exists, and everything in flight.
	CountQueued(ctx context.Context) (int64, error)
	CountBySourceType(ctx context.Context) (map[model.SourceType]int64, error)
	CountBySource(ctx context.Context, sourceId string) (int64, error)
	Events(ctx context.Context, fileId string) ([]model.FileEvent, error)
}

type fileRecordRepository struct {
	db *database.DB
}

func NewFileRecordRepository(db *database.DB) FileRecordRepository {
	return &fileRecordRepository{db: db}
}

const fileRecordColumns = `file_id, file_name, path, source_type, source_id, parent_file_id,
file_type, size, modified_at, status, processors, error_message, retry_count,
source_tombstoned, created_at, updated_at, started_at, finished_at`

func scanFileRecord(row rowScanner) (*model.FileRecord, error) {
	var r model.FileRecord
	var parentId, modifiedAt, errorMessage, startedAt, finishedAt sql.NullString
	var processorsJson, createdAt, updatedAt string
	var tombstoned int
	err := row.Scan(
		&r.FileId,
		&r.FileName,
		&r.Path,
		&r.SourceType,
		&r.SourceId,
		&parentId,
		&r.FileType,
		&r.Size,
		&modifiedAt,
		&r.Status,
		&processorsJson,
		&errorMessage,
		&r.RetryCount,
		&tombstoned,
		&createdAt,
		&updatedAt,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ParentFileId = parentId.String
	if mt := database.FromNullTimeStr(modifiedAt); mt != nil {
		r.ModifiedAt = *mt
	}
	r.Processors = []string{}
	if err := json.Unmarshal([]byte(processorsJson), &r.Processors); err != nil {
		return nil, fmt.Errorf("could not decode processors of %s: %w", r.FileId, err)
	}
	r.ErrorMessage = errorMessage.String
	r.SourceTombstoned = tombstoned == 1
	r.CreatedAt = database.FromTimeStr(createdAt)
	r.UpdatedAt = database.FromTimeStr(updatedAt)
	r.StartedAt = database.FromNullTimeStr(startedAt)
	r.FinishedAt = database.FromNullTimeStr(finishedAt)
	return &r, nil
}

func insertFileRecord(ctx context.Context, ex execer, rec *model.FileRecord) error {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = model.FILE_STATUS_WAIT
	}
	if rec.Processors == nil {
		rec.Processors = []string{}
	}
	processorsJson, err := json.Marshal(rec.Processors)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO file_records (`+fileRecordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FileId,
		rec.FileName,
		rec.Path,
		rec.SourceType,
		rec.SourceId,
		database.ToNullString(rec.ParentFileId),
		rec.FileType,
		rec.Size,
		database.ToNullTimeStr(&rec.ModifiedAt),
		rec.Status,
		string(processorsJson),
		database.ToNullString(rec.ErrorMessage),
		rec.RetryCount,
		database.BoolToInt(rec.SourceTombstoned),
		database.ToTimeStr(rec.CreatedAt),
		database.ToTimeStr(rec.UpdatedAt),
		database.ToNullTimeStr(rec.StartedAt),
		database.ToNullTimeStr(rec.FinishedAt),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return database.ErrAlreadyExists
		}
		return fmt.Errorf("could not insert file record %s: %w", rec.FileId, err)
	}
	return nil
}

func insertFileEvent(ctx context.Context, ex execer, fileId string, from model.FileStatus, to model.FileStatus, processor string, message string) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO file_events (file_id, from_status, to_status, processor, message, at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		fileId,
		database.ToNullString(string(from)),
		to,
		database.ToNullString(processor),
		database.ToNullString(message),
		database.ToTimeStr(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("could not log event %s -> %s for %s: %w", from, to, fileId, err)
	}
	return nil
}

func currentStatus(ctx context.Context, tx *sql.Tx, fileId string) (model.FileStatus, error) {
	var status model.FileStatus
	err := tx.QueryRowContext(ctx, "SELECT status FROM file_records WHERE file_id = ?", fileId).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", database.ErrDoesNotExist
		}
		return "", fmt.Errorf("could not get status of %s: %w", fileId, err)
	}
	return status, nil
}

func (r *fileRecordRepository) Discover(ctx context.Context, rec *model.FileRecord) (DiscoverOutcome, error) {
	tx, err := r.db.D.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var size int64
	var modifiedAt sql.NullString
	var status model.FileStatus
	var tombstoned int
	err = tx.QueryRowContext(ctx,
		"SELECT size, modified_at, status, source_tombstoned FROM file_records WHERE file_id = ?",
		rec.FileId).Scan(&size, &modifiedAt, &status, &tombstoned)

	if errors.Is(err, sql.ErrNoRows) {
		rec.Status = model.FILE_STATUS_WAIT
		if err := insertFileRecord(ctx, tx, rec); err != nil {
			return 0, err
		}
		if err := insertFileEvent(ctx, tx, rec.FileId, "", model.FILE_STATUS_WAIT, "", "discovered"); err != nil {
			return 0, err
		}
		return DISCOVER_NEW, tx.Commit()
	}
	if err != nil {
		return 0, fmt.Errorf("could not look up file record %s: %w", rec.FileId, err)
	}

	sameContent := size == rec.Size && modifiedAt == database.ToNullTimeStr(&rec.ModifiedAt)
	if sameContent && tombstoned == 0 {
		return DISCOVER_UNCHANGED, nil
	}
	if status.IsInFlight() {
		L.Debug(fmt.Sprintf("db: %s changed while %s, leaving it for the next scan", rec.FileId, status))
		return DISCOVER_DEFERRED, nil
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE file_records SET file_name = ?, size = ?, modified_at = ?, status = ?,
		error_message = NULL, source_tombstoned = 0, started_at = NULL, finished_at = NULL, updated_at = ?
		WHERE file_id = ?`,
		rec.FileName,
		rec.Size,
		database.ToNullTimeStr(&rec.ModifiedAt),
		model.FILE_STATUS_WAIT,
		database.ToTimeStr(time.Now()),
		rec.FileId,
	)
	if err != nil {
		return 0, fmt.Errorf("could not reset file record %s: %w", rec.FileId, err)
	}
	if err := expectRowsAffected(res, 1); err != nil {
		return 0, err
	}
	if err := insertFileEvent(ctx, tx, rec.FileId, status, model.FILE_STATUS_WAIT, "", "content changed"); err != nil {
		return 0, err
	}
	return DISCOVER_CHANGED, tx.Commit()
}

func (r *fileRecordRepository) Insert(ctx context.Context, rec *model.FileRecord) error {
	tx, err := r.db.D.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := insertFileRecord(ctx, tx, rec); err != nil {
		return err
	}
	if err := insertFileEvent(ctx, tx, rec.FileId, "", rec.Status, "", "created"); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *fileRecordRepository) Get(ctx context.Context, fileId string) (*model.FileRecord, error) {
	row := r.db.D.QueryRowContext(ctx,
		"SELECT "+fileRecordColumns+" FROM file_records WHERE file_id = ?", fileId)
	rec, err := scanFileRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrDoesNotExist
		}
		return nil, fmt.Errorf("could not get file record %s: %w", fileId, err)
	}
	return rec, nil
}

func (r *fileRecordRepository) queryRecords(ctx context.Context, q string, args ...any) ([]model.FileRecord, error) {
	rows, err := r.db.D.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []model.FileRecord{}
	for rows.Next() {
		rec, err := scanFileRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *fileRecordRepository) List(ctx context.Context, filter FileRecordFilter) ([]model.FileRecord, int64, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.SourceId != "" {
		where = append(where, "source_id = ?")
		args = append(args, filter.SourceId)
	}
	if filter.SourceType != "" {
		where = append(where, "source_type = ?")
		args = append(args, filter.SourceType)
	}
	if filter.NameLike != "" {
		where = append(where, "file_name LIKE ?")
		args = append(args, "%"+filter.NameLike+"%")
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	err := r.db.D.QueryRowContext(ctx, "SELECT COUNT(*) FROM file_records"+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("could not count file records: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	q := "SELECT " + fileRecordColumns + " FROM file_records" + whereClause +
		" ORDER BY created_at DESC, file_id LIMIT ? OFFSET ?"
	records, err := r.queryRecords(ctx, q, append(args, limit, max(filter.Offset, 0))...)
	if err != nil {
		return nil, 0, fmt.Errorf("could not list file records: %w", err)
	}
	return records, total, nil
}

func (r *fileRecordRepository) ListClaimable(ctx context.Context, fileTypes []string, limit int) ([]model.FileRecord, error) {
	if len(fileTypes) == 0 {
		return []model.FileRecord{}, nil
	}
	args := []any{model.FILE_STATUS_WAIT, model.FILE_STATUS_RETRYING}
	for _, ft := range fileTypes {
		args = append(args, ft)
	}
	args = append(args, limit)
	q := "SELECT " + fileRecordColumns + ` FROM file_records
	WHERE status IN (?, ?) AND source_tombstoned = 0 AND file_type IN (` + database.Placeholders(len(fileTypes)) + `)
	ORDER BY updated_at, file_id LIMIT ?`
	records, err := r.queryRecords(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list claimable file records: %w", err)
	}
	return records, nil
}

func (r *fileRecordRepository) Claim(ctx context.Context, fileId string, processor string) (bool, error) {
	tx, err := r.db.D.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	from, err := currentStatus(ctx, tx, fileId)
	if err != nil {
		if errors.Is(err, database.ErrDoesNotExist) {
			return false, nil
		}
		return false, err
	}
	if !from.IsClaimable() {
		return false, nil
	}
	now := database.ToTimeStr(time.Now())
	res, err := tx.ExecContext(ctx,
		`UPDATE file_records SET status = ?, started_at = ?, finished_at = NULL, updated_at = ?
		WHERE file_id = ? AND status = ? AND source_tombstoned = 0`,
		model.FILE_STATUS_PROCESSING, now, now, fileId, from)
	if err != nil {
		return false, fmt.Errorf("could not claim %s: %w", fileId, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n != 1 {
		return false, nil
	}
	if err := insertFileEvent(ctx, tx, fileId, from, model.FILE_STATUS_PROCESSING, processor, "claimed"); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (r *fileRecordRepository) Transition(ctx context.Context, fileId string, from model.FileStatus, to model.FileStatus, processor string, message string) error {
	if !model.CanTransition(from, to) {
		return fmt.Errorf("illegal transition %s -> %s: %w", from, to, ErrStatusConflict)
	}
	tx, err := r.db.D.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	current, err := currentStatus(ctx, tx, fileId)
	if err != nil {
		return err
	}
	if current != from {
		return fmt.Errorf("%s is %s, expected %s: %w", fileId, current, from, ErrStatusConflict)
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE file_records SET status = ?, updated_at = ? WHERE file_id = ? AND status = ?",
		to, database.ToTimeStr(time.Now()), fileId, from)
	if err != nil {
		return fmt.Errorf("could not update status %s for %s: %w", to, fileId, err)
	}
	if err := expectRowsAffected(res, 1); err != nil {
		return err
	}
	if err := insertFileEvent(ctx, tx, fileId, from, to, processor, message); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *fileRecordRepository) Complete(ctx context.Context, fileId string, processor string, derived []model.FileRecord) error {
	tx, err := r.db.D.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status model.FileStatus
	var processorsJson string
	err = tx.QueryRowContext(ctx,
		"SELECT status, processors FROM file_records WHERE file_id = ?", fileId).Scan(&status, &processorsJson)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrDoesNotExist
		}
		return fmt.Errorf("could not get file record %s: %w", fileId, err)
	}
	if status != model.FILE_STATUS_PROCESSING {
		return fmt.Errorf("%s is %s, expected %s: %w", fileId, status, model.FILE_STATUS_PROCESSING, ErrStatusConflict)
	}

	// derived records go in first so a parent never shows success without them
	for i := range derived {
		d := derived[i]
		if err := insertFileRecord(ctx, tx, &d); err != nil {
			return fmt.Errorf("could not insert derived record for %s: %w", fileId, err)
		}
		if err := insertFileEvent(ctx, tx, d.FileId, "", d.Status, processor, "derived from "+fileId); err != nil {
			return err
		}
	}

	processors := []string{}
	if err := json.Unmarshal([]byte(processorsJson), &processors); err != nil {
		return fmt.Errorf("could not decode processors of %s: %w", fileId, err)
	}
	if !slices.Contains(processors, processor) {
		processors = append(processors, processor)
	}
	updatedJson, err := json.Marshal(processors)
	if err != nil {
		return err
	}
	now := database.ToTimeStr(time.Now())
	res, err := tx.ExecContext(ctx,
		`UPDATE file_records SET status = ?, processors = ?, error_message = NULL, finished_at = ?, updated_at = ?
		WHERE file_id = ? AND status = ?`,
		model.FILE_STATUS_SUCCESS, string(updatedJson), now, now, fileId, model.FILE_STATUS_PROCESSING)
	if err != nil {
		return fmt.Errorf("could not complete %s: %w", fileId, err)
	}
	if err := expectRowsAffected(res, 1); err != nil {
		return err
	}
	if err := insertFileEvent(ctx, tx, fileId, status, model.FILE_STATUS_SUCCESS, processor, ""); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *fileRecordRepository) Fail(ctx context.Context, fileId string, processor string, message string) error {
	tx, err := r.db.D.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	status, err := currentStatus(ctx, tx, fileId)
	if err != nil {
		return err
	}
	if !status.IsInFlight() {
		return fmt.Errorf("%s is %s and cannot fail: %w", fileId, status, ErrStatusConflict)
	}
	now := database.ToTimeStr(time.Now())
	res, err := tx.ExecContext(ctx,
		`UPDATE file_records SET status = ?, error_message = ?, finished_at = ?, updated_at = ?
		WHERE file_id = ? AND status = ?`,
		model.FILE_STATUS_FAILED, message, now, now, fileId, status)
	if err != nil {
		return fmt.Errorf("could not mark %s as failed: %w", fileId, err)
	}
	if err := expectRowsAffected(res, 1); err != nil {
		return err
	}
	if err := insertFileEvent(ctx, tx, fileId, status, model.FILE_STATUS_FAILED, processor, message); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *fileRecordRepository) Reprocess(ctx context.Context, fileId string) (model.FileStatus, error) {
	tx, err := r.db.D.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	status, err := currentStatus(ctx, tx, fileId)
	if err != nil {
		return "", err
	}
	var tombstoned int
	err = tx.QueryRowContext(ctx, "SELECT source_tombstoned FROM file_records WHERE file_id = ?", fileId).Scan(&tombstoned)
	if err != nil {
		return "", fmt.Errorf("could not get source of %s: %w", fileId, err)
	}
	if tombstoned == 1 {
		return status, ErrSourceDeleted
	}
	now := database.ToTimeStr(time.Now())
	switch status {
	case model.FILE_STATUS_FAILED:
		_, err = tx.ExecContext(ctx,
			"UPDATE file_records SET status = ?, updated_at = ? WHERE file_id = ?",
			model.FILE_STATUS_RETRYING, now, fileId)
		if err != nil {
			return "", fmt.Errorf("could not mark %s for retry: %w", fileId, err)
		}
		if err := insertFileEvent(ctx, tx, fileId, status, model.FILE_STATUS_RETRYING, "", "reprocess requested"); err != nil {
			return "", err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE file_records SET status = ?, error_message = NULL, retry_count = retry_count + 1,
			started_at = NULL, finished_at = NULL, updated_at = ? WHERE file_id = ?`,
			model.FILE_STATUS_WAIT, now, fileId)
		if err != nil {
			return "", fmt.Errorf("could not requeue %s: %w", fileId, err)
		}
		if err := insertFileEvent(ctx, tx, fileId, model.FILE_STATUS_RETRYING, model.FILE_STATUS_WAIT, "", "requeued"); err != nil {
			return "", err
		}
	case model.FILE_STATUS_WAIT, model.FILE_STATUS_RETRYING:
		_, err = tx.ExecContext(ctx,
			"UPDATE file_records SET status = ?, error_message = NULL, updated_at = ? WHERE file_id = ?",
			model.FILE_STATUS_WAIT, now, fileId)
		if err != nil {
			return "", fmt.Errorf("could not requeue %s: %w", fileId, err)
		}
		if err := insertFileEvent(ctx, tx, fileId, status, model.FILE_STATUS_WAIT, "", "requeued"); err != nil {
			return "", err
		}
	default:
		return status, ErrNotEligible
	}
	return model.FILE_STATUS_WAIT, tx.Commit()
}

func (r *fileRecordRepository) DeleteMany(ctx context.Context, fileIds []string) (int64, error) {
	if len(fileIds) == 0 {
		return 0, nil
	}
	tx, err := r.db.D.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, "DELETE FROM file_records WHERE file_id = ?")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	var deleted int64
	for _, id := range fileIds {
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("could not delete file record %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		deleted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	L.Debug(fmt.Sprintf("db: deleted %d of %d file records", deleted, len(fileIds)))
	return deleted, nil
}

func (r *fileRecordRepository) CountByStatus(ctx context.Context) (map[model.FileStatus]int64, error) {
	rows, err := r.db.D.QueryContext(ctx, "SELECT status, COUNT(*) FROM file_records GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("could not count file records by status: %w", err)
	}
	defer rows.Close()
	counts := map[model.FileStatus]int64{}
	for _, st := range model.AllFileStatuses {
		counts[st] = 0
	}
	for rows.Next() {
		var st model.FileStatus
		var n int64
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

func (r *fileRecordRepository) CountQueued(ctx context.Context) (int64, error) {
	args := []any{model.FILE_STATUS_WAIT, model.FILE_STATUS_RETRYING}
	for _, st := range model.InFlightStatuses {
		args = append(args, st)
	}
	var n int64
	err := r.db.D.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM file_records
		WHERE (status IN (?, ?) AND source_tombstoned = 0) OR status IN (`+database.Placeholders(len(model.InFlightStatuses))+`)`,
		args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("could not count queued file records: %w", err)
	}
	return n, nil
}

func (r *fileRecordRepository) CountBySourceType(ctx context.Context) (map[model.SourceType]int64, error) {
	rows, err := r.db.D.QueryContext(ctx, "SELECT source_type, COUNT(*) FROM file_records GROUP BY source_type")
	if err != nil {
		return nil, fmt.Errorf("could not count file records by source type: %w", err)
	}
	defer rows.Close()
	counts := map[model.SourceType]int64{}
	for rows.Next() {
		var st model.SourceType
		var n int64
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

func (r *fileRecordRepository) CountBySource(ctx context.Context, sourceId string) (int64, error) {
	var n int64
	err := r.db.D.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM file_records WHERE source_id = ? AND source_tombstoned = 0", sourceId).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("could not count file records of %s: %w", sourceId, err)
	}
	return n, nil
}

func (r *fileRecordRepository) Events(ctx context.Context, fileId string) ([]model.FileEvent, error) {
	rows, err := r.db.D.QueryContext(ctx,
		`SELECT id, file_id, from_status, to_status, processor, message, at
		FROM file_events WHERE file_id = ? ORDER BY id`, fileId)
	if err != nil {
		return nil, fmt.Errorf("could not list events of %s: %w", fileId, err)
	}
	defer rows.Close()
	events := []model.FileEvent{}
	for rows.Next() {
		var e model.FileEvent
		var from, processor, message sql.NullString
		var at string
		if err := rows.Scan(&e.Id, &e.FileId, &from, &e.ToStatus, &processor, &message, &at); err != nil {
			return nil, err
		}
		e.FromStatus = model.FileStatus(from.String)
		e.Processor = processor.String
		e.Message = message.String
		e.At = database.FromTimeStr(at)
		events = append(events, e)
	}
	return events, rows.Err()
}
