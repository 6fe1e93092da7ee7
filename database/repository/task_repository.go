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

type TaskRepository interface {
	// Sync creates the task if missing. For an existing task only the name and
	// description are refreshed, operator changes to enabled and interval stay.
	Sync(ctx context.Context, task *model.TaskConfig) (*model.TaskConfig, error)
	GetTaskById(ctx context.Context, taskId string) (*model.TaskConfig, error)
	ListTasks(ctx context.Context) ([]model.TaskConfig, error)
	UpdateSchedule(ctx context.Context, taskId string, enabled bool, intervalSeconds int64, nextRun *time.Time) error
	MarkStarted(ctx context.Context, taskId string, startedAt time.Time, nextRun *time.Time) error
	MarkFinished(ctx context.Context, taskId string) error
	// RecoverInterrupted clears running flags and fails executions left
	// running by a process that did not shut down. It returns the number of
	// failed executions.
	RecoverInterrupted(ctx context.Context, at time.Time, message string) (int64, error)

	CreateExecution(ctx context.Context, exec *model.Execution) error
	FinishExecution(ctx context.Context, exec *model.Execution) error
	ListExecutions(ctx context.Context, taskId string, limit int) ([]model.Execution, error)
}

type taskRepository struct {
	db *database.DB
}

func NewTaskRepository(db *database.DB) TaskRepository {
	return taskRepository{db: db}
}

const taskColumns = `task_id, task_name, description, enabled, interval_seconds, running,
next_run, last_run, created_at, updated_at`

func scanTask(row rowScanner) (*model.TaskConfig, error) {
	var t model.TaskConfig
	var enabled, running int
	var nextRun, lastRun sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&t.TaskId, &t.TaskName, &t.Description, &enabled, &t.IntervalSeconds, &running,
		&nextRun, &lastRun, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.Enabled = enabled == 1
	t.Running = running == 1
	t.NextRun = database.FromNullTimeStr(nextRun)
	t.LastRun = database.FromNullTimeStr(lastRun)
	t.CreatedAt = database.FromTimeStr(createdAt)
	t.UpdatedAt = database.FromTimeStr(updatedAt)
	return &t, nil
}

func (t taskRepository) Sync(ctx context.Context, task *model.TaskConfig) (*model.TaskConfig, error) {
	now := database.ToTimeStr(time.Now())
	_, err := t.db.D.ExecContext(ctx,
		`INSERT INTO task_configs (task_id, task_name, description, enabled, interval_seconds, running, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET task_name = excluded.task_name, description = excluded.description,
		updated_at = excluded.updated_at`,
		task.TaskId, task.TaskName, task.Description, database.BoolToInt(task.Enabled), task.IntervalSeconds, now, now)
	if err != nil {
		return nil, fmt.Errorf("could not sync task %s: %w", task.TaskId, err)
	}
	return t.GetTaskById(ctx, task.TaskId)
}

func (t taskRepository) GetTaskById(ctx context.Context, taskId string) (*model.TaskConfig, error) {
	row := t.db.D.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM task_configs WHERE task_id = ?", taskId)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrDoesNotExist
		}
		return nil, fmt.Errorf("could not get task for id %s: %w", taskId, err)
	}
	return task, nil
}

func (t taskRepository) ListTasks(ctx context.Context) ([]model.TaskConfig, error) {
	rows, err := t.db.D.QueryContext(ctx, "SELECT "+taskColumns+" FROM task_configs ORDER BY task_id")
	if err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}
	defer rows.Close()
	tasks := []model.TaskConfig{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (t taskRepository) exec(ctx context.Context, taskId string, q string, args ...any) error {
	res, err := t.db.D.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("could not update task %s: %w", taskId, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not update task %s: %w", taskId, err)
	}
	if rowsAffected == 0 {
		return database.ErrDoesNotExist
	}
	if rowsAffected != 1 {
		return fmt.Errorf("was expecting %d row updates, but %d rows were updated", 1, rowsAffected)
	}
	return nil
}

func (t taskRepository) UpdateSchedule(ctx context.Context, taskId string, enabled bool, intervalSeconds int64, nextRun *time.Time) error {
	err := t.exec(ctx, taskId,
		"UPDATE task_configs SET enabled = ?, interval_seconds = ?, next_run = ?, updated_at = ? WHERE task_id = ?",
		database.BoolToInt(enabled), intervalSeconds, database.ToNullTimeStr(nextRun), database.ToTimeStr(time.Now()), taskId)
	if err != nil {
		return err
	}
	L.Debug(fmt.Sprintf("Updated task(%s) schedule: enabled=%t interval=%ds", taskId, enabled, intervalSeconds))
	return nil
}

func (t taskRepository) MarkStarted(ctx context.Context, taskId string, startedAt time.Time, nextRun *time.Time) error {
	return t.exec(ctx, taskId,
		"UPDATE task_configs SET running = 1, last_run = ?, next_run = ?, updated_at = ? WHERE task_id = ?",
		database.ToTimeStr(startedAt), database.ToNullTimeStr(nextRun), database.ToTimeStr(time.Now()), taskId)
}

func (t taskRepository) MarkFinished(ctx context.Context, taskId string) error {
	return t.exec(ctx, taskId,
		"UPDATE task_configs SET running = 0, updated_at = ? WHERE task_id = ?",
		database.ToTimeStr(time.Now()), taskId)
}

func (t taskRepository) RecoverInterrupted(ctx context.Context, at time.Time, message string) (int64, error) {
	tx, err := t.db.D.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := database.ToTimeStr(at)
	_, err = tx.ExecContext(ctx, "UPDATE task_configs SET running = 0, updated_at = ? WHERE running = 1", now)
	if err != nil {
		return 0, fmt.Errorf("could not clear running tasks: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE task_executions SET status = ?, error = ?, end_time = ? WHERE status = ?",
		model.EXECUTION_STATUS_FAILED, message, now, model.EXECUTION_STATUS_RUNNING)
	if err != nil {
		return 0, fmt.Errorf("could not fail interrupted executions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (t taskRepository) CreateExecution(ctx context.Context, exec *model.Execution) error {
	_, err := t.db.D.ExecContext(ctx,
		"INSERT INTO task_executions (id, task_id, start_time, status) VALUES (?, ?, ?, ?)",
		exec.Id, exec.TaskId, database.ToTimeStr(exec.StartTime), exec.Status)
	if err != nil {
		return fmt.Errorf("could not create execution for task %s: %w", exec.TaskId, err)
	}
	return nil
}

func (t taskRepository) FinishExecution(ctx context.Context, exec *model.Execution) error {
	var result sql.NullString
	if len(exec.Result) > 0 {
		result = sql.NullString{String: string(exec.Result), Valid: true}
	}
	res, err := t.db.D.ExecContext(ctx,
		`UPDATE task_executions SET end_time = ?, status = ?, result = ?, error = ?, execution_time_ms = ?
		WHERE id = ?`,
		database.ToNullTimeStr(exec.EndTime), exec.Status, result, database.ToNullString(exec.Error),
		exec.ExecutionTimeMs, exec.Id)
	if err != nil {
		return fmt.Errorf("could not finish execution %s: %w", exec.Id, err)
	}
	return expectRowsAffected(res, 1)
}

func (t taskRepository) ListExecutions(ctx context.Context, taskId string, limit int) ([]model.Execution, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := t.db.D.QueryContext(ctx,
		`SELECT id, task_id, start_time, end_time, status, result, error, execution_time_ms
		FROM task_executions WHERE task_id = ? ORDER BY start_time DESC LIMIT ?`, taskId, limit)
	if err != nil {
		return nil, fmt.Errorf("could not list executions of %s: %w", taskId, err)
	}
	defer rows.Close()
	executions := []model.Execution{}
	for rows.Next() {
		var e model.Execution
		var startTime string
		var endTime, result, errStr sql.NullString
		if err := rows.Scan(&e.Id, &e.TaskId, &startTime, &endTime, &e.Status, &result, &errStr, &e.ExecutionTimeMs); err != nil {
			return nil, err
		}
		e.StartTime = database.FromTimeStr(startTime)
		e.EndTime = database.FromNullTimeStr(endTime)
		if result.Valid {
			e.Result = []byte(result.String)
		}
		e.Error = errStr.String
		executions = append(executions, e)
	}
	return executions, rows.Err()
}
