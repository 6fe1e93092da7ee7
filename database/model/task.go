package model

import (
	"encoding/json"
	L "filepipe/logger"
	"fmt"
	"time"
)

type ExecutionStatus string

const (
	EXECUTION_STATUS_RUNNING ExecutionStatus = "running"
	EXECUTION_STATUS_SUCCESS ExecutionStatus = "success"
	EXECUTION_STATUS_FAILED  ExecutionStatus = "failed"
)

const CREATE_TASK_CONFIGS_TABLE = `
CREATE TABLE IF NOT EXISTS task_configs (
task_id TEXT PRIMARY KEY,
task_name TEXT NOT NULL,
description TEXT NOT NULL DEFAULT '',
enabled INTEGER NOT NULL DEFAULT 0,
interval_seconds INTEGER NOT NULL CHECK(interval_seconds > 0),
running INTEGER NOT NULL DEFAULT 0,
next_run TEXT,
last_run TEXT,
created_at TEXT NOT NULL,
updated_at TEXT NOT NULL
);`

const CREATE_TASK_EXECUTIONS_TABLE = `
CREATE TABLE IF NOT EXISTS task_executions (
id TEXT PRIMARY KEY,
task_id TEXT NOT NULL,
start_time TEXT NOT NULL,
end_time TEXT,
status TEXT NOT NULL CHECK(status IN ('running', 'success', 'failed')),
result TEXT,
error TEXT,
execution_time_ms INTEGER NOT NULL DEFAULT 0,
FOREIGN KEY(task_id) REFERENCES task_configs(task_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_task_executions_task ON task_executions(task_id, start_time);`

// TaskConfig is the persisted schedule of a periodic job.
type TaskConfig struct {
	TaskId          string     `json:"task_id"`
	TaskName        string     `json:"task_name"`
	Description     string     `json:"description"`
	Enabled         bool       `json:"enabled"`
	IntervalSeconds int64      `json:"interval_seconds"`
	Running         bool       `json:"running"`
	NextRun         *time.Time `json:"next_run,omitempty"`
	LastRun         *time.Time `json:"last_run,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (t *TaskConfig) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

func (t *TaskConfig) String() string {
	next := "-"
	if t.NextRun != nil {
		next = t.NextRun.Local().Format(time.DateTime)
	}
	last := "-"
	if t.LastRun != nil {
		last = t.LastRun.Local().Format(time.DateTime)
	}
	return fmt.Sprintf("[Task]\n  Id: %s\n  Name: %s\n  Description: %s\n  Enabled: %t\n  Interval: %s\n  Running: %t\n  Last run: %s\n  Next run: %s\n",
		t.TaskId,
		t.TaskName,
		t.Description,
		t.Enabled,
		L.HumanReadableTime(t.Interval().Milliseconds()),
		t.Running,
		last,
		next)
}

// Execution is one run of a task.
type Execution struct {
	Id              string          `json:"id"`
	TaskId          string          `json:"task_id"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	Status          ExecutionStatus `json:"status"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
}
