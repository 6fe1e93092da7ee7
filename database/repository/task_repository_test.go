package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"filepipe/database"
	"filepipe/database/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	err = db.Init(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close(context.Background())
	})
	return db
}

func TestSyncTask(t *testing.T) {
	db := setupTestDB(t)
	taskRepo := NewTaskRepository(db)
	ctx := context.Background()

	t.Run("CreatesMissingTask", func(t *testing.T) {
		task, err := taskRepo.Sync(ctx, &model.TaskConfig{
			TaskId:          "file_scan",
			TaskName:        "File scan",
			Description:     "scan sources",
			Enabled:         false,
			IntervalSeconds: 300,
		})
		require.NoError(t, err)
		assert.Equal(t, "file_scan", task.TaskId)
		assert.False(t, task.Enabled)
		assert.Equal(t, 5*time.Minute, task.Interval())
		assert.Nil(t, task.NextRun)
	})

	t.Run("KeepsOperatorSchedule", func(t *testing.T) {
		err := taskRepo.UpdateSchedule(ctx, "file_scan", true, 60, nil)
		require.NoError(t, err)
		task, err := taskRepo.Sync(ctx, &model.TaskConfig{
			TaskId:          "file_scan",
			TaskName:        "Scan all sources",
			Description:     "renamed",
			Enabled:         false,
			IntervalSeconds: 300,
		})
		require.NoError(t, err)
		assert.Equal(t, "Scan all sources", task.TaskName)
		assert.Equal(t, "renamed", task.Description)
		assert.True(t, task.Enabled)
		assert.Equal(t, int64(60), task.IntervalSeconds)
	})

	t.Run("KeepsRunningFlag", func(t *testing.T) {
		require.NoError(t, taskRepo.MarkStarted(ctx, "file_scan", time.Now(), nil))
		task, err := taskRepo.Sync(ctx, &model.TaskConfig{TaskId: "file_scan", TaskName: "x", IntervalSeconds: 1})
		require.NoError(t, err)
		assert.True(t, task.Running)
		assert.NotNil(t, task.LastRun)
	})
}

func TestRecoverInterruptedTasks(t *testing.T) {
	db := setupTestDB(t)
	taskRepo := NewTaskRepository(db)
	ctx := context.Background()
	_, err := taskRepo.Sync(ctx, &model.TaskConfig{TaskId: "file_scan", TaskName: "File scan", IntervalSeconds: 300})
	require.NoError(t, err)

	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, taskRepo.MarkStarted(ctx, "file_scan", start, nil))
	stale := &model.Execution{Id: "stale", TaskId: "file_scan", StartTime: start, Status: model.EXECUTION_STATUS_RUNNING}
	require.NoError(t, taskRepo.CreateExecution(ctx, stale))
	end := start.Add(time.Second)
	done := &model.Execution{Id: "done", TaskId: "file_scan", StartTime: start.Add(-time.Hour), Status: model.EXECUTION_STATUS_RUNNING}
	require.NoError(t, taskRepo.CreateExecution(ctx, done))
	done.Status = model.EXECUTION_STATUS_SUCCESS
	done.EndTime = &end
	require.NoError(t, taskRepo.FinishExecution(ctx, done))

	n, err := taskRepo.RecoverInterrupted(ctx, start.Add(time.Minute), "interrupted")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	task, err := taskRepo.GetTaskById(ctx, "file_scan")
	require.NoError(t, err)
	assert.False(t, task.Running)

	execs, err := taskRepo.ListExecutions(ctx, "file_scan", 10)
	require.NoError(t, err)
	require.Len(t, execs, 2)
	assert.Equal(t, model.EXECUTION_STATUS_FAILED, execs[0].Status)
	assert.Equal(t, "interrupted", execs[0].Error)
	require.NotNil(t, execs[0].EndTime)
	assert.Equal(t, start.Add(time.Minute), *execs[0].EndTime)
	assert.Equal(t, model.EXECUTION_STATUS_SUCCESS, execs[1].Status)
}

func TestTaskScheduleUpdates(t *testing.T) {
	db := setupTestDB(t)
	taskRepo := NewTaskRepository(db)
	ctx := context.Background()

	t.Run("UnknownTask", func(t *testing.T) {
		_, err := taskRepo.GetTaskById(ctx, "nope")
		assert.ErrorIs(t, err, database.ErrDoesNotExist)
		err = taskRepo.UpdateSchedule(ctx, "nope", true, 10, nil)
		assert.ErrorIs(t, err, database.ErrDoesNotExist)
	})

	t.Run("StartAndFinish", func(t *testing.T) {
		_, err := taskRepo.Sync(ctx, &model.TaskConfig{TaskId: "t1", TaskName: "t1", IntervalSeconds: 10})
		require.NoError(t, err)
		started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		next := started.Add(10 * time.Second)
		require.NoError(t, taskRepo.MarkStarted(ctx, "t1", started, &next))

		task, err := taskRepo.GetTaskById(ctx, "t1")
		require.NoError(t, err)
		assert.True(t, task.Running)
		assert.True(t, started.Equal(*task.LastRun))
		assert.True(t, next.Equal(*task.NextRun))

		require.NoError(t, taskRepo.MarkFinished(ctx, "t1"))
		task, err = taskRepo.GetTaskById(ctx, "t1")
		require.NoError(t, err)
		assert.False(t, task.Running)
	})

	t.Run("InvalidInterval", func(t *testing.T) {
		err := taskRepo.UpdateSchedule(ctx, "t1", true, 0, nil)
		assert.Error(t, err)
	})

	t.Run("List", func(t *testing.T) {
		tasks, err := taskRepo.ListTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})
}

func TestExecutions(t *testing.T) {
	db := setupTestDB(t)
	taskRepo := NewTaskRepository(db)
	ctx := context.Background()
	_, err := taskRepo.Sync(ctx, &model.TaskConfig{TaskId: "file_scan", TaskName: "scan", IntervalSeconds: 300})
	require.NoError(t, err)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"e1", "e2", "e3"} {
		exec := &model.Execution{
			Id:        id,
			TaskId:    "file_scan",
			StartTime: base.Add(time.Duration(i) * time.Minute),
			Status:    model.EXECUTION_STATUS_RUNNING,
		}
		require.NoError(t, taskRepo.CreateExecution(ctx, exec))
	}

	end := base.Add(30 * time.Second)
	result, _ := json.Marshal(map[string]int{"scanned": 4})
	err = taskRepo.FinishExecution(ctx, &model.Execution{
		Id:              "e1",
		EndTime:         &end,
		Status:          model.EXECUTION_STATUS_SUCCESS,
		Result:          result,
		ExecutionTimeMs: 30000,
	})
	require.NoError(t, err)
	err = taskRepo.FinishExecution(ctx, &model.Execution{
		Id:      "e2",
		EndTime: &end,
		Status:  model.EXECUTION_STATUS_FAILED,
		Error:   "boom",
	})
	require.NoError(t, err)

	t.Run("NewestFirst", func(t *testing.T) {
		execs, err := taskRepo.ListExecutions(ctx, "file_scan", 0)
		require.NoError(t, err)
		require.Len(t, execs, 3)
		assert.Equal(t, "e3", execs[0].Id)
		assert.Equal(t, model.EXECUTION_STATUS_RUNNING, execs[0].Status)
		assert.Nil(t, execs[0].EndTime)
		assert.Equal(t, "boom", execs[1].Error)
		assert.JSONEq(t, `{"scanned":4}`, string(execs[2].Result))
		assert.Equal(t, int64(30000), execs[2].ExecutionTimeMs)
	})

	t.Run("Limit", func(t *testing.T) {
		execs, err := taskRepo.ListExecutions(ctx, "file_scan", 2)
		require.NoError(t, err)
		assert.Len(t, execs, 2)
	})

	t.Run("FinishUnknown", func(t *testing.T) {
		err := taskRepo.FinishExecution(ctx, &model.Execution{Id: "missing", Status: model.EXECUTION_STATUS_SUCCESS})
		assert.Error(t, err)
	})
}
