package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestGormTaskRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTaskRepository(db)
	ctx := context.Background()

	task := &model.ImportTask{
		RunUUID:    "run-1",
		SourcePath: "/data/run-1",
		Status:     model.ImportStatusPending,
	}
	require.NoError(t, repo.CreateTask(ctx, task))
	assert.NotZero(t, task.ID)

	got, err := repo.GetTaskByUUID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "/data/run-1", got.SourcePath)
	assert.Equal(t, model.ImportStatusPending, got.Status)
}

func TestGormTaskRepository_GetTaskByUUID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTaskRepository(db)

	_, err := repo.GetTaskByUUID(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetErrorCode(err))
}

func TestGormTaskRepository_GetPendingTasks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTaskRepository(db)
	ctx := context.Background()

	tasks, err := repo.GetPendingTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	for _, uuid := range []string{"a", "b", "c"} {
		require.NoError(t, repo.CreateTask(ctx, &model.ImportTask{
			RunUUID: uuid,
			Status:  model.ImportStatusPending,
		}))
	}
	require.NoError(t, repo.CreateTask(ctx, &model.ImportTask{
		RunUUID: "done",
		Status:  model.ImportStatusCompleted,
	}))

	tasks, err = repo.GetPendingTasks(ctx, 2)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].RunUUID, "oldest first")
}

func TestGormTaskRepository_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTaskRepository(db)
	ctx := context.Background()

	task := &model.ImportTask{RunUUID: "run-1", Status: model.ImportStatusPending}
	require.NoError(t, repo.CreateTask(ctx, task))

	require.NoError(t, repo.UpdateStatus(ctx, task.ID, model.ImportStatusRunning))
	got, err := repo.GetTaskByUUID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.ImportStatusRunning, got.Status)

	err = repo.UpdateStatus(ctx, 9999, model.ImportStatusRunning)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetErrorCode(err))
}

func TestGormTaskRepository_UpdateStatusWithInfo_Timestamps(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTaskRepository(db)
	ctx := context.Background()

	task := &model.ImportTask{RunUUID: "run-1", Status: model.ImportStatusPending}
	require.NoError(t, repo.CreateTask(ctx, task))

	require.NoError(t, repo.UpdateStatusWithInfo(ctx, task.ID, model.ImportStatusRunning, "picked up"))
	got, _ := repo.GetTaskByUUID(ctx, "run-1")
	require.NotNil(t, got.BeginTime)
	assert.Nil(t, got.EndTime)

	require.NoError(t, repo.UpdateStatusWithInfo(ctx, task.ID, model.ImportStatusCompleted, "ok"))
	got, _ = repo.GetTaskByUUID(ctx, "run-1")
	require.NotNil(t, got.EndTime)
	assert.Equal(t, "ok", got.StatusInfo)
}

func TestGormTaskRepository_LockTaskForImport(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTaskRepository(db)
	ctx := context.Background()

	task := &model.ImportTask{RunUUID: "run-1", Status: model.ImportStatusPending}
	require.NoError(t, repo.CreateTask(ctx, task))

	locked, err := repo.LockTaskForImport(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, locked)

	// Second claim must fail: the task is no longer pending.
	locked, err = repo.LockTaskForImport(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestGormSummaryRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSummaryRepository(db)
	ctx := context.Background()

	summary := &model.ImportSummary{
		RunUUID: "run-1",
		Mode:    model.ModeFixed,
		Counters: model.ImportCounters{
			NodesImported:         10,
			RelationshipsImported: 20,
			DanglingDropped:       1,
		},
		Phases:        []model.PhaseDuration{{Name: "nodes", Millis: 5}},
		TotalDuration: 1200 * time.Millisecond,
		Warnings:      1,
	}
	require.NoError(t, repo.SaveSummary(ctx, summary))

	got, err := repo.GetSummaryByUUID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.ModeFixed, got.Mode)
	assert.Equal(t, int64(10), got.Counters.NodesImported)
	assert.Equal(t, int64(20), got.Counters.RelationshipsImported)
	assert.Equal(t, int64(1200), got.TotalDuration.Milliseconds())
	require.Len(t, got.Phases, 1)
	assert.Equal(t, "nodes", got.Phases[0].Name)

	_, err = repo.GetSummaryByUUID(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetErrorCode(err))
}
