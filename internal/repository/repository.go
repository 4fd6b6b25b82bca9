// Package repository persists the import-run ledger: queued import tasks
// and the summaries of finished runs.
package repository

import (
	"context"

	"github.com/graph-import/pkg/model"
)

// TaskRepository defines the interface for import task operations.
type TaskRepository interface {
	// GetPendingTasks retrieves tasks waiting to be imported.
	GetPendingTasks(ctx context.Context, limit int) ([]*model.ImportTask, error)

	// GetTaskByUUID retrieves a task by its run uuid.
	GetTaskByUUID(ctx context.Context, runUUID string) (*model.ImportTask, error)

	// CreateTask enqueues a new import task.
	CreateTask(ctx context.Context, task *model.ImportTask) error

	// UpdateStatus updates the lifecycle status of a task.
	UpdateStatus(ctx context.Context, id int64, status model.ImportStatus) error

	// UpdateStatusWithInfo updates the status with additional info.
	UpdateStatusWithInfo(ctx context.Context, id int64, status model.ImportStatus, info string) error

	// LockTaskForImport claims a pending task so no other worker runs it.
	LockTaskForImport(ctx context.Context, id int64) (bool, error)
}

// SummaryRepository defines the interface for import summary operations.
type SummaryRepository interface {
	// SaveSummary persists the summary of a finished run.
	SaveSummary(ctx context.Context, summary *model.ImportSummary) error

	// GetSummaryByUUID retrieves the summary of a run.
	GetSummaryByUUID(ctx context.Context, runUUID string) (*model.ImportSummary, error)
}
