package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/model"
)

// GormTaskRepository implements TaskRepository using GORM.
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GormTaskRepository.
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// GetPendingTasks retrieves tasks waiting to be imported.
func (r *GormTaskRepository) GetPendingTasks(ctx context.Context, limit int) ([]*model.ImportTask, error) {
	var records []ImportTaskRecord

	err := r.db.WithContext(ctx).
		Where("status = ?", model.ImportStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&records).Error

	if err != nil {
		return nil, fmt.Errorf("failed to query pending tasks: %w", err)
	}

	result := make([]*model.ImportTask, len(records))
	for i, rec := range records {
		result[i] = rec.ToModel()
	}
	return result, nil
}

// GetTaskByUUID retrieves a task by its run uuid.
func (r *GormTaskRepository) GetTaskByUUID(ctx context.Context, runUUID string) (*model.ImportTask, error) {
	var record ImportTaskRecord

	err := r.db.WithContext(ctx).Where("run_uuid = ?", runUUID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "task not found: %s", runUUID)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return record.ToModel(), nil
}

// CreateTask enqueues a new import task.
func (r *GormTaskRepository) CreateTask(ctx context.Context, task *model.ImportTask) error {
	record := FromModel(task)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	task.ID = record.ID
	return nil
}

// UpdateStatus updates the lifecycle status of a task.
func (r *GormTaskRepository) UpdateStatus(ctx context.Context, id int64, status model.ImportStatus) error {
	result := r.db.WithContext(ctx).
		Model(&ImportTaskRecord{}).
		Where("id = ?", id).
		Update("status", status)

	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "task not found: %d", id)
	}
	return nil
}

// UpdateStatusWithInfo updates the status with additional info.
func (r *GormTaskRepository) UpdateStatusWithInfo(ctx context.Context, id int64, status model.ImportStatus, info string) error {
	updates := map[string]interface{}{
		"status":      status,
		"status_info": info,
	}
	now := time.Now()
	switch status {
	case model.ImportStatusRunning:
		updates["begin_time"] = &now
	case model.ImportStatusCompleted, model.ImportStatusFailed, model.ImportStatusEmpty:
		updates["end_time"] = &now
	}

	result := r.db.WithContext(ctx).
		Model(&ImportTaskRecord{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "task not found: %d", id)
	}
	return nil
}

// LockTaskForImport claims a pending task using a row lock so concurrent
// workers never run the same task.
func (r *GormTaskRepository) LockTaskForImport(ctx context.Context, id int64) (bool, error) {
	locked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record ImportTaskRecord

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ?", id, model.ImportStatusPending).
			First(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // already claimed
			}
			return err
		}

		if err := tx.Model(&ImportTaskRecord{}).
			Where("id = ?", id).
			Update("status", model.ImportStatusRunning).Error; err != nil {
			return err
		}
		locked = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to lock task: %w", err)
	}
	return locked, nil
}

// GormSummaryRepository implements SummaryRepository using GORM.
type GormSummaryRepository struct {
	db *gorm.DB
}

// NewGormSummaryRepository creates a new GormSummaryRepository.
func NewGormSummaryRepository(db *gorm.DB) *GormSummaryRepository {
	return &GormSummaryRepository{db: db}
}

// SaveSummary persists the summary of a finished run.
func (r *GormSummaryRepository) SaveSummary(ctx context.Context, summary *model.ImportSummary) error {
	counters, err := json.Marshal(summary.Counters)
	if err != nil {
		return fmt.Errorf("failed to marshal counters: %w", err)
	}
	phases, err := json.Marshal(summary.Phases)
	if err != nil {
		return fmt.Errorf("failed to marshal phases: %w", err)
	}

	record := &ImportSummaryRecord{
		RunUUID:  summary.RunUUID,
		Mode:     summary.Mode.String(),
		Counters: JSONField(counters),
		Phases:   JSONField(phases),
		TotalMS:  summary.TotalDuration.Milliseconds(),
		Warnings: summary.Warnings,
		Errors:   summary.Errors,
		Error:    summary.Error,
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// GetSummaryByUUID retrieves the summary of a run.
func (r *GormSummaryRepository) GetSummaryByUUID(ctx context.Context, runUUID string) (*model.ImportSummary, error) {
	var record ImportSummaryRecord

	err := r.db.WithContext(ctx).Where("run_uuid = ?", runUUID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "summary not found: %s", runUUID)
		}
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	summary := &model.ImportSummary{
		RunUUID:       record.RunUUID,
		TotalDuration: time.Duration(record.TotalMS) * time.Millisecond,
		Warnings:      record.Warnings,
		Errors:        record.Errors,
		Error:         record.Error,
		ImportedAt:    record.SavedAt,
	}
	if record.Mode == model.ModeFixed.String() {
		summary.Mode = model.ModeFixed
	}
	if len(record.Counters) > 0 {
		if err := json.Unmarshal(record.Counters, &summary.Counters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal counters: %w", err)
		}
	}
	if len(record.Phases) > 0 {
		if err := json.Unmarshal(record.Phases, &summary.Phases); err != nil {
			return nil, fmt.Errorf("failed to unmarshal phases: %w", err)
		}
	}
	return summary, nil
}

// AutoMigrate creates the ledger tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ImportTaskRecord{}, &ImportSummaryRecord{})
}
