// Package scheduler polls the import-run ledger for pending tasks and runs
// them through the import engine with bounded worker concurrency.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/graph-import/internal/fileinput"
	"github.com/graph-import/internal/importer"
	"github.com/graph-import/internal/repository"
	"github.com/graph-import/internal/storage"
	"github.com/graph-import/pkg/model"
	"github.com/graph-import/pkg/utils"
)

// TaskProcessor defines the interface for processing one import task.
type TaskProcessor interface {
	// Process runs a single task to completion.
	Process(ctx context.Context, task *model.ImportTask) error
}

// ImportProcessor downloads a task's bundle, runs the importer and records
// the outcome in the ledger.
type ImportProcessor struct {
	store     storage.Storage
	tasks     repository.TaskRepository
	summaries repository.SummaryRepository
	dataDir   string
	opts      importer.Options
	logger    utils.Logger
}

// NewImportProcessor creates a processor.
func NewImportProcessor(
	store storage.Storage,
	tasks repository.TaskRepository,
	summaries repository.SummaryRepository,
	dataDir string,
	opts importer.Options,
	logger utils.Logger,
) *ImportProcessor {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	return &ImportProcessor{
		store:     store,
		tasks:     tasks,
		summaries: summaries,
		dataDir:   dataDir,
		opts:      opts,
		logger:    logger,
	}
}

// Process implements TaskProcessor.
func (p *ImportProcessor) Process(ctx context.Context, task *model.ImportTask) error {
	logger := p.logger.WithField("run", task.RunUUID)

	workDir := filepath.Join(p.dataDir, task.RunUUID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return p.fail(ctx, task, fmt.Errorf("failed to create work dir: %w", err))
	}
	defer os.RemoveAll(workDir)

	count, err := p.store.FetchBundle(ctx, task.SourcePath, workDir)
	if err != nil {
		return p.fail(ctx, task, fmt.Errorf("failed to fetch bundle: %w", err))
	}
	logger.Info("fetched %d bundle files from %s", count, task.SourcePath)

	input, err := fileinput.NewCSVInput(workDir)
	if err != nil {
		return p.fail(ctx, task, err)
	}

	opts := p.opts
	opts.Logger = logger
	imp := importer.New(input, opts)
	store, summary, runErr := imp.Run(ctx)

	if p.summaries != nil {
		if err := p.summaries.SaveSummary(ctx, summary); err != nil {
			logger.Error("failed to save summary: %v", err)
		}
	}

	if runErr != nil {
		return p.fail(ctx, task, runErr)
	}

	status := model.ImportStatusCompleted
	if store.NodeCount() == 0 && store.RelationshipCount() == 0 {
		status = model.ImportStatusEmpty
	}
	info := fmt.Sprintf("nodes=%d relationships=%d warnings=%d",
		summary.Counters.NodesImported, summary.Counters.RelationshipsImported, summary.Warnings)
	if err := p.tasks.UpdateStatusWithInfo(ctx, task.ID, status, info); err != nil {
		return err
	}
	logger.Info("import finished: %s", info)
	return nil
}

// fail marks the task failed and returns the original error.
func (p *ImportProcessor) fail(ctx context.Context, task *model.ImportTask, cause error) error {
	if err := p.tasks.UpdateStatusWithInfo(ctx, task.ID, model.ImportStatusFailed, cause.Error()); err != nil {
		p.logger.Error("failed to mark task %d failed: %v", task.ID, err)
	}
	return cause
}
