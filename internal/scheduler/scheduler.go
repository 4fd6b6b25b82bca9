package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/graph-import/internal/repository"
	"github.com/graph-import/pkg/config"
	"github.com/graph-import/pkg/model"
	"github.com/graph-import/pkg/utils"
)

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	PollInterval  time.Duration // how often to poll for new tasks
	WorkerCount   int           // number of concurrent import workers
	TaskBatchSize int           // max tasks to fetch per poll
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		PollInterval:  2 * time.Second,
		WorkerCount:   2,
		TaskBatchSize: 10,
	}
}

// FromConfig creates scheduler config from application config.
func FromConfig(cfg *config.SchedulerConfig) *SchedulerConfig {
	return &SchedulerConfig{
		PollInterval:  time.Duration(cfg.PollInterval) * time.Second,
		WorkerCount:   cfg.WorkerCount,
		TaskBatchSize: cfg.TaskBatchSize,
	}
}

// Scheduler polls for pending import tasks and dispatches them to workers.
type Scheduler struct {
	cfg       *SchedulerConfig
	repo      repository.TaskRepository
	processor TaskProcessor
	logger    utils.Logger

	taskCh chan *model.ImportTask
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler.
func NewScheduler(cfg *SchedulerConfig, repo repository.TaskRepository, processor TaskProcessor, logger utils.Logger) *Scheduler {
	if cfg == nil {
		cfg = DefaultSchedulerConfig()
	}
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	return &Scheduler{
		cfg:       cfg,
		repo:      repo,
		processor: processor,
		logger:    logger,
		taskCh:    make(chan *model.ImportTask, cfg.WorkerCount*2),
	}
}

// Run starts the poll loop and workers, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler starting with %d workers, poll interval %s",
		s.cfg.WorkerCount, s.cfg.PollInterval)

	for i := 0; i < s.cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(s.taskCh)
			s.wg.Wait()
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll fetches pending tasks and enqueues those it can claim.
func (s *Scheduler) poll(ctx context.Context) {
	tasks, err := s.repo.GetPendingTasks(ctx, s.cfg.TaskBatchSize)
	if err != nil {
		s.logger.Error("failed to fetch pending tasks: %v", err)
		return
	}

	for _, task := range tasks {
		locked, err := s.repo.LockTaskForImport(ctx, task.ID)
		if err != nil {
			s.logger.Error("failed to lock task %d: %v", task.ID, err)
			continue
		}
		if !locked {
			continue // another worker claimed it
		}

		select {
		case s.taskCh <- task:
		case <-ctx.Done():
			return
		}
	}
}

// worker processes tasks until the channel drains.
func (s *Scheduler) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	logger := s.logger.WithField("worker", id)

	for task := range s.taskCh {
		logger.Info("processing import task %s", task.RunUUID)
		if err := s.processor.Process(ctx, task); err != nil {
			logger.Error("task %s failed: %v", task.RunUUID, err)
		}
	}
}
