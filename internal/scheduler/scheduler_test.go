package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/graph-import/internal/importer"
	"github.com/graph-import/internal/repository"
	"github.com/graph-import/internal/storage"
	"github.com/graph-import/pkg/model"
)

func setupRepo(t *testing.T) (repository.TaskRepository, repository.SummaryRepository) {
	t.Helper()
	// A file-backed database: the scheduler hits it from several
	// goroutines, and every pool connection must see the same data.
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.AutoMigrate(db))
	return repository.NewGormTaskRepository(db), repository.NewGormSummaryRepository(db)
}

// recordingProcessor tracks which tasks it saw.
type recordingProcessor struct {
	mu   sync.Mutex
	seen []string
	repo repository.TaskRepository
}

func (p *recordingProcessor) Process(ctx context.Context, task *model.ImportTask) error {
	p.mu.Lock()
	p.seen = append(p.seen, task.RunUUID)
	p.mu.Unlock()
	return p.repo.UpdateStatus(ctx, task.ID, model.ImportStatusCompleted)
}

func (p *recordingProcessor) seenTasks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

func TestScheduler_ProcessesPendingTasks(t *testing.T) {
	tasks, _ := setupRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, uuid := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, tasks.CreateTask(ctx, &model.ImportTask{
			RunUUID: uuid,
			Status:  model.ImportStatusPending,
		}))
	}

	processor := &recordingProcessor{repo: tasks}
	s := NewScheduler(&SchedulerConfig{
		PollInterval:  20 * time.Millisecond,
		WorkerCount:   2,
		TaskBatchSize: 10,
	}, tasks, processor, nil)

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(processor.seenTasks()) == 3
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	<-done

	assert.ElementsMatch(t, []string{"run-1", "run-2", "run-3"}, processor.seenTasks())

	// Every task left the pending state.
	pending, err := tasks.GetPendingTasks(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestScheduler_TasksProcessedOnce(t *testing.T) {
	tasks, _ := setupRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, tasks.CreateTask(ctx, &model.ImportTask{
		RunUUID: "run-1",
		Status:  model.ImportStatusPending,
	}))

	processor := &recordingProcessor{repo: tasks}
	s := NewScheduler(&SchedulerConfig{
		PollInterval:  10 * time.Millisecond,
		WorkerCount:   4,
		TaskBatchSize: 10,
	}, tasks, processor, nil)

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Give several poll cycles a chance to double-claim.
	time.Sleep(200 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{"run-1"}, processor.seenTasks(),
		"locking must prevent duplicate processing")
}

func TestImportProcessor_EndToEnd(t *testing.T) {
	tasks, summaries := setupRepo(t)
	ctx := context.Background()

	// Stage a bundle in local storage.
	storeDir := t.TempDir()
	store, err := storage.NewLocalStorage(storeDir)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(storeDir, "runs", "run-1"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(storeDir, "runs", "run-1", "nodes_Person_0.csv"),
		[]byte(":ID\n0\n1\n"), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(storeDir, "runs", "run-1", "relationships_KNOWS_0.csv"),
		[]byte(":START_ID,:END_ID\n0,1\n"), 0644))

	task := &model.ImportTask{
		RunUUID:    "run-1",
		SourcePath: "runs/run-1",
		Status:     model.ImportStatusPending,
	}
	require.NoError(t, tasks.CreateTask(ctx, task))

	p := NewImportProcessor(store, tasks, summaries, t.TempDir(), importer.DefaultOptions(), nil)
	require.NoError(t, p.Process(ctx, task))

	got, err := tasks.GetTaskByUUID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.ImportStatusCompleted, got.Status)
	assert.Contains(t, got.StatusInfo, "nodes=2")
	assert.Contains(t, got.StatusInfo, "relationships=1")
}

func TestImportProcessor_MissingBundleFails(t *testing.T) {
	tasks, summaries := setupRepo(t)
	ctx := context.Background()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	task := &model.ImportTask{
		RunUUID:    "run-x",
		SourcePath: "runs/ghost",
		Status:     model.ImportStatusPending,
	}
	require.NoError(t, tasks.CreateTask(ctx, task))

	p := NewImportProcessor(store, tasks, summaries, t.TempDir(), importer.DefaultOptions(), nil)
	require.Error(t, p.Process(ctx, task))

	got, err := tasks.GetTaskByUUID(ctx, "run-x")
	require.NoError(t, err)
	assert.Equal(t, model.ImportStatusFailed, got.Status)
	assert.NotEmpty(t, got.StatusInfo)
}
