// Package scheduler provides run scheduling and worker pool management.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/eqsat/eqsat/internal/scheduler/source"
	"github.com/eqsat/eqsat/pkg/config"
	"github.com/eqsat/eqsat/pkg/model"
	"github.com/eqsat/eqsat/pkg/utils"
)

// Task represents a run request queued for processing.
type Task struct {
	RunID    string
	PresetId string
	Options  model.Options
	Priority int // Higher value = higher priority
}

// TaskProcessor defines the interface for processing a run.
type TaskProcessor interface {
	// Process runs one task to completion (or failure) and persists the
	// outcome.
	Process(ctx context.Context, task *Task) error
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	PollInterval  time.Duration // How often to poll for new tasks
	WorkerCount   int           // Number of concurrent workers
	PrioritySlots int           // Reserved slots for high priority tasks
	TaskBatchSize int           // Max tasks to fetch per poll
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		PollInterval:  2 * time.Second,
		WorkerCount:   5,
		PrioritySlots: 2,
		TaskBatchSize: 10,
	}
}

// FromConfig creates scheduler config from application config.
func FromConfig(cfg *config.SchedulerConfig) *SchedulerConfig {
	return &SchedulerConfig{
		PollInterval:  time.Duration(cfg.PollInterval) * time.Second,
		WorkerCount:   cfg.WorkerCount,
		PrioritySlots: cfg.PrioritySlots,
		TaskBatchSize: cfg.TaskBatchSize,
	}
}

// Scheduler manages run scheduling and worker pool.
type Scheduler struct {
	config    *SchedulerConfig
	processor TaskProcessor
	logger    utils.Logger

	// Source-based task fetching (Strategy Pattern)
	aggregator *source.Aggregator

	workerPool chan struct{}  // Semaphore for worker count
	taskQueue  chan *Task     // Task queue
	wg         sync.WaitGroup // Wait group for workers

	running bool
	stopCh  chan struct{}
}

// New creates a new Scheduler with source aggregator.
func New(config *SchedulerConfig, aggregator *source.Aggregator, processor TaskProcessor, logger utils.Logger) *Scheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &Scheduler{
		config:     config,
		aggregator: aggregator,
		processor:  processor,
		logger:     logger,
		workerPool: make(chan struct{}, config.WorkerCount),
		taskQueue:  make(chan *Task, config.TaskBatchSize*2),
		stopCh:     make(chan struct{}),
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler with %d workers", s.config.WorkerCount)

	s.running = true

	// Fill the worker semaphore with one token per worker
	for i := 0; i < s.config.WorkerCount; i++ {
		s.workerPool <- struct{}{}
	}

	// Start the aggregator
	if err := s.aggregator.Start(ctx); err != nil {
		return err
	}

	// Start the source-based event loop
	go s.sourceEventLoop(ctx)

	// Start the task processing loop
	go s.processLoop(ctx)

	return nil
}

// Stop stops the scheduler gracefully.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler...")
	s.running = false
	close(s.stopCh)

	// Wait for all workers to complete
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// shouldAcceptTask determines if a task should be accepted based on priority.
// The priority-slot reservation and nack-on-full-queue behavior below is
// generic worker-pool backpressure; it has no dependency on what a Task
// actually represents.
func (s *Scheduler) shouldAcceptTask(task *Task) bool {
	activeWorkers := s.config.WorkerCount - len(s.workerPool)
	reservedSlots := s.config.WorkerCount - s.config.PrioritySlots

	// High priority tasks can always be accepted if there's capacity
	if task.Priority > 0 {
		return activeWorkers < s.config.WorkerCount
	}

	// Normal priority tasks can only use non-reserved slots
	return activeWorkers < reservedSlots
}

// processLoop processes queued tasks.
func (s *Scheduler) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case task := <-s.taskQueue:
			// Acquire a worker slot
			select {
			case <-s.workerPool:
				s.wg.Add(1)
				go s.processTask(ctx, task)
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			}
		}
	}
}

// processTask processes a single task.
func (s *Scheduler) processTask(ctx context.Context, task *Task) {
	defer func() {
		s.workerPool <- struct{}{} // Release worker slot
		s.wg.Done()
	}()

	s.logger.Info("Processing run %s (preset: %s)", task.RunID, task.PresetId)

	startTime := time.Now()
	err := s.processor.Process(ctx, task)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Run %s failed after %v: %v", task.RunID, duration, err)
		return
	}

	s.logger.Info("Run %s completed successfully in %v", task.RunID, duration)
}

// sourceEventLoop receives task events from the aggregator and queues them for processing.
func (s *Scheduler) sourceEventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case event, ok := <-s.aggregator.Tasks():
			if !ok {
				s.logger.Info("Aggregator channel closed")
				return
			}

			task := s.convertEventToTask(event)

			if !s.shouldAcceptTask(task) {
				s.logger.Debug("Skipping run %s due to priority constraints", task.RunID)
				continue
			}

			select {
			case s.taskQueue <- task:
				s.logger.Info("Queued run %s from source %s/%s", task.RunID, event.SourceType, event.SourceName)
			default:
				// Queue full, nack the event so its source records the rejection
				s.logger.Warn("Task queue full, nacking run %s", task.RunID)
				if err := s.aggregator.Nack(ctx, event, "task queue full"); err != nil {
					s.logger.Error("Failed to nack event: %v", err)
				}
			}
		}
	}
}

// convertEventToTask converts a source.TaskEvent to a scheduler.Task.
func (s *Scheduler) convertEventToTask(event *source.TaskEvent) *Task {
	run := event.Run
	return &Task{
		RunID:    run.ID,
		PresetId: run.PresetId,
		Options:  run.Options,
		Priority: event.Priority,
	}
}

// Stats returns current scheduler statistics.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		ActiveWorkers: s.config.WorkerCount - len(s.workerPool),
		TotalWorkers:  s.config.WorkerCount,
		QueuedTasks:   len(s.taskQueue),
		Running:       s.running,
	}
}

// SchedulerStats holds scheduler statistics.
type SchedulerStats struct {
	ActiveWorkers int  `json:"active_workers"`
	TotalWorkers  int  `json:"total_workers"`
	QueuedTasks   int  `json:"queued_tasks"`
	Running       bool `json:"running"`
}
