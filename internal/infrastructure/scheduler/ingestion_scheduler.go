package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// IngestionSchedulerConfig tunes the document ingestion poller
type IngestionSchedulerConfig struct {
	// Enabled determines if the poller is active
	Enabled bool

	// PollInterval is how often pending documents are picked up
	PollInterval time.Duration

	// BatchSize is the maximum number of documents per poll
	BatchSize int

	// RunTimeout is the maximum time for a single batch
	RunTimeout time.Duration
}

// DefaultIngestionSchedulerConfig returns default configuration
func DefaultIngestionSchedulerConfig() IngestionSchedulerConfig {
	return IngestionSchedulerConfig{
		Enabled:      true,
		PollInterval: 10 * time.Second,
		BatchSize:    5,
		RunTimeout:   5 * time.Minute,
	}
}

// IngestionScheduler polls for pending knowledge documents and runs the
// ingestion pipeline on them. Uploads and crawls mark documents pending;
// this loop picks them up so API requests never block on embedding calls.
type IngestionScheduler struct {
	runner    IngestionRunner
	logger    *zap.Logger
	config    IngestionSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIngestionScheduler creates a new ingestion scheduler
func NewIngestionScheduler(
	runner IngestionRunner,
	logger *zap.Logger,
	config IngestionSchedulerConfig,
) *IngestionScheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = 10 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 5
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 5 * time.Minute
	}
	return &IngestionScheduler{
		runner: runner,
		logger: logger,
		config: config,
	}
}

// Start starts the ingestion poller
func (s *IngestionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Ingestion scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Ingestion scheduler started",
		zap.Duration("poll_interval", s.config.PollInterval),
		zap.Int("batch_size", s.config.BatchSize),
	)

	return nil
}

// Stop gracefully stops the poller
func (s *IngestionScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Ingestion scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Ingestion scheduler stop timed out")
		return ctx.Err()
	}
}

// runLoop polls for pending documents at the configured interval
func (s *IngestionScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Ingestion loop stopping")
			return
		case <-ticker.C:
			s.processBatch(ctx)
		}
	}
}

// processBatch runs one ingestion batch with a timeout
func (s *IngestionScheduler) processBatch(ctx context.Context) {
	batchCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	startTime := time.Now()
	processed, err := s.runner.ProcessPending(batchCtx, s.config.BatchSize)
	if err != nil {
		s.logger.Error("Ingestion batch failed",
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err),
		)
		return
	}

	if processed > 0 {
		s.logger.Info("Ingestion batch completed",
			zap.Duration("duration", time.Since(startTime)),
			zap.Int("processed", processed),
		)
	}
}

// TriggerImmediateBatch runs one ingestion batch outside the poll cycle
func (s *IngestionScheduler) TriggerImmediateBatch(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.processBatch(ctx)
	}()

	return nil
}

// IsRunning returns whether the poller is running
func (s *IngestionScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
