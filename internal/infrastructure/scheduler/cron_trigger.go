package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	// CronSpec is a daily cron expression of the form "MIN HOUR * * *"
	CronSpec string

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		CronSpec:      "0 2 * * *", // 2am
		CheckInterval: time.Minute,
	}
}

// CronTrigger fires the daily trial sweep at the configured time
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger

	hour   int
	minute int

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string // Track which date we last ran for
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(
	config CronTriggerConfig,
	scheduler *Scheduler,
	logger *zap.Logger,
) (*CronTrigger, error) {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}

	minute, hour, err := parseDailyCronSpec(config.CronSpec)
	if err != nil {
		return nil, err
	}

	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
		hour:      hour,
		minute:    minute,
	}, nil
}

// parseDailyCronSpec parses the "MIN HOUR * * *" subset of cron syntax.
// Only daily schedules are supported; the remaining fields must be "*".
func parseDailyCronSpec(spec string) (minute, hour int, err error) {
	fields := strings.Fields(spec)
	if len(fields) != 5 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCronSpec, spec)
	}

	minute, err = strconv.Atoi(fields[0])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidCronSpec, spec)
	}

	hour, err = strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidCronSpec, spec)
	}

	for _, f := range fields[2:] {
		if f != "*" {
			return 0, 0, fmt.Errorf("%w: only daily schedules are supported, got %q", ErrInvalidCronSpec, spec)
		}
	}

	return minute, hour, nil
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Trial sweep trigger started",
		zap.Int("hour", c.hour),
		zap.Int("minute", c.minute),
		zap.Duration("check_interval", c.config.CheckInterval),
	)

	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Trial sweep trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop checks periodically if it's time to run the sweep
func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger()
		}
	}
}

// checkAndTrigger fires the sweep when the scheduled time is reached
func (c *CronTrigger) checkAndTrigger() {
	now := time.Now()
	currentDate := now.Format("2006-01-02")

	// Skip if we already ran today
	c.mu.Lock()
	if c.lastRunDate == currentDate {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// Check if it's the right time
	if now.Hour() != c.hour || now.Minute() != c.minute {
		return
	}

	c.mu.Lock()
	c.lastRunDate = currentDate
	c.mu.Unlock()

	c.logger.Info("Triggering daily trial sweep")
	if err := c.scheduler.ScheduleTrialSweep(); err != nil {
		c.logger.Error("Failed to schedule trial sweep", zap.Error(err))
	}
}

// TriggerManualSweep queues a trial sweep immediately
func (c *CronTrigger) TriggerManualSweep() error {
	return c.scheduler.ScheduleTrialSweep()
}
