package ingestion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// Runner performs one import
type Runner interface {
	Run(ctx context.Context) (models.ImportResult, error)
}

// Scheduler triggers imports on an interval and on demand, and remembers the
// outcome of the latest attempt
type Scheduler struct {
	runner   Runner
	interval time.Duration
	now      func() time.Time

	mu   sync.RWMutex
	last models.LastUpdate

	triggerChan chan struct{}
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewScheduler(runner Runner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:      runner,
		interval:    interval,
		now:         time.Now,
		triggerChan: make(chan struct{}, 1),
		stopChan:    make(chan struct{}),
	}
}

// Start launches the background loop. With a zero interval only Trigger
// starts imports.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
		log.Info().Dur("interval", s.interval).Msg("Automatic import enabled")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-tick:
			s.runLogged(ctx)
		case <-s.triggerChan:
			s.runLogged(ctx)
		}
	}
}

func (s *Scheduler) runLogged(ctx context.Context) {
	if _, err := s.RunNow(ctx); err != nil && !errors.Is(err, ErrImportInProgress) {
		log.Error().Err(err).Msg("Scheduled import failed")
	}
}

// Trigger asks the loop for an import without waiting for it
func (s *Scheduler) Trigger() {
	select {
	case s.triggerChan <- struct{}{}:
	default:
	}
}

// RunNow imports synchronously and records the outcome. A rejected
// concurrent request leaves the recorded state alone.
func (s *Scheduler) RunNow(ctx context.Context) (models.ImportResult, error) {
	s.mu.Lock()
	if s.last.InProgress {
		s.mu.Unlock()
		return models.ImportResult{}, ErrImportInProgress
	}
	s.last.InProgress = true
	s.mu.Unlock()

	result, err := s.runner.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last.InProgress = false
	switch {
	case errors.Is(err, ErrImportInProgress):
	case err != nil:
		s.last.Err = err.Error()
	default:
		s.last.Err = ""
		s.last.Time = result.FinishedAt
		if s.last.Time.IsZero() {
			s.last.Time = s.now()
		}
	}
	return result, err
}

// LastUpdate returns the recorded state
func (s *Scheduler) LastUpdate() models.LastUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Stop ends the loop and waits for a running import to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}
