package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/ynkmodelo/backup/internal/backup"
	"github.com/ynkmodelo/backup/internal/logger"
)

// Scheduler runs automatic backups on a cron expression and prunes old
// artifacts after each run.
type Scheduler struct {
	engine   *backup.Engine
	keepLast int
	cron     *cron.Cron
	log      logger.Logger

	mu      sync.Mutex
	running bool
}

func New(engine *backup.Engine, keepLast int, log logger.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		keepLast: keepLast,
		cron:     cron.New(),
		log:      log,
	}
}

// Start registers the backup job and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("schedule backups %q: %w", schedule, err)
	}
	s.cron.Start()
	s.running = true
	s.log.Info("backup scheduler started", "schedule", schedule, "keepLast", s.keepLast)
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.log.Info("backup scheduler stopped")
}

func (s *Scheduler) run() {
	rec, err := s.engine.Create(context.Background(), "cron")
	if err != nil {
		s.log.Error("scheduled backup failed", "error", err.Error())
		return
	}
	s.log.Info("scheduled backup created", "id", rec.ID)

	pruned, err := s.engine.Prune(s.keepLast)
	if err != nil {
		s.log.Warn("retention pruning failed", "error", err.Error())
		return
	}
	if pruned > 0 {
		s.log.Info("old backups pruned", "count", pruned)
	}
}
