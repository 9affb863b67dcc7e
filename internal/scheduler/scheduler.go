package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Treework/internal/domain"
	"github.com/shaiso/Treework/internal/engine"
)

// Scheduler — планировщик, перезапускающий граф по расписанию.
type Scheduler struct {
	graph    *engine.Graph
	schedule *domain.Schedule
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// Config — конфигурация Scheduler.
type Config struct {
	Graph    *engine.Graph
	Schedule *domain.Schedule
	Logger   *slog.Logger

	// Interval — период проверки расписания (default: 1s).
	Interval time.Duration

	// RunTimeout — ограничение на один прогон графа (0 — без лимита).
	RunTimeout time.Duration
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}

	return &Scheduler{
		graph:    cfg.Graph,
		schedule: cfg.Schedule,
		logger:   cfg.Logger,
		interval: interval,
		timeout:  cfg.RunTimeout,
	}
}

// Start запускает цикл планировщика и блокируется до отмены контекста.
//
// Первый запуск происходит немедленно, далее — по расписанию.
func (s *Scheduler) Start(ctx context.Context) error {
	now := time.Now()
	if s.schedule.NextDueAt == nil {
		s.schedule.NextDueAt = &now
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.Tick(ctx); err != nil {
			s.logger.Error("scheduler tick failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Проверяет, истёк ли next_due_at
// 2. Сбрасывает граф и запускает его заново
// 3. Дожидается завершения прогона
// 4. Вычисляет следующее время запуска
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()
	if !s.schedule.IsDue(now) {
		return nil
	}

	s.logger.Info("schedule due, starting run",
		"schedule", s.schedule.Name,
		"graph", s.graph.Name,
	)

	// Reset дожидается выполняющихся узлов предыдущего прогона.
	s.graph.Reset()
	s.graph.Run()

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.graph.Wait(runCtx); err != nil {
		return fmt.Errorf("run graph %q: %w", s.graph.Name, err)
	}

	if failed := s.graph.Failed(); len(failed) > 0 {
		s.logger.Warn("run finished with failed nodes",
			"graph", s.graph.Name,
			"failed", failed,
		)
	} else {
		s.logger.Info("run finished",
			"graph", s.graph.Name,
		)
	}

	nextDue, err := CalculateNextDue(s.schedule, now)
	if err != nil {
		return fmt.Errorf("calculate next due: %w", err)
	}
	s.schedule.RecordRun(now, nextDue)

	s.logger.Debug("next run scheduled",
		"schedule", s.schedule.Name,
		"next_due_at", nextDue,
	)

	return nil
}
