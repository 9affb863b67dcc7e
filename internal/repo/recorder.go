package repo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Treework/internal/domain"
	"github.com/shaiso/Treework/internal/graph"
	"github.com/shaiso/Treework/internal/telemetry"
)

// Recorder — наблюдатель узлов, сохраняющий историю запусков в БД.
// Реализует graph.Observer.
//
// Запись выполняется асинхронно и best-effort: недоступная БД не
// задерживает fan-out на детей и не влияет на исход узла.
type Recorder struct {
	repo    *NodeRunRepo
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[runKey]uuid.UUID // (узел, поколение) → ID записи
}

type runKey struct {
	nodeID     uuid.UUID
	generation uint64
}

// NewRecorder создаёт нового наблюдателя поверх NodeRunRepo.
func NewRecorder(repo *NodeRunRepo, logger *slog.Logger) *Recorder {
	return &Recorder{
		repo:    repo,
		logger:  logger,
		timeout: 5 * time.Second,
		pending: make(map[runKey]uuid.UUID),
	}
}

// NodeStarted реализует graph.Observer.
func (rec *Recorder) NodeStarted(info graph.RunInfo) {
	run := &domain.NodeRun{
		ID:         uuid.New(),
		NodeID:     info.NodeID,
		NodeName:   info.NodeName,
		Generation: info.Generation,
		State:      info.State,
		StartedAt:  info.StartedAt,
	}

	rec.mu.Lock()
	rec.pending[runKey{info.NodeID, info.Generation}] = run.ID
	rec.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), rec.timeout)
		defer cancel()

		if err := rec.repo.Create(ctx, run); err != nil {
			rec.runLogger(info).Warn("failed to record node start", "error", err)
		}
	}()
}

// runLogger возвращает логгер с контекстом конкретного запуска.
func (rec *Recorder) runLogger(info graph.RunInfo) *slog.Logger {
	logger := telemetry.WithNodeID(rec.logger, info.NodeID.String())
	return telemetry.WithGeneration(logger, info.Generation)
}

// NodeFinished реализует graph.Observer.
//
// Для узла, провалённого без запуска, записи NodeStarted нет —
// создаётся сразу финализированная запись.
func (rec *Recorder) NodeFinished(info graph.RunInfo) {
	key := runKey{info.NodeID, info.Generation}

	rec.mu.Lock()
	id, started := rec.pending[key]
	delete(rec.pending, key)
	rec.mu.Unlock()

	run := &domain.NodeRun{
		ID:         id,
		NodeID:     info.NodeID,
		NodeName:   info.NodeName,
		Generation: info.Generation,
		State:      info.State,
		StartedAt:  info.StartedAt,
		FinishedAt: info.FinishedAt,
		Error:      info.Error,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), rec.timeout)
		defer cancel()

		if !started {
			run.ID = uuid.New()
			if err := rec.repo.Create(ctx, run); err != nil {
				rec.runLogger(info).Warn("failed to record forced failure", "error", err)
			}
			return
		}

		err := rec.repo.Finish(ctx, run)
		if errors.Is(err, ErrNotFound) {
			// Create мог ещё не долететь до БД.
			err = rec.repo.Create(ctx, run)
		}
		if err != nil {
			rec.runLogger(info).Warn("failed to record node finish", "error", err)
		}
	}()
}
