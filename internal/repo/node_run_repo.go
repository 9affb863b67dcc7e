package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Treework/internal/domain"
)

// ErrNotFound — запись о запуске не найдена в БД.
var ErrNotFound = errors.New("node run not found")

// NodeRunRepo — репозиторий истории запусков узлов.
type NodeRunRepo struct {
	pool *pgxpool.Pool
}

// NewNodeRunRepo создаёт новый NodeRunRepo.
func NewNodeRunRepo(pool *pgxpool.Pool) *NodeRunRepo {
	return &NodeRunRepo{pool: pool}
}

// Create создаёт запись о запуске узла.
func (r *NodeRunRepo) Create(ctx context.Context, run *domain.NodeRun) error {
	query := `
		INSERT INTO node_runs (id, node_id, node_name, generation, state, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.NodeID,
		run.NodeName,
		run.Generation,
		run.State,
		nullTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert node run: %w", err)
	}
	return nil
}

// Finish финализирует запись о запуске.
func (r *NodeRunRepo) Finish(ctx context.Context, run *domain.NodeRun) error {
	query := `
		UPDATE node_runs
		SET state = $2, finished_at = $3, error = $4
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		run.ID,
		run.State,
		nullTime(run.FinishedAt),
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("finish node run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает запись по ID.
func (r *NodeRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.NodeRun, error) {
	query := `
		SELECT id, node_id, node_name, generation, state, started_at, finished_at, error
		FROM node_runs
		WHERE id = $1
	`
	return r.scanRun(r.pool.QueryRow(ctx, query, id))
}

// ListByNode возвращает историю запусков узла, новые первыми.
func (r *NodeRunRepo) ListByNode(ctx context.Context, nodeID uuid.UUID, limit int) ([]domain.NodeRun, error) {
	query := `
		SELECT id, node_id, node_name, generation, state, started_at, finished_at, error
		FROM node_runs
		WHERE node_id = $1
		ORDER BY generation DESC, started_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, nodeID, limit)
}

// ListRecent возвращает последние запуски по всем узлам.
func (r *NodeRunRepo) ListRecent(ctx context.Context, limit int) ([]domain.NodeRun, error) {
	query := `
		SELECT id, node_id, node_name, generation, state, started_at, finished_at, error
		FROM node_runs
		ORDER BY started_at DESC NULLS LAST
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// --- Helpers ---

func (r *NodeRunRepo) list(ctx context.Context, query string, args ...any) ([]domain.NodeRun, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list node runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.NodeRun
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// scanRun сканирует одну строку в NodeRun.
func (r *NodeRunRepo) scanRun(row pgx.Row) (*domain.NodeRun, error) {
	var run domain.NodeRun
	var startedAt, finishedAt *time.Time
	var runError *string

	err := row.Scan(
		&run.ID,
		&run.NodeID,
		&run.NodeName,
		&run.Generation,
		&run.State,
		&startedAt,
		&finishedAt,
		&runError,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan node run: %w", err)
	}

	if startedAt != nil {
		run.StartedAt = *startedAt
	}
	if finishedAt != nil {
		run.FinishedAt = *finishedAt
	}
	if runError != nil {
		run.Error = *runError
	}

	return &run, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullTime возвращает nil для нулевого времени.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
