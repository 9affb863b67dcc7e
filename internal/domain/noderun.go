package domain

import (
	"time"

	"github.com/google/uuid"
)

// NodeRun — запись об одном выполнении узла.
//
// Создаётся при запуске рабочей функции (или при принудительном
// провале узла из-за упавших родителей) и финализируется, когда
// узел достигает терминального состояния.
type NodeRun struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// NodeID — идентификатор узла.
	NodeID uuid.UUID `json:"node_id"`

	// NodeName — человекочитаемое имя узла.
	NodeName string `json:"node_name"`

	// Generation — поколение узла (увеличивается при каждом Reset).
	Generation uint64 `json:"generation"`

	// State — терминальное состояние: COMPLETED или FAILED.
	// Для ещё выполняющейся записи — RUNNING.
	State NodeState `json:"state"`

	// StartedAt — время запуска рабочей функции.
	// Нулевое, если узел был провален без запуска.
	StartedAt time.Time `json:"started_at,omitzero"`

	// FinishedAt — время финализации.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Error — текст ошибки (если State == FAILED и причина известна).
	Error string `json:"error,omitempty"`
}

// Duration возвращает длительность выполнения.
// Ноль для узлов, провалённых без запуска.
func (r *NodeRun) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
