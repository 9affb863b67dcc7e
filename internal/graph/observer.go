package graph

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Treework/internal/domain"
)

// RunInfo — снимок одного запуска узла, передаваемый наблюдателям.
type RunInfo struct {
	// NodeID — идентификатор узла.
	NodeID uuid.UUID

	// NodeName — имя узла.
	NodeName string

	// Generation — поколение запуска.
	Generation uint64

	// State — состояние на момент события: RUNNING для NodeStarted,
	// COMPLETED или FAILED для NodeFinished.
	State domain.NodeState

	// StartedAt — время запуска рабочей функции.
	// Нулевое, если узел провален без запуска (упавшие родители).
	StartedAt time.Time

	// FinishedAt — время финализации (только для NodeFinished).
	FinishedAt time.Time

	// Error — причина провала, если она известна: текст ошибки из
	// MarkFailedWithError либо ErrUpstreamFailed для узла,
	// провалённого без запуска. Пустая строка для COMPLETED.
	Error string
}

// Duration возвращает длительность запуска.
// Ноль для узлов, провалённых без запуска.
func (i RunInfo) Duration() time.Duration {
	if i.StartedAt.IsZero() || i.FinishedAt.IsZero() {
		return 0
	}
	return i.FinishedAt.Sub(i.StartedAt)
}

// Observer — наблюдатель жизненного цикла узлов.
//
// Через Observer подключаются метрики, публикация событий в MQ и
// история запусков — ядро о них ничего не знает. Вызовы происходят
// вне мьютекса узла, но до fan-out на детей; долгие операции внутри
// наблюдателя задерживают раздачу сигналов.
type Observer interface {
	// NodeStarted вызывается после перехода CREATED→RUNNING,
	// до старта рабочей функции.
	NodeStarted(info RunInfo)

	// NodeFinished вызывается после публикации сигнала завершения,
	// до уведомления детей. Для узла, провалённого без запуска,
	// NodeStarted не вызывается.
	NodeFinished(info RunInfo)
}

// MultiObserver объединяет несколько наблюдателей в одного.
type MultiObserver []Observer

// NodeStarted реализует Observer.
func (m MultiObserver) NodeStarted(info RunInfo) {
	for _, obs := range m {
		obs.NodeStarted(info)
	}
}

// NodeFinished реализует Observer.
func (m MultiObserver) NodeFinished(info RunInfo) {
	for _, obs := range m {
		obs.NodeFinished(info)
	}
}
