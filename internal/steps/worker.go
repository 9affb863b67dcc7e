package steps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Treework/internal/domain"
	"github.com/shaiso/Treework/internal/graph"
	"github.com/shaiso/Treework/internal/telemetry"
)

// Workers возвращает фабрику рабочих функций поверх реестра шагов
// (используется как engine.WorkerFactory при построении графа).
//
// Адаптер гарантирует финализацию при любом исходе: ошибка шага и
// даже паника внутри него транслируются в MarkFailedWithError —
// рабочая функция не может завершиться, не отчитавшись, и подвесить
// WaitForDone. Причина провала уходит наблюдателям (история, MQ).
func Workers(reg *Registry, logger *slog.Logger, defaultTimeout time.Duration) func(def *domain.NodeDef) (graph.WorkFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}

	return func(def *domain.NodeDef) (graph.WorkFunc, error) {
		step, err := reg.Get(def.Type)
		if err != nil {
			return nil, err
		}

		req := NewRequest(def.ID, def.Config, defaultTimeout)
		stepLogger := telemetry.WithNodeID(logger, def.ID)

		return func(ctrl graph.Control) {
			defer func() {
				if r := recover(); r != nil {
					stepLogger.Error("step panicked",
						"type", step.Type(),
						"panic", r,
					)
					ctrl.MarkFailedWithError(fmt.Errorf("step %s panicked: %v", step.Type(), r))
				}
			}()

			ctx := context.Background()
			if req.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, req.Timeout)
				defer cancel()
			}

			if err := step.Execute(ctx, req); err != nil {
				stepLogger.Error("step failed",
					"type", step.Type(),
					"error", err,
				)
				ctrl.MarkFailedWithError(err)
				return
			}

			ctrl.MarkCompleted()
		}, nil
	}
}
