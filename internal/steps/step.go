package steps

import (
	"context"
	"errors"
	"time"
)

// Ошибки шагов.
var (
	// ErrStepNotFound — тип шага не найден в реестре.
	ErrStepNotFound = errors.New("step type not found")

	// ErrInvalidConfig — невалидная конфигурация шага.
	ErrInvalidConfig = errors.New("invalid step config")

	// ErrStepCancelled — выполнение шага отменено.
	ErrStepCancelled = errors.New("step execution cancelled")

	// ErrHTTPStatus — HTTP шаг получил статус >= 400.
	ErrHTTPStatus = errors.New("http status error")

	// ErrStepFailed — шаг fail сработал (ожидаемо).
	ErrStepFailed = errors.New("step failed")
)

// Step — интерфейс для типов шагов.
//
// Каждый тип шага (delay, http, noop, fail) реализует этот интерфейс.
type Step interface {
	// Type возвращает тип шага.
	Type() string

	// Execute выполняет шаг. Ошибка означает провал узла.
	// Шаг должен проверять ctx.Done() для graceful shutdown.
	Execute(ctx context.Context, req *Request) error
}

// Request — входные данные для выполнения шага.
type Request struct {
	// NodeID — идентификатор узла из спецификации.
	NodeID string

	// Config — конфигурация шага из NodeDef.Config.
	Config map[string]any

	// Timeout — таймаут выполнения шага.
	// Если 0, используется таймаут по умолчанию.
	Timeout time.Duration
}

// NewRequest создаёт новый Request.
func NewRequest(nodeID string, config map[string]any, timeout time.Duration) *Request {
	if config == nil {
		config = make(map[string]any)
	}
	return &Request{
		NodeID:  nodeID,
		Config:  config,
		Timeout: timeout,
	}
}

// configDuration извлекает длительность из конфигурации по паре
// ключей "*_sec" / "*_ms". Возвращает 0, если не задано.
func configDuration(config map[string]any, secKey, msKey string) (time.Duration, error) {
	if v, ok := config[secKey]; ok {
		sec, ok := toFloat(v)
		if !ok || sec < 0 {
			return 0, ErrInvalidConfig
		}
		return time.Duration(sec * float64(time.Second)), nil
	}
	if v, ok := config[msKey]; ok {
		ms, ok := toFloat(v)
		if !ok || ms < 0 {
			return 0, ErrInvalidConfig
		}
		return time.Duration(ms * float64(time.Millisecond)), nil
	}
	return 0, nil
}

// toFloat приводит значение из JSON-конфигурации к float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
