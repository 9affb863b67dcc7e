package steps

import (
	"context"
	"fmt"
)

const (
	// StepTypeFail — тип шага fail.
	StepTypeFail = "fail"

	configMessage = "message"
)

// FailStep — шаг, который всегда проваливается.
//
// Используется в тестовых графах и для отладки политики упавших
// родителей (force-fail потомков под ALL-gate).
//
// Конфигурация:
//
//	{"message": "причина провала"}
type FailStep struct{}

// NewFailStep создаёт новый FailStep.
func NewFailStep() *FailStep {
	return &FailStep{}
}

// Type возвращает тип шага.
func (s *FailStep) Type() string {
	return StepTypeFail
}

// Execute всегда возвращает ошибку.
func (s *FailStep) Execute(ctx context.Context, req *Request) error {
	if msg, ok := req.Config[configMessage].(string); ok && msg != "" {
		return fmt.Errorf("%w: %s", ErrStepFailed, msg)
	}
	return ErrStepFailed
}
