package steps

import "context"

// StepTypeNoop — тип шага noop.
const StepTypeNoop = "noop"

// NoopStep — шаг, завершающийся мгновенно и успешно.
// Удобен как точка синхронизации (join) между ветками графа.
type NoopStep struct{}

// NewNoopStep создаёт новый NoopStep.
func NewNoopStep() *NoopStep {
	return &NoopStep{}
}

// Type возвращает тип шага.
func (s *NoopStep) Type() string {
	return StepTypeNoop
}

// Execute ничего не делает.
func (s *NoopStep) Execute(ctx context.Context, req *Request) error {
	return nil
}
