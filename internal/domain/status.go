package domain

// NodeState — состояние узла графа.
//
// Жизненный цикл (строго монотонный в пределах одного поколения):
//
//	CREATED → RUNNING → COMPLETED
//	                  ↘ FAILED
//
// Reset возвращает узел в CREATED и открывает новое поколение.
type NodeState string

const (
	// StateCreated — узел создан, ещё не запускался.
	StateCreated NodeState = "CREATED"

	// StateRunning — рабочая функция узла выполняется.
	StateRunning NodeState = "RUNNING"

	// StateCompleted — узел успешно завершён.
	StateCompleted NodeState = "COMPLETED"

	// StateFailed — узел завершился с ошибкой
	// (либо принудительно провален из-за упавших родителей).
	StateFailed NodeState = "FAILED"
)

// IsTerminal возвращает true, если состояние финальное.
func (s NodeState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление NodeState.
func (s NodeState) String() string {
	return string(s)
}

// Gate — условие запуска узла по сигналам родителей.
type Gate string

const (
	// GateAny — достаточно одного успешно завершённого родителя (OR).
	GateAny Gate = "any"

	// GateAll — требуются все родители (AND).
	GateAll Gate = "all"
)

// Valid проверяет, что значение gate известно.
func (g Gate) Valid() bool {
	return g == GateAny || g == GateAll
}
