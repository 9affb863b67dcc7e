package graph

import "github.com/shaiso/Treework/internal/domain"

// ConnectAll строит AND-связь между множествами узлов: каждый child
// получает gate GateAll и регистрируется у каждого parent.
//
// Для каждой пары (parent, child) счётчик ожидаемых родителей
// инкрементируется на ребёнке — ребёнок запустится только когда все
// родители отчитаются, и все успешно.
//
// Связывание выполняется до запуска графа; конкурентное добавление
// рёбер во время выполнения не поддерживается.
func ConnectAll(parents, children []*TaskNode) {
	for _, child := range children {
		child.setGate(domain.GateAll)
	}
	for _, parent := range parents {
		for _, child := range children {
			parent.registerChild(child)
		}
	}
}

// ConnectAny строит OR-связь между множествами узлов: каждый child
// получает gate GateAny — первого успешно завершённого родителя
// достаточно для запуска.
//
// Счётчик родителей ведётся и здесь: по нему узел понимает, что все
// родители отчитались неудачно, и проваливается сам вместо вечного
// ожидания.
func ConnectAny(parents, children []*TaskNode) {
	for _, child := range children {
		child.setGate(domain.GateAny)
	}
	for _, parent := range parents {
		for _, child := range children {
			parent.registerChild(child)
		}
	}
}

// MakeRootNode создаёт пустой всегда-успешный узел.
//
// Используется как синтетический корень: один внешний Trigger на корне
// запускает весь граф, подвешенный под него.
func MakeRootNode(opts ...Option) *TaskNode {
	opts = append([]Option{WithName("root")}, opts...)
	return NewTaskNode(func(ctrl Control) {
		ctrl.MarkCompleted()
	}, opts...)
}
