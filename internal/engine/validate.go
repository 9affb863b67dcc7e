package engine

import (
	"fmt"

	"github.com/shaiso/Treework/internal/domain"
)

// Validate выполняет полную валидацию GraphSpec.
//
// Проверяет:
// - Наличие узлов
// - Уникальность ID узлов
// - Корректность значений gate
// - Валидность зависимостей (depends_on)
// - Отсутствие самозависимостей и циклов
func Validate(spec *domain.GraphSpec) error {
	if spec == nil || len(spec.Nodes) == 0 {
		return ErrEmptyNodes
	}

	nodeIDs := make(map[string]bool, len(spec.Nodes))

	for i := range spec.Nodes {
		def := &spec.Nodes[i]

		if def.ID == "" {
			return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
		}
		if nodeIDs[def.ID] {
			return NewValidationError(def.ID, "id",
				fmt.Sprintf("duplicate node ID: %s", def.ID), ErrDuplicateNodeID)
		}
		nodeIDs[def.ID] = true

		if def.Gate != "" && !def.Gate.Valid() {
			return NewValidationError(def.ID, "gate",
				fmt.Sprintf("invalid gate %q (expected %q or %q)", def.Gate, domain.GateAny, domain.GateAll),
				ErrInvalidGate)
		}
	}

	for i := range spec.Nodes {
		def := &spec.Nodes[i]

		for _, depID := range def.DependsOn {
			if depID == def.ID {
				return NewValidationError(def.ID, "depends_on",
					"node depends on itself", ErrSelfDependency)
			}
			if !nodeIDs[depID] {
				return NewValidationError(def.ID, "depends_on",
					fmt.Sprintf("depends on unknown node: %s", depID), ErrMissingDependency)
			}
		}
	}

	return checkAcyclic(spec)
}

// checkAcyclic проверяет отсутствие циклов топологической
// сортировкой (алгоритм Кана).
func checkAcyclic(spec *domain.GraphSpec) error {
	inDegree := make(map[string]int, len(spec.Nodes))
	dependents := make(map[string][]string, len(spec.Nodes))

	for i := range spec.Nodes {
		def := &spec.Nodes[i]
		inDegree[def.ID] += 0
		for _, depID := range def.DependsOn {
			inDegree[def.ID]++
			dependents[depID] = append(dependents[depID], def.ID)
		}
	}

	// Очередь узлов с inDegree = 0
	queue := make([]string, 0, len(spec.Nodes))
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++

		for _, depID := range dependents[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	// Если не все узлы обработаны — есть цикл
	if visited != len(spec.Nodes) {
		return ErrCyclicDependency
	}

	return nil
}
