package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Treework/internal/domain"
	"github.com/shaiso/Treework/internal/graph"
)

// WorkerFactory создаёт рабочую функцию для определения узла.
// Реализуется реестром шагов (internal/steps).
type WorkerFactory func(def *domain.NodeDef) (graph.WorkFunc, error)

// Graph — связанный исполняемый граф, построенный из GraphSpec.
type Graph struct {
	// Name — имя графа из спецификации.
	Name string

	// Root — синтетический корень: один Trigger на нём запускает
	// все узлы без зависимостей.
	Root *graph.TaskNode

	// Nodes — узлы по ID из спецификации (без корня).
	Nodes map[string]*graph.TaskNode

	// Leaves — узлы без детей; их завершение означает завершение графа.
	Leaves []*graph.TaskNode
}

// BuildConfig — параметры построения графа.
type BuildConfig struct {
	// Workers — фабрика рабочих функций (обязательна).
	Workers WorkerFactory

	// Observer — наблюдатель, подключаемый к каждому узлу.
	Observer graph.Observer

	// Logger — логгер узлов.
	Logger *slog.Logger
}

// Build строит связанный граф из валидированной спецификации.
//
// Порядок:
//  1. Валидация (включая проверку на циклы)
//  2. Создание TaskNode'ов с рабочими функциями из фабрики
//  3. Связывание по depends_on через ConnectAll/ConnectAny по gate ребёнка
//  4. Подвешивание узлов без зависимостей под синтетический корень
func Build(spec *domain.GraphSpec, cfg BuildConfig) (*Graph, error) {
	if cfg.Workers == nil {
		return nil, fmt.Errorf("build graph: worker factory is required")
	}

	if err := Validate(spec); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := func(name string) []graph.Option {
		o := []graph.Option{
			graph.WithName(name),
			graph.WithLogger(logger),
		}
		if cfg.Observer != nil {
			o = append(o, graph.WithObserver(cfg.Observer))
		}
		return o
	}

	g := &Graph{
		Name:  spec.Name,
		Nodes: make(map[string]*graph.TaskNode, len(spec.Nodes)),
	}

	// Первый проход: создаём узлы
	for i := range spec.Nodes {
		def := &spec.Nodes[i]

		workFn, err := cfg.Workers(def)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", def.ID, err)
		}

		g.Nodes[def.ID] = graph.NewTaskNode(workFn, opts(def.EffectiveName())...)
	}

	// Второй проход: связываем по зависимостям.
	// Родители группируются на ребёнке: gate — свойство узла-приёмника.
	hasChildren := make(map[string]bool, len(spec.Nodes))
	g.Root = graph.MakeRootNode(opts("root")...)

	for i := range spec.Nodes {
		def := &spec.Nodes[i]
		child := g.Nodes[def.ID]

		parents := make([]*graph.TaskNode, 0, len(def.DependsOn))
		for _, depID := range def.DependsOn {
			parents = append(parents, g.Nodes[depID])
			hasChildren[depID] = true
		}

		if len(parents) == 0 {
			// Узел без зависимостей запускается от корня.
			parents = append(parents, g.Root)
		}

		switch def.EffectiveGate() {
		case domain.GateAll:
			graph.ConnectAll(parents, []*graph.TaskNode{child})
		default:
			graph.ConnectAny(parents, []*graph.TaskNode{child})
		}
	}

	// Листья: узлы, от которых никто не зависит.
	for i := range spec.Nodes {
		def := &spec.Nodes[i]
		if !hasChildren[def.ID] {
			g.Leaves = append(g.Leaves, g.Nodes[def.ID])
		}
	}

	return g, nil
}

// Run запускает граф, триггеря синтетический корень.
// Не блокируется: за ожиданием — Wait.
func (g *Graph) Run() {
	g.Root.Trigger(domain.StateCompleted)
}

// Wait блокируется, пока все листья не достигнут терминального
// состояния, либо пока не истечёт контекст.
func (g *Graph) Wait(ctx context.Context) error {
	for _, leaf := range g.Leaves {
		select {
		case <-leaf.Done():
		case <-ctx.Done():
			return fmt.Errorf("wait graph %q: %w", g.Name, ctx.Err())
		}
	}
	return nil
}

// Reset возвращает весь граф в исходное состояние для повторного
// запуска (глубокий сброс от корня).
func (g *Graph) Reset() {
	g.Root.Reset(true)
}

// Node возвращает узел по ID из спецификации.
func (g *Graph) Node(id string) *graph.TaskNode {
	return g.Nodes[id]
}

// States возвращает снимок состояний всех узлов (без корня).
func (g *Graph) States() map[string]domain.NodeState {
	states := make(map[string]domain.NodeState, len(g.Nodes))
	for id, node := range g.Nodes {
		states[id] = node.State()
	}
	return states
}

// Failed возвращает ID узлов в состоянии FAILED.
func (g *Graph) Failed() []string {
	var failed []string
	for id, node := range g.Nodes {
		if node.State() == domain.StateFailed {
			failed = append(failed, id)
		}
	}
	return failed
}
