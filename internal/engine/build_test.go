package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Treework/internal/domain"
	"github.com/shaiso/Treework/internal/graph"
)

// testWorkers — фабрика для тестов: noop завершается успешно,
// fail проваливается, остальное — ошибка фабрики.
func testWorkers(runs *sync.Map) WorkerFactory {
	return func(def *domain.NodeDef) (graph.WorkFunc, error) {
		id := def.ID
		switch def.Type {
		case "noop":
			return func(ctrl graph.Control) {
				if runs != nil {
					runs.Store(id, true)
				}
				ctrl.MarkCompleted()
			}, nil
		case "fail":
			return func(ctrl graph.Control) {
				ctrl.MarkFailed()
			}, nil
		default:
			return nil, errors.New("unknown node type")
		}
	}
}

func TestBuild_SimpleChain(t *testing.T) {
	spec := &domain.GraphSpec{
		Name: "chain",
		Nodes: []domain.NodeDef{
			{ID: "A", Type: "noop"},
			{ID: "B", Type: "noop", DependsOn: []string{"A"}},
			{ID: "C", Type: "noop", DependsOn: []string{"B"}},
		},
	}

	var runs sync.Map
	g, err := Build(spec, BuildConfig{Workers: testWorkers(&runs)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(g.Nodes) != 3 {
		t.Errorf("expected 3 nodes, got %d", len(g.Nodes))
	}
	if len(g.Leaves) != 1 || g.Leaves[0] != g.Node("C") {
		t.Error("expected C to be the only leaf")
	}

	g.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("wait failed: %v", err)
	}

	for _, id := range []string{"A", "B", "C"} {
		if _, ok := runs.Load(id); !ok {
			t.Errorf("node %s did not run", id)
		}
		if got := g.Node(id).State(); got != domain.StateCompleted {
			t.Errorf("node %s: expected COMPLETED, got %s", id, got)
		}
	}
}

func TestBuild_DiamondWithAllGate(t *testing.T) {
	spec := &domain.GraphSpec{
		Name: "diamond",
		Nodes: []domain.NodeDef{
			{ID: "A", Type: "noop"},
			{ID: "B", Type: "noop", DependsOn: []string{"A"}},
			{ID: "C", Type: "noop", DependsOn: []string{"A"}},
			{ID: "D", Type: "noop", Gate: domain.GateAll, DependsOn: []string{"B", "C"}},
		},
	}

	g, err := Build(spec, BuildConfig{Workers: testWorkers(nil)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("wait failed: %v", err)
	}

	if got := g.Node("D").State(); got != domain.StateCompleted {
		t.Errorf("expected D COMPLETED, got %s", got)
	}
}

// Упавший узел проваливает ALL-потомков, но не трогает соседнюю ветку.
func TestBuild_FailurePropagation(t *testing.T) {
	spec := &domain.GraphSpec{
		Name: "failing",
		Nodes: []domain.NodeDef{
			{ID: "bad", Type: "fail"},
			{ID: "good", Type: "noop"},
			{ID: "after_bad", Type: "noop", Gate: domain.GateAll, DependsOn: []string{"bad"}},
			{ID: "after_good", Type: "noop", DependsOn: []string{"good"}},
		},
	}

	g, err := Build(spec, BuildConfig{Workers: testWorkers(nil)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("wait failed: %v", err)
	}

	if got := g.Node("after_bad").State(); got != domain.StateFailed {
		t.Errorf("expected after_bad FAILED, got %s", got)
	}
	if got := g.Node("after_good").State(); got != domain.StateCompleted {
		t.Errorf("expected after_good COMPLETED, got %s", got)
	}

	failed := g.Failed()
	if len(failed) != 2 {
		t.Errorf("expected 2 failed nodes, got %v", failed)
	}
}

func TestBuild_ResetAndRerun(t *testing.T) {
	spec := &domain.GraphSpec{
		Name: "rerun",
		Nodes: []domain.NodeDef{
			{ID: "A", Type: "noop"},
			{ID: "B", Type: "noop", Gate: domain.GateAll, DependsOn: []string{"A"}},
		},
	}

	g, err := Build(spec, BuildConfig{Workers: testWorkers(nil)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	g.Run()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	g.Reset()

	for id, state := range g.States() {
		if state != domain.StateCreated {
			t.Errorf("node %s: expected CREATED after reset, got %s", id, state)
		}
	}

	g.Run()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if got := g.Node("B").Generation(); got != 1 {
		t.Errorf("expected generation 1 after rerun, got %d", got)
	}
}

func TestBuild_UnknownWorkerType(t *testing.T) {
	spec := &domain.GraphSpec{
		Nodes: []domain.NodeDef{
			{ID: "A", Type: "martian"},
		},
	}

	if _, err := Build(spec, BuildConfig{Workers: testWorkers(nil)}); err == nil {
		t.Error("expected error for unknown worker type")
	}
}

func TestBuild_RequiresWorkerFactory(t *testing.T) {
	spec := &domain.GraphSpec{
		Nodes: []domain.NodeDef{{ID: "A", Type: "noop"}},
	}

	if _, err := Build(spec, BuildConfig{}); err == nil {
		t.Error("expected error without worker factory")
	}
}

func TestBuild_InvalidSpec(t *testing.T) {
	spec := &domain.GraphSpec{
		Nodes: []domain.NodeDef{
			{ID: "A", Type: "noop", DependsOn: []string{"B"}},
			{ID: "B", Type: "noop", DependsOn: []string{"A"}},
		},
	}

	if _, err := Build(spec, BuildConfig{Workers: testWorkers(nil)}); !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
}

// Wait с истёкшим контекстом возвращает ошибку, а не зависает.
func TestGraph_WaitContextCancelled(t *testing.T) {
	spec := &domain.GraphSpec{
		Nodes: []domain.NodeDef{{ID: "A", Type: "noop"}},
	}

	g, err := Build(spec, BuildConfig{Workers: testWorkers(nil)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Граф не запущен — листья никогда не завершатся.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := g.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}
