package graph

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Treework/internal/domain"
)

// WorkFunc — рабочая функция узла.
//
// Получает Control и обязана ровно один раз вызвать MarkCompleted или
// MarkFailed. Финализация может происходить асинхронно, из другой
// горутины — возвращение из функции само по себе узел не завершает.
type WorkFunc func(ctrl Control)

// Control — управляющая ручка, передаваемая рабочей функции.
//
// Хранит поколение запуска: финализация из устаревшего поколения
// (например, после Reset) игнорируется. Оба вызова идемпотентны —
// эффект имеет только первый, в любой комбинации.
type Control struct {
	node       *TaskNode
	generation uint64
}

// MarkCompleted сообщает об успешном завершении работы узла.
func (c Control) MarkCompleted() {
	c.node.finalize(c.generation, domain.StateCompleted, nil)
}

// MarkFailed сообщает о завершении работы узла с ошибкой.
func (c Control) MarkFailed() {
	c.node.finalize(c.generation, domain.StateFailed, nil)
}

// MarkFailedWithError — как MarkFailed, но с причиной провала.
// Причина попадает к наблюдателям (история запусков, события в MQ);
// на протокол запуска детей она не влияет.
func (c Control) MarkFailedWithError(err error) {
	c.node.finalize(c.generation, domain.StateFailed, err)
}

// TaskNode — узел графа задач: вершина DAG плюс единица выполнения.
//
// Состояние узла, счётчик родителей и переход CREATED→RUNNING защищены
// одним мьютексом — это единственная точка взаимного исключения,
// гарантирующая запуск рабочей функции ровно один раз при конкурентных
// сигналах от родителей.
type TaskNode struct {
	id     uuid.UUID
	name   string
	workFn WorkFunc

	logger   *slog.Logger
	observer Observer

	mu    sync.Mutex
	state domain.NodeState
	gate  domain.Gate

	// children — узлы, уведомляемые при завершении этого узла.
	// Список принадлежит узлу; дети могут иметь и других родителей.
	children []*TaskNode

	// wiredParents — сколько родителей зарегистрировано при связывании.
	// pendingParents — сколько сигналов ещё не получено; восстанавливается
	// до wiredParents при Reset. Счётчик инкрементируется на ребёнке
	// в момент регистрации ребра — именно ребёнок ждёт родителей.
	wiredParents   int
	pendingParents int

	// failedParents — сколько родителей отчитались с FAILED в текущем
	// поколении. Упавший родитель потребляется счётчиком (иначе gate
	// никогда не сойдётся), но gate не удовлетворяет.
	failedParents int

	// failErr — причина провала текущего поколения (может быть nil
	// даже при FAILED: ядро не требует от рабочей функции объяснений).
	failErr error

	generation uint64
	startedAt  time.Time
	doneCh     chan struct{}
}

// ErrUpstreamFailed — причина принудительного провала узла, gate
// которого не может быть удовлетворён из-за упавших родителей.
var ErrUpstreamFailed = errors.New("upstream dependency failed")

// Option — опция конструктора TaskNode.
type Option func(*TaskNode)

// WithName задаёт человекочитаемое имя узла (для логов и метрик).
func WithName(name string) Option {
	return func(n *TaskNode) { n.name = name }
}

// WithObserver подключает наблюдателя жизненного цикла.
func WithObserver(obs Observer) Option {
	return func(n *TaskNode) { n.observer = obs }
}

// WithLogger задаёт логгер узла.
func WithLogger(logger *slog.Logger) Option {
	return func(n *TaskNode) { n.logger = logger }
}

// NewTaskNode создаёт узел в состоянии CREATED с gate GateAny,
// без родителей и детей.
func NewTaskNode(workFn WorkFunc, opts ...Option) *TaskNode {
	n := &TaskNode{
		id:     uuid.New(),
		workFn: workFn,
		state:  domain.StateCreated,
		gate:   domain.GateAny,
		doneCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.name == "" {
		n.name = n.id.String()[:8]
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}

	return n
}

// Trigger — точка входа протокола запуска.
//
// Вызывается родителем при его завершении (fan-out) либо внешним кодом
// для корневых узлов — тогда передаётся StateCompleted. Никогда не
// блокируется на рабочей функции: она стартует в отдельной горутине.
//
// Поведение:
//   - no-op, если узел уже не в CREATED (защита от двойного запуска);
//   - сигнал родителя потребляется счётчиком независимо от исхода;
//   - GateAny: любой успешный родитель запускает узел;
//   - GateAll: узел запускается, когда отчитались все родители и все
//     успешно;
//   - если все родители отчитались, а gate так и не удовлетворён,
//     узел принудительно проваливается без запуска рабочей функции.
func (n *TaskNode) Trigger(parentState domain.NodeState) {
	n.mu.Lock()
	if n.state != domain.StateCreated {
		n.mu.Unlock()
		return
	}

	if n.pendingParents > 0 {
		n.pendingParents--
	}
	if parentState != domain.StateCompleted {
		n.failedParents++
	}

	var launch, forceFail bool
	switch n.gate {
	case domain.GateAll:
		if n.pendingParents == 0 {
			if n.failedParents > 0 {
				forceFail = true
			} else {
				launch = true
			}
		}
	default: // GateAny
		if parentState == domain.StateCompleted {
			launch = true
		} else if n.pendingParents == 0 {
			// Все родители отчитались, ни один не завершился успешно.
			forceFail = true
		}
	}

	switch {
	case launch:
		n.launchLocked()
	case forceFail:
		n.failErr = ErrUpstreamFailed
		n.finalizeLocked(domain.StateFailed)
	default:
		n.mu.Unlock()
	}
}

// launchLocked переводит узел в RUNNING и запускает рабочую функцию.
// Вызывается с захваченным мьютексом и освобождает его.
func (n *TaskNode) launchLocked() {
	n.state = domain.StateRunning
	n.startedAt = time.Now()
	gen := n.generation
	info := RunInfo{
		NodeID:     n.id,
		NodeName:   n.name,
		Generation: gen,
		State:      domain.StateRunning,
		StartedAt:  n.startedAt,
	}
	n.mu.Unlock()

	n.logger.Debug("node started",
		"node_id", n.id,
		"node", n.name,
		"generation", gen,
	)

	if n.observer != nil {
		n.observer.NodeStarted(info)
	}

	go n.workFn(Control{node: n, generation: gen})
}

// finalize фиксирует терминальное состояние по вызову из Control.
// Устаревшее поколение или повторная финализация — no-op.
func (n *TaskNode) finalize(gen uint64, result domain.NodeState, cause error) {
	n.mu.Lock()
	if n.generation != gen || n.state != domain.StateRunning {
		n.mu.Unlock()
		return
	}
	n.failErr = cause
	n.finalizeLocked(result)
}

// finalizeLocked записывает терминальное состояние, публикует сигнал
// завершения и раздаёт его детям. Вызывается с захваченным мьютексом
// и освобождает его.
//
// Порядок строгий: сначала состояние и закрытие doneCh, потом fan-out.
// Наблюдатель, дождавшийся сигнала, может полагаться на то, что дети
// уже уведомлены или уведомляются конкурентно.
func (n *TaskNode) finalizeLocked(result domain.NodeState) {
	n.state = result
	close(n.doneCh)

	gen := n.generation
	children := make([]*TaskNode, len(n.children))
	copy(children, n.children)
	info := RunInfo{
		NodeID:     n.id,
		NodeName:   n.name,
		Generation: gen,
		State:      result,
		StartedAt:  n.startedAt,
		FinishedAt: time.Now(),
	}
	if n.failErr != nil {
		info.Error = n.failErr.Error()
	}
	n.mu.Unlock()

	n.logger.Debug("node finished",
		"node_id", n.id,
		"node", n.name,
		"generation", gen,
		"state", result,
	)

	if n.observer != nil {
		n.observer.NodeFinished(info)
	}

	for _, child := range children {
		child.Trigger(result)
	}
}

// Reset возвращает узел в CREATED для повторного запуска.
//
// Если узел выполняется, сначала дожидается завершения текущего
// запуска. Счётчик родителей восстанавливается до связанного значения,
// поколение увеличивается. При deep == true рекурсивно сбрасываются все
// достижимые дети (без защиты от циклов — граф обязан быть ацикличным).
func (n *TaskNode) Reset(deep bool) {
	n.mu.Lock()
	for n.state == domain.StateRunning {
		ch := n.doneCh
		n.mu.Unlock()
		<-ch
		n.mu.Lock()
	}

	// Свежий сигнал нужен только если старый уже опубликован;
	// иначе ждущие на старом канале зависли бы навсегда.
	if n.state.IsTerminal() {
		n.doneCh = make(chan struct{})
	}

	n.state = domain.StateCreated
	n.pendingParents = n.wiredParents
	n.failedParents = 0
	n.failErr = nil
	n.startedAt = time.Time{}
	n.generation++

	var children []*TaskNode
	if deep {
		children = make([]*TaskNode, len(n.children))
		copy(children, n.children)
	}
	n.mu.Unlock()

	for _, child := range children {
		child.Reset(true)
	}
}

// WaitForDone блокирует вызывающего до публикации сигнала завершения.
// Возвращается немедленно, если узел уже завершён; повторные вызовы
// безопасны.
func (n *TaskNode) WaitForDone() {
	<-n.Done()
}

// Done возвращает канал, закрываемый при завершении узла.
// Удобен для select и ожидания с таймаутом поверх WaitForDone.
func (n *TaskNode) Done() <-chan struct{} {
	n.mu.Lock()
	ch := n.doneCh
	n.mu.Unlock()
	return ch
}

// ID возвращает идентификатор узла.
func (n *TaskNode) ID() uuid.UUID {
	return n.id
}

// Name возвращает имя узла.
func (n *TaskNode) Name() string {
	return n.name
}

// State возвращает текущее состояние узла.
func (n *TaskNode) State() domain.NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Generation возвращает номер текущего поколения.
func (n *TaskNode) Generation() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.generation
}

// setGate меняет gate узла. Последний вызов связывания побеждает.
func (n *TaskNode) setGate(g domain.Gate) {
	n.mu.Lock()
	n.gate = g
	n.mu.Unlock()
}

// registerChild регистрирует ребёнка у родителя и учитывает ребро
// на счётчике ребёнка.
func (n *TaskNode) registerChild(child *TaskNode) {
	n.mu.Lock()
	n.children = append(n.children, child)
	n.mu.Unlock()

	child.mu.Lock()
	child.wiredParents++
	child.pendingParents++
	child.mu.Unlock()
}
