package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shaiso/Treework/internal/domain"
)

// Output управляет форматированием вывода CLI.
//
// Данные (состояния узлов, спецификация, история) уходят в stdout —
// таблицей или, с флагом --json, в JSON для pipe в jq. Сообщения
// (Success/Error) всегда уходят в stderr.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

// NodeStates выводит итог прогона: состояние каждого узла,
// отсортированное по ID, и строку-сводку по терминальным состояниям.
func (o *Output) NodeStates(states map[string]domain.NodeState) {
	if o.jsonMode {
		o.JSON(states)
		return
	}

	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, len(ids))
	var completed, failed int
	for i, id := range ids {
		rows[i] = []string{id, string(states[id])}
		switch states[id] {
		case domain.StateCompleted:
			completed++
		case domain.StateFailed:
			failed++
		}
	}
	o.table([]string{"NODE", "STATE"}, rows)

	fmt.Fprintf(o.w, "\n%d node(s): %d completed, %d failed\n", len(ids), completed, failed)
}

// GraphSpec выводит разобранную спецификацию: по строке на узел
// с типом, gate и зависимостями.
func (o *Output) GraphSpec(spec *domain.GraphSpec) {
	if o.jsonMode {
		o.JSON(spec)
		return
	}

	rows := make([][]string, len(spec.Nodes))
	for i := range spec.Nodes {
		def := &spec.Nodes[i]
		deps := strings.Join(def.DependsOn, ",")
		if deps == "" {
			deps = "-"
		}
		rows[i] = []string{def.ID, def.Type, string(def.EffectiveGate()), deps}
	}
	o.table([]string{"ID", "TYPE", "GATE", "DEPENDS_ON"}, rows)
}

// NodeRuns выводит историю запусков узлов.
func (o *Output) NodeRuns(runs []domain.NodeRun) {
	if o.jsonMode {
		o.JSON(runs)
		return
	}

	rows := make([][]string, len(runs))
	for i := range runs {
		r := &runs[i]
		rows[i] = []string{
			r.ID.String(),
			r.NodeName,
			strconv.FormatUint(r.Generation, 10),
			string(r.State),
			formatTime(r.StartedAt),
			formatDuration(r.Duration()),
			r.Error,
		}
	}
	o.table([]string{"RUN_ID", "NODE", "GEN", "STATE", "STARTED", "DURATION", "ERROR"}, rows)
}

// table выводит строки через tabwriter с заголовком.
func (o *Output) table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// formatTime выводит время запуска; "-" для узла, провалённого
// без запуска.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// formatDuration округляет длительность до миллисекунд.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
