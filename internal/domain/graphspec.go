package domain

// GraphSpec — декларативное описание графа задач.
//
// Это "программа" для Treework — набор узлов и зависимостей между ними.
// Спецификация загружается из JSON-файла и после валидации превращается
// в связанный граф TaskNode'ов (см. internal/engine).
type GraphSpec struct {
	// Version — версия формата спецификации (для обратной совместимости).
	Version string `json:"version,omitempty"`

	// Name — имя графа (попадает в логи и метрики).
	Name string `json:"name,omitempty"`

	// Description — описание назначения графа.
	Description string `json:"description,omitempty"`

	// Nodes — список узлов графа.
	Nodes []NodeDef `json:"nodes"`
}

// NodeDef — определение одного узла графа.
type NodeDef struct {
	// ID — уникальный идентификатор узла внутри спецификации.
	ID string `json:"id"`

	// Name — человекочитаемое имя (по умолчанию равно ID).
	Name string `json:"name,omitempty"`

	// Type — тип рабочей функции: "delay", "http", "noop", "fail".
	Type string `json:"type"`

	// Gate — условие запуска: "any" (хватает одного родителя)
	// или "all" (нужны все). По умолчанию: "any".
	Gate Gate `json:"gate,omitempty"`

	// DependsOn — ID узлов-родителей.
	// Узлы без зависимостей запускаются от синтетического корня.
	DependsOn []string `json:"depends_on,omitempty"`

	// Config — конфигурация рабочей функции (зависит от Type).
	Config map[string]any `json:"config,omitempty"`
}

// EffectiveGate возвращает gate узла с учётом значения по умолчанию.
func (d *NodeDef) EffectiveGate() Gate {
	if d.Gate == "" {
		return GateAny
	}
	return d.Gate
}

// EffectiveName возвращает имя узла с учётом значения по умолчанию.
func (d *NodeDef) EffectiveName() string {
	if d.Name == "" {
		return d.ID
	}
	return d.Name
}
