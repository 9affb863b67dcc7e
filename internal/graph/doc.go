// Package graph реализует ядро Treework — граф зависимых задач.
//
// Структура:
//   - node.go     — TaskNode: состояние, протокол trigger/finalize, Reset, ожидание
//   - wiring.go   — связывание узлов (ConnectAll / ConnectAny), синтетический корень
//   - observer.go — хук наблюдателя для метрик, событий и истории запусков
//
// Каждый узел — вершина DAG и единица выполнения. Узел становится готовым
// к запуску, когда выполнено его условие по сигналам родителей: GateAny
// (достаточно одного успешного родителя) или GateAll (нужны все). Готовый
// узел запускает свою рабочую функцию в отдельной горутине; отдельного
// планировщика нет — завершение узла само раздаёт сигналы детям.
//
// Ацикличность графа — инвариант вызывающей стороны: циклы не
// детектируются на этом уровне (их ловит валидация в internal/engine).
package graph
