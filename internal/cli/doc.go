// Package cli реализует инструмент командной строки Treework.
//
// # Обзор
//
// CLI читает спецификацию графа из JSON-файла, строит исполняемый
// граф и запускает его — однократно или по расписанию.
//
// # Ключевые компоненты
//
// ## Output
//
// Форматирование вывода: методы на доменных типах (NodeStates,
// GraphSpec, NodeRuns) рендерят таблицу через text/tabwriter либо,
// с флагом --json, JSON для pipe: treework run graph.json --json | jq .
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
//
// ## Commands
//
//   - run:      построить граф и выполнить (однократно или по расписанию)
//   - validate: проверить спецификацию без выполнения
//   - history:  посмотреть сохранённую историю запусков узлов
//
// Каждая команда создаётся через фабричную функцию (NewRunCmd и т.д.),
// принимающую outputFn — замыкание для ленивого создания Output после
// парсинга PersistentFlags.
package cli
