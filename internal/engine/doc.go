// Package engine строит исполняемый граф из декларативной спецификации.
//
// Включает:
//   - parse.go    — парсинг GraphSpec из JSON
//   - validate.go — валидация спецификации (ID, зависимости, циклы)
//   - build.go    — связывание TaskNode'ов по спецификации
//
// Ядро (internal/graph) циклы не детектирует — ацикличность
// гарантируется здесь, до того как граф будет связан.
package engine
