// Package repo предоставляет доступ к PostgreSQL через pgxpool.
//
// Структура:
//   - db.go            — создание пула соединений
//   - node_run_repo.go — история запусков узлов
//   - recorder.go      — мост между graph.Observer и историей
package repo
