// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий жизненного цикла узлов
//   - observer.go   — мост между graph.Observer и публикацией
//
// Типы сообщений:
//   - node.started  — узел перешёл в RUNNING
//   - node.finished — узел финализирован (COMPLETED или FAILED)
//
// Exchanges:
//   - treework.nodes — события узлов
package mq
