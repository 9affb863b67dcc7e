// Package telemetry содержит настройку структурированного логирования
// и метрики Prometheus для наблюдения за исполнением графов.
package telemetry
