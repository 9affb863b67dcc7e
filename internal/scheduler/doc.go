// Package scheduler реализует периодический перезапуск графа.
//
// Scheduler проверяет расписание раз в тик (обычно раз в секунду);
// когда next_due_at истёк, граф сбрасывается (Reset) и запускается
// заново. Пока предыдущий прогон не завершился, новый не начинается:
// Reset дожидается выполняющихся узлов.
//
// Структура:
//   - scheduler.go — цикл планировщика (Start, Tick)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
package scheduler
