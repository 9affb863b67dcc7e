// Package steps содержит реализации рабочих функций для узлов графа.
//
// Step — исполнитель конкретного типа узла: получает конфигурацию из
// NodeDef, выполняет действие и возвращает ошибку при неудаче. Адаптер
// Workers превращает Step в graph.WorkFunc: успех транслируется в
// MarkCompleted, ошибка или паника — в MarkFailed, так что рабочая
// функция не может "сбежать" без финализации и подвесить граф.
//
// Типы шагов:
//   - delay — пауза ({"duration_sec": 5} или {"duration_ms": 500})
//   - http  — HTTP запрос ({"method": "GET", "url": "...", "timeout_sec": 30})
//   - noop  — мгновенный успех
//   - fail  — гарантированный провал ({"message": "..."}), для тестов
//     и отладки политики упавших родителей
//
// Registry — реестр шагов по типу; DefaultRegistry регистрирует все
// стандартные. Retry-логики нет: узел либо завершается, либо падает.
package steps
