package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Treework/internal/domain"
)

// cronParser — парсер стандартных пятипольных cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CalculateNextDue вычисляет следующее время запуска для расписания.
//
// Cron-выражение вычисляется в timezone расписания (невалидная зона
// тихо откатывается на UTC); интервал — простое сложение. Результат
// всегда в UTC: сравнение с time.Now() в Tick не должно зависеть от
// зоны хоста.
func CalculateNextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	switch {
	case sched.IsCron():
		expr, err := cronParser.Parse(sched.CronExpr)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse cron expression %q: %w", sched.CronExpr, err)
		}
		return expr.Next(from.In(scheduleLocation(sched))).UTC(), nil

	case sched.IsInterval():
		return from.Add(time.Duration(sched.IntervalSec) * time.Second).UTC(), nil

	default:
		return time.Time{}, fmt.Errorf("schedule has neither cron_expr nor interval_sec")
	}
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	if _, err := cronParser.Parse(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}

// scheduleLocation загружает timezone расписания, UTC при ошибке.
func scheduleLocation(sched *domain.Schedule) *time.Location {
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
