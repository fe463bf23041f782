package clock

import (
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

// Clock: источник текущего времени
type Clock interface {
	Now() time.Time
}

// Real возвращает системное время в часовом поясе зала
type Real struct {
	Location *time.Location
}

func (c Real) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Fixed всегда возвращает одно и то же время (для тестов и пересчётов)
type Fixed time.Time

func (c Fixed) Now() time.Time {
	return time.Time(c)
}

// Today возвращает сегодняшнюю календарную дату по часам c
func Today(c Clock) time.Time {
	return model.DateOf(c.Now())
}
