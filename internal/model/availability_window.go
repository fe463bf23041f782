package model

import (
	"errors"
	"time"
)

// ErrInvalidWindow: окно доступности нарушает свои инварианты
var ErrInvalidWindow = errors.New("invalid availability window")

// InvalidWindowError описывает, какой инвариант окна нарушен
type InvalidWindowError struct {
	Reason string
}

func (e *InvalidWindowError) Error() string {
	return ErrInvalidWindow.Error() + ": " + e.Reason
}

func (e *InvalidWindowError) Unwrap() error {
	return ErrInvalidWindow
}

// AvailabilityWindow: регулярное еженедельное окно, в котором тренер принимает частные занятия
type AvailabilityWindow struct {
	ID             int64      `json:"id"`
	CoachID        int64      `json:"coach_id"`
	DayOfWeek      int        `json:"day_of_week"` // 0 = Sunday, 6 = Saturday
	StartTime      TimeOfDay  `json:"start_time"`
	EndTime        TimeOfDay  `json:"end_time"`
	EffectiveFrom  *time.Time `json:"effective_from,omitempty"`
	EffectiveUntil *time.Time `json:"effective_until,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Validate проверяет инварианты окна
func (w *AvailabilityWindow) Validate() error {
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		return &InvalidWindowError{Reason: "day of week must be between 0 and 6"}
	}
	if !w.StartTime.Valid() || !w.EndTime.Valid() {
		return &InvalidWindowError{Reason: "time of day out of range"}
	}
	if w.StartTime >= w.EndTime {
		return &InvalidWindowError{Reason: "start time must be before end time"}
	}
	if w.EffectiveFrom != nil && w.EffectiveUntil != nil && w.EffectiveFrom.After(*w.EffectiveUntil) {
		return &InvalidWindowError{Reason: "effective from must not be after effective until"}
	}
	return nil
}

// AppliesOn проверяет, действует ли окно в указанную дату
func (w *AvailabilityWindow) AppliesOn(date time.Time) bool {
	if !w.IsActive {
		return false
	}
	if int(date.Weekday()) != w.DayOfWeek {
		return false
	}
	if w.EffectiveFrom != nil && DateOf(*w.EffectiveFrom).After(date) {
		return false
	}
	if w.EffectiveUntil != nil && DateOf(*w.EffectiveUntil).Before(date) {
		return false
	}
	return true
}

// Intersects проверяет, пересекается ли период действия окна с [from, to]
func (w *AvailabilityWindow) Intersects(from, to time.Time) bool {
	if w.EffectiveFrom != nil && DateOf(*w.EffectiveFrom).After(to) {
		return false
	}
	if w.EffectiveUntil != nil && DateOf(*w.EffectiveUntil).Before(from) {
		return false
	}
	return true
}
