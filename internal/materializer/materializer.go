// Package materializer строит список слотов, доступных для записи, из регулярных окон
// тренеров и уже сохранённых слотов. Пакет не делает I/O: всё нужное передаётся во Input.
package materializer

import (
	"sort"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

const (
	// DefaultLessonMinutes используется, если у тренера нет ни пакетов, ни настройки в профиле
	DefaultLessonMinutes = 30
	// DefaultMaxGymnasts используется, если в профиле тренера не задана вместимость
	DefaultMaxGymnasts = 1
)

// Input: всё, что нужно для построения календаря
type Input struct {
	Scope model.CoachScope
	From  time.Time
	To    time.Time
	Today time.Time

	Windows   []*model.AvailabilityWindow
	Persisted []*model.Slot
	Packages  []*model.LessonPackage
	Profiles  map[int64]*model.CoachProfile

	DefaultDurationMinutes int
	DefaultMaxGymnasts     int
}

// Span: отрезок [Start, End) внутри дня
type Span struct {
	Start model.TimeOfDay
	End   model.TimeOfDay
}

// Materialize возвращает сохранённые и виртуальные слоты за [From, To], отсортированные по (дата, начало).
// Даты раньше Today пропускаются, отменённые сохранённые слоты в выдачу не попадают,
// но занимают свою координату.
func Materialize(in Input) []model.BookableSlot {
	from := model.DateOf(in.From)
	to := model.DateOf(in.To)
	today := model.DateOf(in.Today)
	if from.Before(today) {
		from = today
	}
	if to.Before(from) {
		return []model.BookableSlot{}
	}

	occupied := make(map[model.SlotCoordinate]struct{}, len(in.Persisted))
	result := make([]model.BookableSlot, 0, len(in.Persisted))

	for _, slot := range in.Persisted {
		coord := normalize(slot.Coordinate())
		occupied[coord] = struct{}{}

		if slot.State == model.SlotStateCancelled {
			continue
		}
		if coord.Date.Before(from) || coord.Date.After(to) {
			continue
		}
		if !in.Scope.Includes(slot.CoachID, in.Profiles[slot.CoachID]) {
			continue
		}
		result = append(result, slot)
	}

	durations := make(map[int64]int)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		for _, window := range in.Windows {
			profile := in.Profiles[window.CoachID]
			if !in.Scope.Includes(window.CoachID, profile) || !window.AppliesOn(day) {
				continue
			}

			duration, ok := durations[window.CoachID]
			if !ok {
				duration = LessonDuration(window.CoachID, in.Packages, profile, in.DefaultDurationMinutes)
				durations[window.CoachID] = duration
			}

			for _, span := range Tile(window.StartTime, window.EndTime, duration) {
				coord := model.SlotCoordinate{CoachID: window.CoachID, Date: day, StartTime: span.Start}
				if _, taken := occupied[coord]; taken {
					continue
				}
				occupied[coord] = struct{}{}

				result = append(result, &model.VirtualSlot{
					CoachID:              window.CoachID,
					Date:                 day,
					StartTime:            span.Start,
					EndTime:              span.End,
					MaxGymnasts:          maxGymnasts(profile, in.DefaultMaxGymnasts),
					AvailabilityWindowID: window.ID,
				})
			}
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := normalize(result[i].Coordinate()), normalize(result[j].Coordinate())
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.StartTime < b.StartTime
	})

	return result
}

// Tile режет [start, end) на последовательные отрезки длиной minutes.
// Хвост короче minutes отбрасывается.
func Tile(start, end model.TimeOfDay, minutes int) []Span {
	if minutes <= 0 || start >= end {
		return nil
	}

	spans := make([]Span, 0, int(end-start)/minutes)
	for cur := start; cur.Add(minutes) <= end; cur = cur.Add(minutes) {
		spans = append(spans, Span{Start: cur, End: cur.Add(minutes)})
	}
	return spans
}

// LessonDuration: самый короткий активный пакет тренера, иначе длительность из профиля,
// иначе fallback (или DefaultLessonMinutes)
func LessonDuration(coachID int64, packages []*model.LessonPackage, profile *model.CoachProfile, fallback int) int {
	shortest := 0
	for _, pkg := range packages {
		if pkg.CoachID != coachID || !pkg.IsActive || pkg.DurationMinutes <= 0 {
			continue
		}
		if shortest == 0 || pkg.DurationMinutes < shortest {
			shortest = pkg.DurationMinutes
		}
	}
	if shortest > 0 {
		return shortest
	}

	if profile != nil && profile.DefaultDurationMinutes != nil && *profile.DefaultDurationMinutes > 0 {
		return *profile.DefaultDurationMinutes
	}

	if fallback > 0 {
		return fallback
	}
	return DefaultLessonMinutes
}

func maxGymnasts(profile *model.CoachProfile, fallback int) int {
	if profile != nil && profile.DefaultMaxGymnasts > 0 {
		return profile.DefaultMaxGymnasts
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultMaxGymnasts
}

func normalize(c model.SlotCoordinate) model.SlotCoordinate {
	c.Date = model.DateOf(c.Date)
	return c
}
