// Package events публикует события жизненного цикла записей для внешних потребителей
// (уведомления, календарь). Доставка на их стороне; ошибка публикации не отменяет запись.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

type EventType string

const (
	BookingCreated   EventType = "booking.created"
	BookingConfirmed EventType = "booking.confirmed"
	BookingCancelled EventType = "booking.cancelled"
)

const subjectPrefix = "lessons."

// Subject: NATS subject события
func (t EventType) Subject() string {
	return subjectPrefix + string(t)
}

type BookingEvent struct {
	ID         uuid.UUID           `json:"id"`
	Type       EventType           `json:"event_type"`
	BookingID  int64               `json:"booking_id"`
	SlotID     int64               `json:"slot_id"`
	CoachID    int64               `json:"coach_id"`
	GymnastID  int64               `json:"gymnast_id"`
	Status     model.BookingStatus `json:"status"`
	Date       string              `json:"date,omitempty"`
	StartTime  string              `json:"start_time,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// NewBookingEvent собирает событие по записи
func NewBookingEvent(eventType EventType, booking *model.Booking, at time.Time) BookingEvent {
	event := BookingEvent{
		ID:         uuid.New(),
		Type:       eventType,
		BookingID:  booking.ID,
		SlotID:     booking.SlotID,
		CoachID:    booking.CoachID,
		GymnastID:  booking.GymnastID,
		Status:     booking.Status,
		OccurredAt: at,
	}
	if booking.Slot != nil {
		event.Date = model.FormatDate(booking.Slot.Date)
		event.StartTime = booking.Slot.StartTime.String()
	}
	return event
}

type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

// Nop: публикация выключена
type Nop struct{}

func (Nop) Publish(context.Context, BookingEvent) error { return nil }

// Recorder запоминает события в памяти (режим разработки и тесты)
type Recorder struct {
	mu     sync.Mutex
	events []BookingEvent
}

func (r *Recorder) Publish(_ context.Context, event BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events возвращает копию опубликованных событий
func (r *Recorder) Events() []BookingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]BookingEvent, len(r.events))
	copy(out, r.events)
	return out
}
