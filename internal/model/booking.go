package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает одобрения тренера
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено
	BookingStatusCompleted BookingStatus = "completed" // Завершено (вычисляется при чтении)
)

// bookingTransitions: допустимые переходы статусов записи
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusCompleted},
}

// CanTransitionTo проверяет допустимость перехода статуса
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal: из cancelled и completed переходов нет
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// IsActive: запись занимает место в слоте
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// ActiveBookingStatuses: статусы, которые занимают место в слоте
var ActiveBookingStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

type Booking struct {
	ID             int64         `json:"id"`
	SlotID         int64         `json:"slot_id"`
	CoachID        int64         `json:"coach_id"`
	GymnastID      int64         `json:"gymnast_id"`
	BookedByUserID int64         `json:"booked_by_user_id"`
	Event          string        `json:"event"`
	Status         BookingStatus `json:"status"`
	Notes          string        `json:"notes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`

	// Дополнительные поля для удобства (не из таблицы bookings)
	Slot *Slot `json:"slot,omitempty"`
}

// EffectiveStatus возвращает статус с учётом даты: подтверждённое занятие в прошлом считается completed
func (b *Booking) EffectiveStatus(today time.Time) BookingStatus {
	if b.Status == BookingStatusConfirmed && b.Slot != nil && b.Slot.Date.Before(today) {
		return BookingStatusCompleted
	}
	return b.Status
}

// BookingFilter: по какому участнику выбирать записи (ровно одно поле)
type BookingFilter struct {
	CoachID     *int64
	RequesterID *int64
	GymnastID   *int64
}

// DateFilter: окно дат для списка записей
type DateFilter string

const (
	DateFilterToday    DateFilter = "today"
	DateFilterUpcoming DateFilter = "upcoming"
	DateFilterPast     DateFilter = "past"
	DateFilterAll      DateFilter = "all"
)

// Valid проверяет значение фильтра
func (f DateFilter) Valid() bool {
	switch f {
	case DateFilterToday, DateFilterUpcoming, DateFilterPast, DateFilterAll:
		return true
	}
	return false
}

// Matches проверяет, попадает ли дата слота в фильтр
func (f DateFilter) Matches(slotDate, today time.Time) bool {
	switch f {
	case DateFilterToday:
		return slotDate.Equal(today)
	case DateFilterUpcoming:
		return !slotDate.Before(today)
	case DateFilterPast:
		return slotDate.Before(today)
	default:
		return true
	}
}
