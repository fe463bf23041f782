package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusPartial   SlotStatus = "partial"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusCancelled SlotStatus = "cancelled"
)

// SlotState: хранимое состояние слота; занятость считается по записям
type SlotState string

const (
	SlotStateActive    SlotState = "active"
	SlotStateCancelled SlotState = "cancelled"
)

type SlotKind string

const (
	SlotKindVirtual   SlotKind = "virtual"
	SlotKindPersisted SlotKind = "persisted"
)

// virtualSlotNamespace используется для детерминированных ключей виртуальных слотов
var virtualSlotNamespace = uuid.MustParse("5b7c4a52-3c1e-4f0e-9a57-0f1c2d6e8a41")

// SlotCoordinate однозначно определяет слот тренера: (coach, date, start)
type SlotCoordinate struct {
	CoachID   int64     `json:"coach_id"`
	Date      time.Time `json:"date"`
	StartTime TimeOfDay `json:"start_time"`
}

// LockKey возвращает ключ для критической секции по координате
func (c SlotCoordinate) LockKey() string {
	return fmt.Sprintf("slot:%d:%s:%02d%02d", c.CoachID, FormatDate(c.Date), c.StartTime.Hour(), c.StartTime.Minute())
}

// BookableSlot: слот из календаря: либо *Slot (сохранён), либо *VirtualSlot (вычислен).
// Реализации только в этом пакете, поэтому у виртуального слота нельзя взять несуществующий ID.
type BookableSlot interface {
	Kind() SlotKind
	Key() string
	Coordinate() SlotCoordinate
	End() TimeOfDay
	Capacity() int
	Status() SlotStatus
	Generated() bool
	WindowID() *int64

	bookable()
}

// Slot: сохранённый слот (строка в slots)
type Slot struct {
	ID                   int64     `json:"id"`
	CoachID              int64     `json:"coach_id"`
	Date                 time.Time `json:"date"`
	StartTime            TimeOfDay `json:"start_time"`
	EndTime              TimeOfDay `json:"end_time"`
	MaxGymnasts          int       `json:"max_gymnasts"`
	State                SlotState `json:"state"`
	Materialized         bool      `json:"materialized"` // создан из виртуального слота
	AvailabilityWindowID *int64    `json:"availability_window_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`

	// Не из таблицы slots: количество активных (pending/confirmed) записей
	BookedCount int `json:"booked_count"`
}

func (s *Slot) Kind() SlotKind   { return SlotKindPersisted }
func (s *Slot) Key() string      { return fmt.Sprintf("p:%d", s.ID) }
func (s *Slot) End() TimeOfDay   { return s.EndTime }
func (s *Slot) Capacity() int    { return s.MaxGymnasts }
func (s *Slot) Generated() bool  { return false }
func (s *Slot) WindowID() *int64 { return s.AvailabilityWindowID }
func (s *Slot) bookable()        {}

func (s *Slot) Coordinate() SlotCoordinate {
	return SlotCoordinate{CoachID: s.CoachID, Date: s.Date, StartTime: s.StartTime}
}

// Status вычисляет статус по числу активных записей
func (s *Slot) Status() SlotStatus {
	if s.State == SlotStateCancelled {
		return SlotStatusCancelled
	}
	return DeriveSlotStatus(s.BookedCount, s.MaxGymnasts)
}

// Remaining возвращает количество свободных мест
func (s *Slot) Remaining() int {
	if s.State == SlotStateCancelled || s.BookedCount >= s.MaxGymnasts {
		return 0
	}
	return s.MaxGymnasts - s.BookedCount
}

// VirtualSlot: слот, вычисленный из окна доступности и ещё не сохранённый
type VirtualSlot struct {
	CoachID              int64     `json:"coach_id"`
	Date                 time.Time `json:"date"`
	StartTime            TimeOfDay `json:"start_time"`
	EndTime              TimeOfDay `json:"end_time"`
	MaxGymnasts          int       `json:"max_gymnasts"`
	AvailabilityWindowID int64     `json:"availability_window_id"`
}

func (v *VirtualSlot) Kind() SlotKind     { return SlotKindVirtual }
func (v *VirtualSlot) End() TimeOfDay     { return v.EndTime }
func (v *VirtualSlot) Capacity() int      { return v.MaxGymnasts }
func (v *VirtualSlot) Status() SlotStatus { return SlotStatusAvailable }
func (v *VirtualSlot) Generated() bool    { return true }
func (v *VirtualSlot) bookable()          {}

func (v *VirtualSlot) WindowID() *int64 {
	id := v.AvailabilityWindowID
	return &id
}

func (v *VirtualSlot) Coordinate() SlotCoordinate {
	return SlotCoordinate{CoachID: v.CoachID, Date: v.Date, StartTime: v.StartTime}
}

// Key: синтетический идентификатор из (окно, дата, начало)
func (v *VirtualSlot) Key() string {
	name := fmt.Sprintf("%d/%s/%s", v.AvailabilityWindowID, FormatDate(v.Date), v.StartTime)
	return "v:" + uuid.NewSHA1(virtualSlotNamespace, []byte(name)).String()
}

// Persist превращает виртуальный слот в строку для вставки
func (v *VirtualSlot) Persist() *Slot {
	windowID := v.AvailabilityWindowID
	return &Slot{
		CoachID:              v.CoachID,
		Date:                 v.Date,
		StartTime:            v.StartTime,
		EndTime:              v.EndTime,
		MaxGymnasts:          v.MaxGymnasts,
		State:                SlotStateActive,
		Materialized:         true,
		AvailabilityWindowID: &windowID,
	}
}

// DeriveSlotStatus: available без записей, partial пока есть места, booked когда мест нет
func DeriveSlotStatus(count, maxGymnasts int) SlotStatus {
	switch {
	case count >= maxGymnasts:
		return SlotStatusBooked
	case count > 0:
		return SlotStatusPartial
	default:
		return SlotStatusAvailable
	}
}
