package api

import (
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
)

type slotResponse struct {
	Key         string           `json:"key"`
	Kind        model.SlotKind   `json:"kind"`
	SlotID      *int64           `json:"slot_id,omitempty"`
	CoachID     int64            `json:"coach_id"`
	Date        string           `json:"date"`
	StartTime   model.TimeOfDay  `json:"start_time"`
	EndTime     model.TimeOfDay  `json:"end_time"`
	Status      model.SlotStatus `json:"status"`
	MaxGymnasts int              `json:"max_gymnasts"`
	Booked      int              `json:"booked"`
	IsGenerated bool             `json:"is_generated"`
	WindowID    *int64           `json:"availability_window_id,omitempty"`
}

func toSlotResponse(s model.BookableSlot) slotResponse {
	coord := s.Coordinate()
	resp := slotResponse{
		Key:         s.Key(),
		Kind:        s.Kind(),
		CoachID:     coord.CoachID,
		Date:        model.FormatDate(coord.Date),
		StartTime:   coord.StartTime,
		EndTime:     s.End(),
		Status:      s.Status(),
		MaxGymnasts: s.Capacity(),
		IsGenerated: s.Generated(),
		WindowID:    s.WindowID(),
	}
	if persisted, ok := s.(*model.Slot); ok {
		id := persisted.ID
		resp.SlotID = &id
		resp.Booked = persisted.BookedCount
	}
	return resp
}

func toSlotResponses(slots []model.BookableSlot) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResponse(s))
	}
	return out
}

type bookingResponse struct {
	ID             int64               `json:"id"`
	SlotID         int64               `json:"slot_id"`
	CoachID        int64               `json:"coach_id"`
	GymnastID      int64               `json:"gymnast_id"`
	BookedByUserID int64               `json:"booked_by_user_id"`
	Event          string              `json:"event"`
	Status         model.BookingStatus `json:"status"`
	Notes          string              `json:"notes,omitempty"`
	Date           string              `json:"date,omitempty"`
	StartTime      *model.TimeOfDay    `json:"start_time,omitempty"`
	EndTime        *model.TimeOfDay    `json:"end_time,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
}

func toBookingResponse(b *model.Booking) bookingResponse {
	resp := bookingResponse{
		ID:             b.ID,
		SlotID:         b.SlotID,
		CoachID:        b.CoachID,
		GymnastID:      b.GymnastID,
		BookedByUserID: b.BookedByUserID,
		Event:          b.Event,
		Status:         b.Status,
		Notes:          b.Notes,
		CreatedAt:      b.CreatedAt,
		CancelledAt:    b.CancelledAt,
	}
	if b.Slot != nil {
		start, end := b.Slot.StartTime, b.Slot.EndTime
		resp.Date = model.FormatDate(b.Slot.Date)
		resp.StartTime = &start
		resp.EndTime = &end
	}
	return resp
}

func toBookingResponses(bookings []*model.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

// slotRefRequest: ссылка на слот: slot_id или (coach_id, date, start_time)
type slotRefRequest struct {
	SlotID    *int64           `json:"slot_id"`
	CoachID   int64            `json:"coach_id"`
	Date      string           `json:"date"`
	StartTime *model.TimeOfDay `json:"start_time"`
}

func (r slotRefRequest) toRef() (service.SlotRef, error) {
	ref := service.SlotRef{SlotID: r.SlotID, CoachID: r.CoachID}
	if r.SlotID != nil {
		return ref, nil
	}
	if r.Date == "" || r.StartTime == nil {
		return ref, errBadRequest("slot_id or coach_id, date and start_time are required")
	}
	date, err := model.ParseDate(r.Date)
	if err != nil {
		return ref, errBadRequest(err.Error())
	}
	ref.Date = date
	ref.StartTime = *r.StartTime
	return ref, nil
}

type createBookingRequest struct {
	slotRefRequest
	GymnastID int64  `json:"gymnast_id" binding:"required"`
	Event     string `json:"event" binding:"required"`
	Notes     string `json:"notes"`
}

type windowRequest struct {
	DayOfWeek      *int            `json:"day_of_week" binding:"required"`
	StartTime      model.TimeOfDay `json:"start_time"`
	EndTime        model.TimeOfDay `json:"end_time"`
	EffectiveFrom  string          `json:"effective_from"`
	EffectiveUntil string          `json:"effective_until"`
	IsActive       *bool           `json:"is_active"`
}

func (r windowRequest) toInput() (service.WindowInput, error) {
	in := service.WindowInput{
		DayOfWeek: *r.DayOfWeek,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		IsActive:  r.IsActive,
	}
	var err error
	if in.EffectiveFrom, err = optionalDate(r.EffectiveFrom); err != nil {
		return in, err
	}
	if in.EffectiveUntil, err = optionalDate(r.EffectiveUntil); err != nil {
		return in, err
	}
	return in, nil
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return nil, errBadRequest(err.Error())
	}
	return &d, nil
}

type profileRequest struct {
	HubID                  int64  `json:"hub_id" binding:"required"`
	DisplayName            string `json:"display_name"`
	DefaultDurationMinutes *int   `json:"default_duration_minutes"`
	DefaultMaxGymnasts     int    `json:"default_max_gymnasts"`
	IsActive               *bool  `json:"is_active"`
}

type hubRequest struct {
	Name                string `json:"name" binding:"required"`
	AutoConfirmBookings bool   `json:"auto_confirm_bookings"`
}

type gymnastRequest struct {
	HubID    int64  `json:"hub_id" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
}

type directChannelRequest struct {
	RecipientID int64 `json:"recipient_id" binding:"required"`
}
