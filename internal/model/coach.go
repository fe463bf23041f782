package model

import "time"

// Hub: зал/команда, внутри которой работают тренеры
type Hub struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	AutoConfirmBookings bool      `json:"auto_confirm_bookings"` // новые записи сразу подтверждены
	CreatedAt           time.Time `json:"created_at"`
}

// CoachProfile: настройки тренера для частных занятий
type CoachProfile struct {
	CoachID                int64     `json:"coach_id"`
	HubID                  int64     `json:"hub_id"`
	DisplayName            string    `json:"display_name"`
	DefaultDurationMinutes *int      `json:"default_duration_minutes,omitempty"`
	DefaultMaxGymnasts     int       `json:"default_max_gymnasts"`
	IsActive               bool      `json:"is_active"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// CoachScope ограничивает выборку одним тренером или всеми тренерами зала
type CoachScope struct {
	CoachID *int64
	HubID   *int64
}

// Includes проверяет, попадает ли тренер в scope (профиль может быть nil)
func (s CoachScope) Includes(coachID int64, profile *CoachProfile) bool {
	if s.CoachID != nil && *s.CoachID != coachID {
		return false
	}
	if s.HubID != nil && (profile == nil || profile.HubID != *s.HubID) {
		return false
	}
	return true
}

// IsEmpty: scope без ограничений
func (s CoachScope) IsEmpty() bool {
	return s.CoachID == nil && s.HubID == nil
}

// ForCoach создаёт scope одного тренера
func ForCoach(coachID int64) CoachScope {
	return CoachScope{CoachID: &coachID}
}

// ForHub создаёт scope всех тренеров зала
func ForHub(hubID int64) CoachScope {
	return CoachScope{HubID: &hubID}
}
