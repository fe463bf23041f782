package model

import "time"

// LessonPackage: продаваемый формат частного занятия
type LessonPackage struct {
	ID              int64     `json:"id"`
	CoachID         int64     `json:"coach_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           int       `json:"price"` // в центах
	MaxGymnasts     int       `json:"max_gymnasts"`
	SortOrder       int       `json:"sort_order"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}
