package callbacktypes

import (
	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
	"go.uber.org/zap"
)

// Handler содержит общие зависимости для всех callback handlers
type Handler struct {
	UserService       *service.UserService
	SchedulingService *service.SchedulingService
	BookingService    *service.BookingService
	CoachService      *service.CoachService
	Clock             clock.Clock
	Logger            *zap.Logger

	// DaysAhead: на сколько дней вперёд показывать календарь
	DaysAhead int
}
