package service

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

var (
	// ErrSlotFull: в слоте не осталось мест; клиенту нужно перечитать календарь
	ErrSlotFull = errors.New("slot is full")
	// ErrSlotExpired: дата слота уже прошла
	ErrSlotExpired = errors.New("slot date has passed")
	// ErrInvalidWindow: окно доступности нарушает инварианты (см. model.InvalidWindowError)
	ErrInvalidWindow = model.ErrInvalidWindow
	// ErrMaterializationConflict обрабатывается внутри BookSlot повтором и наружу не выходит
	ErrMaterializationConflict = errors.New("slot materialization conflict")
	// ErrTemporary: повторите запрос позже
	ErrTemporary = errors.New("temporary failure, try again")

	ErrSlotNotFound      = errors.New("slot not found")
	ErrSlotCancelled     = errors.New("slot is cancelled")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrAlreadyBooked     = errors.New("gymnast is already booked for this slot")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("action is not allowed")
	ErrNotFound          = errors.New("not found")
)

// InvalidWindowError: причина, по которой окно отклонено
type InvalidWindowError = model.InvalidWindowError

// SystemActor: действие от имени администратора зала (HTTP admin, внутренние вызовы)
const SystemActor int64 = 0

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
