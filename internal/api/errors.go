package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/service"
)

// writeError переводит ошибку сервиса в HTTP-ответ
func (h *Handler) writeError(c *gin.Context, err error) {
	status, code := classify(err)
	message := err.Error()

	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			message = "internal error, try again later"
		}
	}

	failure(c, status, code, message)
}

var errUnauthenticated = errors.New(userHeader + " header is required")

// badRequestError: запрос не разобран (параметры, тело, заголовки)
type badRequestError struct {
	message string
}

func (e *badRequestError) Error() string { return e.message }

func errBadRequest(message string) error {
	return &badRequestError{message: message}
}

func classify(err error) (int, string) {
	var (
		badRequest    *badRequestError
		invalidWindow *service.InvalidWindowError
	)
	switch {
	case errors.As(err, &badRequest):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.As(err, &invalidWindow):
		return http.StatusUnprocessableEntity, "INVALID_WINDOW"
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR"
	case errors.Is(err, service.ErrSlotFull):
		return http.StatusConflict, "SLOT_FULL"
	case errors.Is(err, service.ErrAlreadyBooked):
		return http.StatusConflict, "ALREADY_BOOKED"
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, service.ErrSlotCancelled):
		return http.StatusConflict, "SLOT_CANCELLED"
	case errors.Is(err, service.ErrSlotExpired):
		return http.StatusGone, "SLOT_EXPIRED"
	case errors.Is(err, service.ErrSlotNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, service.ErrTemporary):
		return http.StatusServiceUnavailable, "TRY_AGAIN"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
