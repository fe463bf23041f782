package common

import (
	"errors"

	"github.com/Freeeeeet/lesson_scheduler/internal/service"
)

// Общие ошибки для обработчиков
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrNotACoach     = errors.New("user is not a coach")
	ErrNoGymnasts    = errors.New("user has no gymnasts")
	ErrNoMessage     = errors.New("no message in callback")
	ErrInvalidFormat = errors.New("invalid callback format")
)

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "❌ Пользователь не найден. Используйте /start"
	case errors.Is(err, ErrNotACoach):
		return "❌ Эта функция доступна только тренерам"
	case errors.Is(err, ErrNoGymnasts):
		return "❌ За вами не закреплено ни одного гимнаста"
	case errors.Is(err, ErrNoMessage):
		return "❌ Ошибка обработки сообщения"
	case errors.Is(err, ErrInvalidFormat):
		return "❌ Неверный формат данных"
	case errors.Is(err, service.ErrSlotFull):
		return "😔 Мест больше нет, выберите другое время"
	case errors.Is(err, service.ErrAlreadyBooked):
		return "ℹ️ Гимнаст уже записан на это время"
	case errors.Is(err, service.ErrSlotExpired):
		return "⌛ Это время уже прошло"
	case errors.Is(err, service.ErrSlotCancelled):
		return "⚫️ Тренер отменил это занятие"
	case errors.Is(err, service.ErrSlotNotFound):
		return "❌ Слот не найден"
	case errors.Is(err, service.ErrBookingNotFound):
		return "❌ Запись не найдена"
	case errors.Is(err, service.ErrInvalidTransition):
		return "❌ Запись уже нельзя изменить"
	case errors.Is(err, service.ErrForbidden):
		return "🚫 Недостаточно прав"
	case errors.Is(err, service.ErrTemporary):
		return "⏳ Сервис занят, попробуйте ещё раз"
	case errors.Is(err, service.ErrValidation):
		return "❌ Некорректные данные"
	case errors.Is(err, service.ErrNotFound):
		return "❌ Не найдено"
	default:
		return "❌ Произошла ошибка"
	}
}
