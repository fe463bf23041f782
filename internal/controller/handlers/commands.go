package handlers

import (
	"context"
	"fmt"
	"html"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/common"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// maxListedBookings: сколько записей показывать отдельными сообщениями
const maxListedBookings = 10

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From

	// Регистрируем пользователя
	user, err := h.deps.UserService.RegisterTelegramUser(ctx, from.ID, from.Username, from.FirstName, from.LastName)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.", nil)
		return
	}

	menu, kb := common.BuildMainMenuScreen(user)
	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\nЭтот бот помогает записывать гимнастов на частные занятия с тренерами зала.\n\n%s",
		html.EscapeString(user.FirstName),
		menu,
	)
	h.sendMessage(ctx, b, update.Message.Chat.ID, welcomeText, kb)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := "📚 Справка по командам:\n\n" +
		"/start - Начать работу с ботом\n" +
		"/lessons - Записать гимнаста на частное занятие\n" +
		"/mybookings - Предстоящие записи\n" +
		"/help - Показать эту справку\n\n" +
		"Для тренеров:\n" +
		"/pending - Записи, ожидающие подтверждения\n\n" +
		"Расписание тренеров и ростер гимнастов ведёт администратор зала."

	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText, nil)
}

// HandleLessons обрабатывает команду /lessons: список тренеров для записи
func (h *Handlers) HandleLessons(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	coaches, err := common.CoachesForUser(ctx, h.deps, user)
	if err != nil {
		h.logger.Warn("Failed to list coaches", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendMessage(ctx, b, update.Message.Chat.ID, common.ErrorMessage(err), nil)
		return
	}

	text, kb := common.BuildCoachesScreen(coaches)
	h.sendMessage(ctx, b, update.Message.Chat.ID, text, kb)
}

// HandleMyBookings обрабатывает команду /mybookings
func (h *Handlers) HandleMyBookings(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	bookings, err := h.deps.SchedulingService.ListBookings(ctx, model.BookingFilter{RequesterID: &user.ID}, model.DateFilterUpcoming)
	if err != nil {
		h.logger.Error("Failed to get bookings", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendMessage(ctx, b, chatID, "❌ Не удалось загрузить ваши записи.", nil)
		return
	}

	// Тренер видит ещё и записи к себе
	var coachBookings []*model.Booking
	if user.IsCoach {
		coachBookings, err = h.deps.SchedulingService.ListBookings(ctx, model.BookingFilter{CoachID: &user.ID}, model.DateFilterUpcoming)
		if err != nil {
			h.logger.Error("Failed to get coach bookings", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	if len(bookings) == 0 && len(coachBookings) == 0 {
		text, kb := common.BuildEmptyBookingsScreen()
		h.sendMessage(ctx, b, chatID, text, kb)
		return
	}

	if len(bookings) > 0 {
		h.sendMessage(ctx, b, chatID, fmt.Sprintf("📅 <b>Ваши записи</b>: %d %s",
			len(bookings), formatting.PluralizeBookings(len(bookings))), nil)
		h.sendBookings(ctx, b, chatID, bookings, false)
	}
	if len(coachBookings) > 0 {
		h.sendMessage(ctx, b, chatID, fmt.Sprintf("🤸 <b>Записи к вам</b>: %d %s",
			len(coachBookings), formatting.PluralizeBookings(len(coachBookings))), nil)
		h.sendBookings(ctx, b, chatID, coachBookings, true)
	}
}

// HandlePending обрабатывает команду /pending: записи, ожидающие решения тренера
func (h *Handlers) HandlePending(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireCoach(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	pending, err := h.deps.BookingService.PendingForCoach(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to get pending bookings", zap.Int64("coach_id", user.ID), zap.Error(err))
		h.sendMessage(ctx, b, chatID, "❌ Не удалось загрузить записи.", nil)
		return
	}

	if len(pending) == 0 {
		h.sendMessage(ctx, b, chatID, "✅ Нет записей, ожидающих подтверждения.", nil)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("⏳ <b>Ждут подтверждения</b>: %d %s",
		len(pending), formatting.PluralizeBookings(len(pending))), nil)
	h.sendBookings(ctx, b, chatID, pending, true)
}

// sendBookings отправляет каждую запись отдельным сообщением с кнопками
func (h *Handlers) sendBookings(ctx context.Context, b *bot.Bot, chatID int64, bookings []*model.Booking, asCoach bool) {
	today := clock.Today(h.deps.Clock)
	for i, booking := range bookings {
		if i == maxListedBookings {
			h.sendMessage(ctx, b, chatID, fmt.Sprintf("… и ещё %d", len(bookings)-maxListedBookings), nil)
			return
		}
		text := formatting.FormatBooking(booking, today, common.ApparatusTitle(booking.Event))
		h.sendMessage(ctx, b, chatID, text, common.BookingActions(booking, today, asCoach))
	}
}
