package guardian

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/common"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ========================
// Guardian Booking Handlers
// ========================

// HandlePickCoach показывает дни, в которые у тренера есть свободное время
func HandlePickCoach(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	coachID, err := common.ParseIDFromCallback(callback.Data)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrInvalidFormat))
		return
	}

	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		today := clock.Today(h.Clock)
		slots, err := h.SchedulingService.ListBookableSlots(hc.Ctx, model.ForCoach(coachID), today, today.AddDate(0, 0, h.DaysAhead-1))
		if err != nil {
			common.HandleError(hc, err, "list_coach_days")
			return
		}
		packages, err := h.CoachService.ListPackages(hc.Ctx, coachID, true)
		if err != nil {
			common.HandleError(hc, err, "list_packages")
			return
		}

		text, kb := common.BuildCoachDaysScreen(coachID, slots, packages)
		if err := hc.EditMessage(text, kb); err != nil {
			common.HandleError(hc, err, "list_coach_days")
			return
		}
		hc.Answer("")
	})
}

// HandlePickDay показывает свободные слоты выбранного дня
func HandlePickDay(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	pick, err := common.ParseSlotPick(callback.Data, 2)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		slots, err := h.SchedulingService.ListBookableSlots(hc.Ctx, model.ForCoach(pick.CoachID), pick.Date, pick.Date)
		if err != nil {
			common.HandleError(hc, err, "list_day_slots")
			return
		}

		text, kb := common.BuildDaySlotsScreen(pick, slots)
		if err := hc.EditMessage(text, kb); err != nil {
			common.HandleError(hc, err, "list_day_slots")
			return
		}
		hc.Answer("")
	})
}

// HandlePickSlot предлагает выбрать гимнаста для записи
func HandlePickSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	pick, err := common.ParseSlotPick(callback.Data, 3)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		gymnasts, err := h.UserService.ListGymnasts(hc.Ctx, hc.User.ID)
		if err != nil {
			common.HandleError(hc, err, "list_gymnasts")
			return
		}
		if len(gymnasts) == 0 {
			hc.AnswerAlert(common.ErrorMessage(common.ErrNoGymnasts))
			return
		}

		text, kb := common.BuildGymnastsScreen(pick, gymnasts)
		if err := hc.EditMessage(text, kb); err != nil {
			common.HandleError(hc, err, "pick_slot")
			return
		}
		hc.Answer("")
	})
}

// HandlePickGymnast предлагает выбрать снаряд
func HandlePickGymnast(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	pick, err := common.ParseSlotPick(callback.Data, 4)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		text, kb := common.BuildEventsScreen(pick)
		if err := hc.EditMessage(text, kb); err != nil {
			common.HandleError(hc, err, "pick_gymnast")
			return
		}
		hc.Answer("")
	})
}

// HandleBook записывает гимнаста на выбранный слот
func HandleBook(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	pick, err := common.ParseSlotPick(callback.Data, 5)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		// Календарь мог измениться, пока пользователь выбирал: перечитываем слот
		slot, err := h.SchedulingService.ResolveSlot(hc.Ctx, service.SlotRef{
			CoachID:   pick.CoachID,
			Date:      pick.Date,
			StartTime: pick.Start,
		})
		if err != nil {
			common.HandleError(hc, err, "resolve_slot")
			return
		}

		booking, err := h.SchedulingService.BookSlot(hc.Ctx, service.BookRequest{
			Slot:        slot,
			GymnastID:   pick.GymnastID,
			Event:       common.Apparatuses[pick.Event].Code,
			RequesterID: hc.User.ID,
		})
		if err != nil {
			h.Logger.Warn("Failed to book slot",
				zap.Int64("user_id", hc.User.ID),
				zap.String("slot", slot.Key()),
				zap.Error(err))
			hc.AnswerAlert(common.ErrorMessage(err))
			return
		}

		text, kb := common.BuildBookingSuccessScreen(booking, clock.Today(h.Clock))
		if err := hc.EditMessage(text, kb); err != nil {
			h.Logger.Warn("Failed to show booking result", zap.Error(err))
		}
		hc.Answer("✅ Запись создана")

		notifyCoach(hc, booking)
	})
}

// notifyCoach отправляет тренеру сообщение о новой записи
func notifyCoach(hc *common.HandlerContext, booking *model.Booking) {
	h := hc.Handler
	coach, err := h.UserService.GetByID(hc.Ctx, booking.CoachID)
	if err != nil || coach.TelegramID == 0 {
		return
	}

	title := "🆕 <b>Новая запись</b>"
	var kb *models.InlineKeyboardMarkup
	if booking.Status == model.BookingStatusPending {
		title = "⏳ <b>Новая запись ждёт подтверждения</b>"
		kb = common.BookingActions(booking, clock.Today(h.Clock), true)
	}

	text := fmt.Sprintf("%s\n\n👤 Записал: %s\n%s",
		title,
		html.EscapeString(strings.TrimSpace(hc.User.FirstName+" "+hc.User.LastName)),
		formatting.FormatBooking(booking, clock.Today(h.Clock), common.ApparatusTitle(booking.Event)),
	)

	params := &bot.SendMessageParams{
		ChatID:    coach.TelegramID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := hc.Bot.SendMessage(hc.Ctx, params); err != nil {
		h.Logger.Warn("Failed to notify coach",
			zap.Int64("coach_id", booking.CoachID),
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}
}

// HandleCancelBooking спрашивает подтверждение отмены
func HandleCancelBooking(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	bookingID, err := common.ParseIDFromCallback(callback.Data)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrInvalidFormat))
		return
	}

	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		booking, err := h.BookingService.Get(hc.Ctx, bookingID)
		if err != nil {
			common.HandleError(hc, err, "get_booking")
			return
		}
		if booking.BookedByUserID != hc.User.ID && booking.CoachID != hc.User.ID {
			hc.AnswerAlert(common.ErrorMessage(service.ErrForbidden))
			return
		}

		text, kb := common.BuildCancelConfirmScreen(booking, clock.Today(h.Clock))
		if err := hc.SendMessage(text, kb); err != nil {
			common.HandleError(hc, err, "cancel_booking")
			return
		}
		hc.Answer("")
	})
}

// HandleConfirmCancel отменяет запись после подтверждения
func HandleConfirmCancel(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	bookingID, err := common.ParseIDFromCallback(callback.Data)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrInvalidFormat))
		return
	}

	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		booking, err := h.SchedulingService.CancelBooking(hc.Ctx, bookingID, hc.User.ID)
		if err != nil {
			common.HandleError(hc, err, "confirm_cancel")
			return
		}

		text := "❌ Запись отменена\n\n" +
			formatting.FormatBooking(booking, clock.Today(h.Clock), common.ApparatusTitle(booking.Event))
		kb := keyboard.NewBuilder().Row(keyboard.Button("🤸 Записаться снова", common.Lessons)).Build()
		if err := hc.EditMessage(text, kb); err != nil {
			h.Logger.Warn("Failed to show cancel result", zap.Error(err))
		}
		common.LogAndAnswer(hc, "Booking cancelled via bot", "Запись отменена")
	})
}
