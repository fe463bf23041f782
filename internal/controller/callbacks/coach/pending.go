package coach

import (
	"context"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/common"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ========================
// Coach Approval Handlers
// ========================

// HandleApproveBooking подтверждает запись, ожидающую решения тренера
func HandleApproveBooking(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	decide(ctx, b, callback, h, func(hc *common.HandlerContext, bookingID int64) (*model.Booking, error) {
		return h.BookingService.Confirm(hc.Ctx, bookingID, hc.User.ID)
	}, "✅ Запись подтверждена", "✅ Тренер подтвердил запись")
}

// HandleRejectBooking отклоняет запись; место в слоте освобождается
func HandleRejectBooking(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	decide(ctx, b, callback, h, func(hc *common.HandlerContext, bookingID int64) (*model.Booking, error) {
		return h.SchedulingService.CancelBooking(hc.Ctx, bookingID, hc.User.ID)
	}, "🚫 Запись отклонена", "🚫 Тренер отклонил запись")
}

func decide(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	apply func(*common.HandlerContext, int64) (*model.Booking, error),
	coachTitle, guardianTitle string,
) {
	bookingID, err := common.ParseIDFromCallback(callback.Data)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrInvalidFormat))
		return
	}

	common.WithCoach(ctx, b, callback, h, func(hc *common.HandlerContext) {
		booking, err := apply(hc, bookingID)
		if err != nil {
			common.HandleError(hc, err, "decide_booking")
			return
		}

		today := clock.Today(h.Clock)
		details := formatting.FormatBooking(booking, today, common.ApparatusTitle(booking.Event))
		if err := hc.EditMessage(coachTitle+"\n\n"+details, nil); err != nil {
			h.Logger.Warn("Failed to update pending message", zap.Error(err))
		}
		common.LogAndAnswer(hc, "Pending booking decided", coachTitle)

		guardian, err := h.UserService.GetByID(hc.Ctx, booking.BookedByUserID)
		if err != nil || guardian.TelegramID == 0 || guardian.ID == hc.User.ID {
			return
		}
		if _, err := hc.Bot.SendMessage(hc.Ctx, &bot.SendMessageParams{
			ChatID:    guardian.TelegramID,
			Text:      guardianTitle + "\n\n" + details,
			ParseMode: models.ParseModeHTML,
		}); err != nil {
			h.Logger.Warn("Failed to notify guardian",
				zap.Int64("booking_id", booking.ID),
				zap.Error(err))
		}
	})
}
