package callbacks

import (
	"context"
	"strings"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/coach"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/common"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/guardian"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ========================
// Main Callback Router
// ========================

// Route распределяет callback query по соответствующим обработчикам
func Route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	data := callback.Data

	h.Logger.Debug("Routing callback",
		zap.String("data", data),
		zap.Int64("user_id", callback.From.ID))

	switch {
	// ===== Common Navigation =====
	case data == common.BackToMain:
		common.HandleBackToMain(ctx, b, callback, h)
	case data == common.Lessons:
		common.HandleLessons(ctx, b, callback, h)
	case data == common.Noop:
		common.AnswerCallback(ctx, b, callback.ID, "")

	// ===== Guardian: Booking Dialog =====
	case strings.HasPrefix(data, common.PickCoach):
		guardian.HandlePickCoach(ctx, b, callback, h)
	case strings.HasPrefix(data, common.PickDay):
		guardian.HandlePickDay(ctx, b, callback, h)
	case strings.HasPrefix(data, common.PickSlot):
		guardian.HandlePickSlot(ctx, b, callback, h)
	case strings.HasPrefix(data, common.PickGymnast):
		guardian.HandlePickGymnast(ctx, b, callback, h)
	case strings.HasPrefix(data, common.PickEvent):
		guardian.HandleBook(ctx, b, callback, h)

	// ===== Cancellation =====
	case strings.HasPrefix(data, common.ConfirmCancel):
		guardian.HandleConfirmCancel(ctx, b, callback, h)
	case strings.HasPrefix(data, common.CancelBooking):
		guardian.HandleCancelBooking(ctx, b, callback, h)

	// ===== Coach: Pending Approvals =====
	case strings.HasPrefix(data, common.ApproveBooking):
		coach.HandleApproveBooking(ctx, b, callback, h)
	case strings.HasPrefix(data, common.RejectBooking):
		coach.HandleRejectBooking(ctx, b, callback, h)

	default:
		h.Logger.Warn("Unknown callback", zap.String("data", data))
		common.AnswerCallback(ctx, b, callback.ID, "❓ Неизвестная команда")
	}
}
