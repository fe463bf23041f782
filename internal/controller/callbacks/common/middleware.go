package common

import (
	"context"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/callbacktypes"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// WithUser загружает автора нажатия и вызывает handler; при ошибке отвечает алертом
func WithUser(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler, handler func(*HandlerContext)) {
	guarded(ctx, b, callback, h, (*HandlerContext).LoadUser, handler)
}

// WithCoach то же, что WithUser, но пускает только тренеров
func WithCoach(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler, handler func(*HandlerContext)) {
	guarded(ctx, b, callback, h, (*HandlerContext).RequireCoach, handler)
}

func guarded(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	check func(*HandlerContext) error,
	handler func(*HandlerContext),
) {
	hc := NewHandlerContext(ctx, b, callback, h)

	if err := check(hc); err != nil {
		h.Logger.Warn("Callback rejected",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.String("data", callback.Data),
			zap.Error(err))
		hc.AnswerAlert(ErrorMessage(err))
		return
	}

	handler(hc)
}

// HandleError логирует неудачную операцию и показывает пользователю понятный текст
func HandleError(hc *HandlerContext, err error, operation string) {
	hc.Handler.Logger.Error("Callback operation failed",
		zap.String("operation", operation),
		zap.Int64("telegram_id", hc.TelegramID),
		zap.Error(err))
	hc.AnswerAlert(ErrorMessage(err))
}

// LogAndAnswer логирует действие и отвечает на callback
func LogAndAnswer(hc *HandlerContext, message string, answer string) {
	hc.Handler.Logger.Info(message,
		zap.Int64("telegram_id", hc.TelegramID),
		zap.Int64("user_id", hc.User.ID))
	hc.Answer(answer)
}
