package common

import (
	"context"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ========================
// Common Navigation Handlers
// ========================

// HandleBackToMain возвращает пользователя к главному меню
func HandleBackToMain(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	WithUser(ctx, b, callback, h, func(hc *HandlerContext) {
		text, kb := BuildMainMenuScreen(hc.User)
		if err := hc.EditMessage(text, kb); err != nil {
			HandleError(hc, err, "back_to_main")
			return
		}
		hc.Answer("")
	})
}

// HandleLessons показывает тренеров залов, в которых занимаются гимнасты пользователя
func HandleLessons(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	WithUser(ctx, b, callback, h, func(hc *HandlerContext) {
		coaches, err := CoachesForUser(hc.Ctx, h, hc.User)
		if err != nil {
			HandleError(hc, err, "lessons")
			return
		}
		text, kb := BuildCoachesScreen(coaches)
		if err := hc.EditMessage(text, kb); err != nil {
			HandleError(hc, err, "lessons")
			return
		}
		hc.Answer("")
	})
}

// CoachesForUser собирает активных тренеров всех залов, где есть гимнасты пользователя
func CoachesForUser(ctx context.Context, h *callbacktypes.Handler, user *model.User) ([]*model.CoachProfile, error) {
	gymnasts, err := h.UserService.ListGymnasts(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(gymnasts) == 0 {
		return nil, ErrNoGymnasts
	}

	seen := make(map[int64]bool)
	var coaches []*model.CoachProfile
	for _, g := range gymnasts {
		if seen[g.HubID] {
			continue
		}
		seen[g.HubID] = true

		hubCoaches, err := h.CoachService.ListCoaches(ctx, model.ForHub(g.HubID))
		if err != nil {
			return nil, err
		}
		coaches = append(coaches, hubCoaches...)
	}
	return coaches, nil
}
