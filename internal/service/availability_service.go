package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"go.uber.org/zap"
)

// WindowInput: редактируемые поля окна доступности
type WindowInput struct {
	DayOfWeek      int             `json:"day_of_week"`
	StartTime      model.TimeOfDay `json:"start_time"`
	EndTime        model.TimeOfDay `json:"end_time"`
	EffectiveFrom  *time.Time      `json:"effective_from,omitempty"`
	EffectiveUntil *time.Time      `json:"effective_until,omitempty"`
	IsActive       *bool           `json:"is_active,omitempty"`
}

func (in WindowInput) apply(w *model.AvailabilityWindow) {
	w.DayOfWeek = in.DayOfWeek
	w.StartTime = in.StartTime
	w.EndTime = in.EndTime
	w.EffectiveFrom = normalizeDate(in.EffectiveFrom)
	w.EffectiveUntil = normalizeDate(in.EffectiveUntil)
	w.IsActive = in.IsActive == nil || *in.IsActive
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := model.DateOf(*t)
	return &d
}

// AvailabilityService: регулярные окна, в которые тренер принимает частные занятия.
// Изменение окна не трогает уже сохранённые слоты: меняется только будущая генерация.
type AvailabilityService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewAvailabilityService(store repository.Store, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		store:  store,
		logger: logger,
	}
}

// ListApplicable возвращает активные окна scope, пересекающие [from, to]
func (s *AvailabilityService) ListApplicable(ctx context.Context, scope model.CoachScope, from, to time.Time) ([]*model.AvailabilityWindow, error) {
	windows, err := s.store.Windows().ListApplicable(ctx, scope, from, to)
	if err != nil {
		return nil, fmt.Errorf("list applicable windows: %w", err)
	}
	return windows, nil
}

// ListCoachWindows возвращает все окна тренера, включая выключенные
func (s *AvailabilityService) ListCoachWindows(ctx context.Context, coachID int64) ([]*model.AvailabilityWindow, error) {
	windows, err := s.store.Windows().ListByCoach(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("list coach windows: %w", err)
	}
	return windows, nil
}

// CreateWindow создаёт окно; при нарушении инвариантов возвращает *InvalidWindowError
func (s *AvailabilityService) CreateWindow(ctx context.Context, coachID int64, in WindowInput) (*model.AvailabilityWindow, error) {
	window := &model.AvailabilityWindow{CoachID: coachID}
	in.apply(window)

	if err := window.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Windows().Create(ctx, window); err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	s.logger.Info("Availability window created",
		zap.Int64("window_id", window.ID),
		zap.Int64("coach_id", coachID),
		zap.Int("day_of_week", window.DayOfWeek),
		zap.Stringer("start", window.StartTime),
		zap.Stringer("end", window.EndTime),
	)

	return window, nil
}

// UpdateWindow перезаписывает окно целиком
func (s *AvailabilityService) UpdateWindow(ctx context.Context, actorID, windowID int64, in WindowInput) (*model.AvailabilityWindow, error) {
	window, err := s.ownedWindow(ctx, actorID, windowID)
	if err != nil {
		return nil, err
	}

	in.apply(window)
	if err := window.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Windows().Update(ctx, window); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("window %d: %w", windowID, ErrNotFound)
		}
		return nil, fmt.Errorf("update window: %w", err)
	}

	s.logger.Info("Availability window updated",
		zap.Int64("window_id", window.ID),
		zap.Int64("coach_id", window.CoachID),
	)

	return window, nil
}

// DeactivateWindow выключает окно
func (s *AvailabilityService) DeactivateWindow(ctx context.Context, actorID, windowID int64) error {
	if _, err := s.ownedWindow(ctx, actorID, windowID); err != nil {
		return err
	}

	if err := s.store.Windows().Deactivate(ctx, windowID); err != nil {
		return fmt.Errorf("deactivate window: %w", err)
	}

	s.logger.Info("Availability window deactivated", zap.Int64("window_id", windowID))
	return nil
}

func (s *AvailabilityService) ownedWindow(ctx context.Context, actorID, windowID int64) (*model.AvailabilityWindow, error) {
	window, err := s.store.Windows().GetByID(ctx, windowID)
	if err != nil {
		return nil, fmt.Errorf("get window: %w", err)
	}
	if window == nil {
		return nil, fmt.Errorf("window %d: %w", windowID, ErrNotFound)
	}
	if actorID != SystemActor && actorID != window.CoachID {
		return nil, ErrForbidden
	}
	return window, nil
}
