package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"go.uber.org/zap"
)

// PackageInput: редактируемые поля пакета занятий
type PackageInput struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           int    `json:"price"`
	MaxGymnasts     int    `json:"max_gymnasts"`
	SortOrder       int    `json:"sort_order"`
	IsActive        *bool  `json:"is_active,omitempty"`
}

func (in PackageInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError("package name is required")
	}
	if in.DurationMinutes <= 0 || in.DurationMinutes > model.MinutesPerDay {
		return validationError("duration must be between 1 and %d minutes", model.MinutesPerDay)
	}
	if in.MaxGymnasts < 1 {
		return validationError("max gymnasts must be at least 1")
	}
	if in.Price < 0 {
		return validationError("price must not be negative")
	}
	return nil
}

// CoachService: залы, профили тренеров и пакеты частных занятий
type CoachService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewCoachService(store repository.Store, logger *zap.Logger) *CoachService {
	return &CoachService{
		store:  store,
		logger: logger,
	}
}

// CreateHub создаёт зал с политикой подтверждения записей
func (s *CoachService) CreateHub(ctx context.Context, name string, autoConfirm bool) (*model.Hub, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validationError("hub name is required")
	}

	hub := &model.Hub{Name: strings.TrimSpace(name), AutoConfirmBookings: autoConfirm}
	if err := s.store.Coaches().CreateHub(ctx, hub); err != nil {
		return nil, fmt.Errorf("create hub: %w", err)
	}

	s.logger.Info("Hub created", zap.Int64("hub_id", hub.ID), zap.Bool("auto_confirm", autoConfirm))
	return hub, nil
}

// UpsertProfile сохраняет настройки тренера; вместимость по умолчанию 1
func (s *CoachService) UpsertProfile(ctx context.Context, profile *model.CoachProfile) error {
	if profile.DefaultMaxGymnasts == 0 {
		profile.DefaultMaxGymnasts = 1
	}
	if profile.DefaultMaxGymnasts < 1 {
		return validationError("default max gymnasts must be at least 1")
	}
	if d := profile.DefaultDurationMinutes; d != nil && (*d <= 0 || *d > model.MinutesPerDay) {
		return validationError("default duration must be between 1 and %d minutes", model.MinutesPerDay)
	}

	hub, err := s.store.Coaches().GetHub(ctx, profile.HubID)
	if err != nil {
		return fmt.Errorf("get hub: %w", err)
	}
	if hub == nil {
		return fmt.Errorf("hub %d: %w", profile.HubID, ErrNotFound)
	}

	if err := s.store.Coaches().UpsertProfile(ctx, profile); err != nil {
		return fmt.Errorf("upsert coach profile: %w", err)
	}

	s.logger.Info("Coach profile saved",
		zap.Int64("coach_id", profile.CoachID),
		zap.Int64("hub_id", profile.HubID),
		zap.Int("default_max_gymnasts", profile.DefaultMaxGymnasts),
	)
	return nil
}

// GetProfile возвращает профиль тренера или ErrNotFound
func (s *CoachService) GetProfile(ctx context.Context, coachID int64) (*model.CoachProfile, error) {
	profile, err := s.store.Coaches().GetProfile(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("get coach profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("coach %d: %w", coachID, ErrNotFound)
	}
	return profile, nil
}

// ListCoaches возвращает активных тренеров scope
func (s *CoachService) ListCoaches(ctx context.Context, scope model.CoachScope) ([]*model.CoachProfile, error) {
	profiles, err := s.store.Coaches().ListProfiles(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list coaches: %w", err)
	}
	return profiles, nil
}

// CreatePackage добавляет пакет занятий тренеру
func (s *CoachService) CreatePackage(ctx context.Context, coachID int64, in PackageInput) (*model.LessonPackage, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	pkg := &model.LessonPackage{
		CoachID:         coachID,
		Name:            strings.TrimSpace(in.Name),
		DurationMinutes: in.DurationMinutes,
		Price:           in.Price,
		MaxGymnasts:     in.MaxGymnasts,
		SortOrder:       in.SortOrder,
		IsActive:        in.IsActive == nil || *in.IsActive,
	}

	if err := s.store.Packages().Create(ctx, pkg); err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}

	s.logger.Info("Lesson package created",
		zap.Int64("package_id", pkg.ID),
		zap.Int64("coach_id", coachID),
		zap.Int("duration_minutes", pkg.DurationMinutes),
	)
	return pkg, nil
}

// UpdatePackage обновляет пакет; менять может владелец или администратор
func (s *CoachService) UpdatePackage(ctx context.Context, actorID, packageID int64, in PackageInput) (*model.LessonPackage, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	pkg, err := s.store.Packages().GetByID(ctx, packageID)
	if err != nil {
		return nil, fmt.Errorf("get package: %w", err)
	}
	if pkg == nil {
		return nil, fmt.Errorf("package %d: %w", packageID, ErrNotFound)
	}
	if actorID != SystemActor && actorID != pkg.CoachID {
		return nil, ErrForbidden
	}

	pkg.Name = strings.TrimSpace(in.Name)
	pkg.DurationMinutes = in.DurationMinutes
	pkg.Price = in.Price
	pkg.MaxGymnasts = in.MaxGymnasts
	pkg.SortOrder = in.SortOrder
	pkg.IsActive = in.IsActive == nil || *in.IsActive

	if err := s.store.Packages().Update(ctx, pkg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("package %d: %w", packageID, ErrNotFound)
		}
		return nil, fmt.Errorf("update package: %w", err)
	}

	return pkg, nil
}

// ListPackages возвращает пакеты тренера
func (s *CoachService) ListPackages(ctx context.Context, coachID int64, activeOnly bool) ([]*model.LessonPackage, error) {
	packages, err := s.store.Packages().ListByCoach(ctx, coachID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return packages, nil
}
