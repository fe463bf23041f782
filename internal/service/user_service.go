package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"go.uber.org/zap"
)

type UserService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewUserService(store repository.Store, logger *zap.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger,
	}
}

// RegisterTelegramUser регистрирует пользователя или возвращает существующего
func (s *UserService) RegisterTelegramUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error) {
	user, created, err := s.store.Users().RegisterByTelegramID(ctx, &model.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
	})
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	if created {
		s.logger.Info("New user registered",
			zap.Int64("user_id", user.ID),
			zap.Int64("telegram_id", telegramID),
			zap.String("username", username),
		)
	}

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID; nil, если не зарегистрирован
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.store.Users().GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return user, nil
}

// GetByID получает пользователя или ErrNotFound
func (s *UserService) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return user, nil
}

// ListGymnasts: гимнасты, которых пользователь может записывать
func (s *UserService) ListGymnasts(ctx context.Context, guardianID int64) ([]*model.Gymnast, error) {
	gymnasts, err := s.store.Gymnasts().ListByGuardian(ctx, guardianID)
	if err != nil {
		return nil, fmt.Errorf("list gymnasts: %w", err)
	}
	return gymnasts, nil
}

// AddGymnast добавляет гимнаста в проекцию ростера
func (s *UserService) AddGymnast(ctx context.Context, hubID, guardianID int64, fullName string) (*model.Gymnast, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, validationError("gymnast name is required")
	}

	gymnast := &model.Gymnast{
		HubID:          hubID,
		GuardianUserID: guardianID,
		FullName:       fullName,
	}
	if err := s.store.Gymnasts().Create(ctx, gymnast); err != nil {
		return nil, fmt.Errorf("create gymnast: %w", err)
	}

	s.logger.Info("Gymnast added",
		zap.Int64("gymnast_id", gymnast.ID),
		zap.Int64("guardian_id", guardianID),
	)
	return gymnast, nil
}
