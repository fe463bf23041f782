package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"go.uber.org/zap"
)

// ChannelService: личные каналы между пользователями (например, родитель и тренер)
type ChannelService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewChannelService(store repository.Store, logger *zap.Logger) *ChannelService {
	return &ChannelService{
		store:  store,
		logger: logger,
	}
}

// GetOrCreateDirect возвращает канал пары пользователей, создавая его при первом обращении
func (s *ChannelService) GetOrCreateDirect(ctx context.Context, userID, recipientID int64) (*model.DirectChannel, error) {
	if userID == recipientID {
		return nil, validationError("cannot open a channel with yourself")
	}

	for _, id := range []int64{userID, recipientID} {
		user, err := s.store.Users().GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
	}

	channel, created, err := s.store.Channels().GetOrCreate(ctx, model.NewDirectChannel(userID, recipientID))
	if err != nil {
		return nil, fmt.Errorf("get or create channel: %w", err)
	}

	if created {
		s.logger.Info("Direct channel created",
			zap.String("channel_id", channel.ID.String()),
			zap.Int64("user_low_id", channel.UserLowID),
			zap.Int64("user_high_id", channel.UserHighID),
		)
	}
	return channel, nil
}
