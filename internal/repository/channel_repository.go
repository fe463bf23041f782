package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

type PgChannelRepository struct {
	db base.DBTX
}

func NewChannelRepository(db base.DBTX) *PgChannelRepository {
	return &PgChannelRepository{db: db}
}

// GetOrCreate возвращает личный канал пары пользователей, создавая его при первом обращении
func (r *PgChannelRepository) GetOrCreate(ctx context.Context, channel *model.DirectChannel) (*model.DirectChannel, bool, error) {
	insert := base.Query{
		SQL: `
			INSERT INTO direct_channels (id, user_low_id, user_high_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_low_id, user_high_id) DO NOTHING
			RETURNING id, user_low_id, user_high_id, created_at`,
		Args: []any{channel.ID, channel.UserLowID, channel.UserHighID},
	}
	fetch := base.Query{
		SQL: `
			SELECT id, user_low_id, user_high_id, created_at
			FROM direct_channels
			WHERE user_low_id = $1 AND user_high_id = $2`,
		Args: []any{channel.UserLowID, channel.UserHighID},
	}

	saved, created, err := base.InsertOrFetch(ctx, r.db, insert, fetch, scanChannel)
	if err != nil {
		return nil, false, fmt.Errorf("get or create direct channel: %w", err)
	}

	return saved, created, nil
}

func scanChannel(row pgx.Row, channel *model.DirectChannel) error {
	return row.Scan(&channel.ID, &channel.UserLowID, &channel.UserHighID, &channel.CreatedAt)
}
