package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, telegram_id, username, first_name, last_name, is_coach, created_at`

type PgUserRepository struct {
	db base.DBTX
}

func NewUserRepository(db base.DBTX) *PgUserRepository {
	return &PgUserRepository{db: db}
}

// RegisterByTelegramID создаёт пользователя или возвращает уже зарегистрированного
func (r *PgUserRepository) RegisterByTelegramID(ctx context.Context, user *model.User) (*model.User, bool, error) {
	insert := base.Query{
		SQL: `
			INSERT INTO users (telegram_id, username, first_name, last_name, is_coach)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (telegram_id) DO NOTHING
			RETURNING ` + userColumns,
		Args: []any{user.TelegramID, user.Username, user.FirstName, user.LastName, user.IsCoach},
	}
	fetch := base.Query{
		SQL:  `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`,
		Args: []any{user.TelegramID},
	}

	saved, created, err := base.InsertOrFetch(ctx, r.db, insert, fetch, scanUser)
	if err != nil {
		return nil, false, fmt.Errorf("register user: %w", err)
	}

	return saved, created, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *PgUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	var user model.User
	err := scanUser(r.db.QueryRow(ctx, query, telegramID), &user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}

	return &user, nil
}

// GetByID получает пользователя по ID
func (r *PgUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user model.User
	err := scanUser(r.db.QueryRow(ctx, query, id), &user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

func scanUser(row pgx.Row, user *model.User) error {
	return row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.IsCoach,
		&user.CreatedAt,
	)
}
