package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

// PgGymnastRepository: проекция ростера, нужная для записи
type PgGymnastRepository struct {
	db base.DBTX
}

func NewGymnastRepository(db base.DBTX) *PgGymnastRepository {
	return &PgGymnastRepository{db: db}
}

func (r *PgGymnastRepository) Create(ctx context.Context, gymnast *model.Gymnast) error {
	query := `
		INSERT INTO gymnasts (hub_id, guardian_user_id, full_name)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query, gymnast.HubID, gymnast.GuardianUserID, gymnast.FullName).Scan(&gymnast.ID)
	if err != nil {
		return fmt.Errorf("create gymnast: %w", err)
	}

	return nil
}

func (r *PgGymnastRepository) GetByID(ctx context.Context, id int64) (*model.Gymnast, error) {
	query := `SELECT id, hub_id, guardian_user_id, full_name FROM gymnasts WHERE id = $1`

	var gymnast model.Gymnast
	err := r.db.QueryRow(ctx, query, id).Scan(&gymnast.ID, &gymnast.HubID, &gymnast.GuardianUserID, &gymnast.FullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get gymnast: %w", err)
	}

	return &gymnast, nil
}

// ListByGuardian получает гимнастов, которых может записывать пользователь
func (r *PgGymnastRepository) ListByGuardian(ctx context.Context, guardianID int64) ([]*model.Gymnast, error) {
	query := `
		SELECT id, hub_id, guardian_user_id, full_name
		FROM gymnasts
		WHERE guardian_user_id = $1
		ORDER BY full_name, id
	`

	rows, err := r.db.Query(ctx, query, guardianID)
	if err != nil {
		return nil, fmt.Errorf("list gymnasts: %w", err)
	}
	defer rows.Close()

	var gymnasts []*model.Gymnast
	for rows.Next() {
		var gymnast model.Gymnast
		if err := rows.Scan(&gymnast.ID, &gymnast.HubID, &gymnast.GuardianUserID, &gymnast.FullName); err != nil {
			return nil, fmt.Errorf("scan gymnast: %w", err)
		}
		gymnasts = append(gymnasts, &gymnast)
	}

	return gymnasts, rows.Err()
}
