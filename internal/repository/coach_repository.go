package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `
	cp.coach_id, cp.hub_id, cp.display_name, cp.default_duration_minutes,
	cp.default_max_gymnasts, cp.is_active, cp.updated_at`

// PgCoachRepository: залы и профили тренеров
type PgCoachRepository struct {
	db base.DBTX
}

func NewCoachRepository(db base.DBTX) *PgCoachRepository {
	return &PgCoachRepository{db: db}
}

// CreateHub создаёт зал
func (r *PgCoachRepository) CreateHub(ctx context.Context, hub *model.Hub) error {
	query := `
		INSERT INTO hubs (name, auto_confirm_bookings)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, hub.Name, hub.AutoConfirmBookings).Scan(&hub.ID, &hub.CreatedAt)
	if err != nil {
		return fmt.Errorf("create hub: %w", err)
	}

	return nil
}

// GetHub получает зал по ID
func (r *PgCoachRepository) GetHub(ctx context.Context, id int64) (*model.Hub, error) {
	query := `SELECT id, name, auto_confirm_bookings, created_at FROM hubs WHERE id = $1`

	var hub model.Hub
	err := r.db.QueryRow(ctx, query, id).Scan(&hub.ID, &hub.Name, &hub.AutoConfirmBookings, &hub.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get hub: %w", err)
	}

	return &hub, nil
}

// UpsertProfile создаёт или обновляет профиль тренера
func (r *PgCoachRepository) UpsertProfile(ctx context.Context, profile *model.CoachProfile) error {
	query := `
		INSERT INTO coach_profiles (coach_id, hub_id, display_name, default_duration_minutes, default_max_gymnasts, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (coach_id) DO UPDATE
		SET hub_id = EXCLUDED.hub_id,
		    display_name = EXCLUDED.display_name,
		    default_duration_minutes = EXCLUDED.default_duration_minutes,
		    default_max_gymnasts = EXCLUDED.default_max_gymnasts,
		    is_active = EXCLUDED.is_active,
		    updated_at = NOW()
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		profile.CoachID,
		profile.HubID,
		profile.DisplayName,
		profile.DefaultDurationMinutes,
		profile.DefaultMaxGymnasts,
		profile.IsActive,
	).Scan(&profile.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert coach profile: %w", err)
	}

	return nil
}

// GetProfile получает профиль тренера
func (r *PgCoachRepository) GetProfile(ctx context.Context, coachID int64) (*model.CoachProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM coach_profiles cp WHERE cp.coach_id = $1`

	var profile model.CoachProfile
	err := scanProfile(r.db.QueryRow(ctx, query, coachID), &profile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coach profile: %w", err)
	}

	return &profile, nil
}

// ListProfiles получает активные профили тренеров scope
func (r *PgCoachRepository) ListProfiles(ctx context.Context, scope model.CoachScope) ([]*model.CoachProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM coach_profiles cp
		WHERE cp.is_active
		  AND ($1::bigint IS NULL OR cp.coach_id = $1)
		  AND ($2::bigint IS NULL OR cp.hub_id = $2)
		ORDER BY cp.display_name, cp.coach_id
	`

	rows, err := r.db.Query(ctx, query, scope.CoachID, scope.HubID)
	if err != nil {
		return nil, fmt.Errorf("list coach profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*model.CoachProfile
	for rows.Next() {
		var profile model.CoachProfile
		if err := scanProfile(rows, &profile); err != nil {
			return nil, fmt.Errorf("scan coach profile: %w", err)
		}
		profiles = append(profiles, &profile)
	}

	return profiles, rows.Err()
}

func scanProfile(row pgx.Row, profile *model.CoachProfile) error {
	return row.Scan(
		&profile.CoachID,
		&profile.HubID,
		&profile.DisplayName,
		&profile.DefaultDurationMinutes,
		&profile.DefaultMaxGymnasts,
		&profile.IsActive,
		&profile.UpdatedAt,
	)
}
