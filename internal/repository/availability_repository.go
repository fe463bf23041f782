package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const windowColumns = `
	w.id, w.coach_id, w.day_of_week, w.start_minute, w.end_minute,
	w.effective_from, w.effective_until, w.is_active, w.created_at, w.updated_at`

// PgWindowRepository управляет окнами доступности тренеров в базе данных
type PgWindowRepository struct {
	db     base.DBTX
	logger *zap.Logger
}

// NewWindowRepository создаёт новый репозиторий
func NewWindowRepository(db base.DBTX, logger *zap.Logger) *PgWindowRepository {
	return &PgWindowRepository{
		db:     db,
		logger: logger,
	}
}

// Create создаёт новое окно доступности
func (r *PgWindowRepository) Create(ctx context.Context, window *model.AvailabilityWindow) error {
	query := `
		INSERT INTO availability_windows (coach_id, day_of_week, start_minute, end_minute, effective_from, effective_until, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx,
		query,
		window.CoachID,
		window.DayOfWeek,
		int(window.StartTime),
		int(window.EndTime),
		window.EffectiveFrom,
		window.EffectiveUntil,
		window.IsActive,
	).Scan(&window.ID, &window.CreatedAt, &window.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create availability window: %w", err)
	}

	r.logger.Debug("Availability window inserted",
		zap.Int64("window_id", window.ID),
		zap.Int64("coach_id", window.CoachID),
		zap.Int("day_of_week", window.DayOfWeek))

	return nil
}

// Update перезаписывает окно целиком
func (r *PgWindowRepository) Update(ctx context.Context, window *model.AvailabilityWindow) error {
	query := `
		UPDATE availability_windows
		SET day_of_week = $2, start_minute = $3, end_minute = $4,
		    effective_from = $5, effective_until = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		ctx,
		query,
		window.ID,
		window.DayOfWeek,
		int(window.StartTime),
		int(window.EndTime),
		window.EffectiveFrom,
		window.EffectiveUntil,
		window.IsActive,
	).Scan(&window.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update availability window: %w", err)
	}

	return nil
}

// Deactivate выключает окно; уже сохранённые слоты не трогаются
func (r *PgWindowRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE availability_windows SET is_active = false, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate availability window: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID получает окно по ID
func (r *PgWindowRepository) GetByID(ctx context.Context, id int64) (*model.AvailabilityWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM availability_windows w WHERE w.id = $1`

	var window model.AvailabilityWindow
	err := scanWindow(r.db.QueryRow(ctx, query, id), &window)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability window: %w", err)
	}

	return &window, nil
}

// ListByCoach получает все окна тренера, включая неактивные
func (r *PgWindowRepository) ListByCoach(ctx context.Context, coachID int64) ([]*model.AvailabilityWindow, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM availability_windows w
		WHERE w.coach_id = $1
		ORDER BY w.day_of_week, w.start_minute, w.id
	`

	return r.queryWindows(ctx, query, coachID)
}

// ListApplicable получает активные окна scope, действующие хотя бы в один день из [from, to]
func (r *PgWindowRepository) ListApplicable(ctx context.Context, scope model.CoachScope, from, to time.Time) ([]*model.AvailabilityWindow, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM availability_windows w
		WHERE w.is_active
		  AND (w.effective_from IS NULL OR w.effective_from <= $2)
		  AND (w.effective_until IS NULL OR w.effective_until >= $1)
		  AND ($3::bigint IS NULL OR w.coach_id = $3)
		  AND ($4::bigint IS NULL OR EXISTS (
		      SELECT 1 FROM coach_profiles cp WHERE cp.coach_id = w.coach_id AND cp.hub_id = $4))
		ORDER BY w.coach_id, w.day_of_week, w.start_minute, w.id
	`

	windows, err := r.queryWindows(ctx, query, model.DateOf(from), model.DateOf(to), scope.CoachID, scope.HubID)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Applicable availability windows loaded",
		zap.Int("count", len(windows)),
		zap.Time("from", from),
		zap.Time("to", to))

	return windows, nil
}

func (r *PgWindowRepository) queryWindows(ctx context.Context, query string, args ...any) ([]*model.AvailabilityWindow, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query availability windows: %w", err)
	}
	defer rows.Close()

	var windows []*model.AvailabilityWindow
	for rows.Next() {
		var window model.AvailabilityWindow
		if err := scanWindow(rows, &window); err != nil {
			return nil, fmt.Errorf("scan availability window: %w", err)
		}
		windows = append(windows, &window)
	}

	return windows, rows.Err()
}

func scanWindow(row pgx.Row, window *model.AvailabilityWindow) error {
	var start, end int

	err := row.Scan(
		&window.ID,
		&window.CoachID,
		&window.DayOfWeek,
		&start,
		&end,
		&window.EffectiveFrom,
		&window.EffectiveUntil,
		&window.IsActive,
		&window.CreatedAt,
		&window.UpdatedAt,
	)
	if err != nil {
		return err
	}

	window.StartTime = model.TimeOfDay(start)
	window.EndTime = model.TimeOfDay(end)
	return nil
}
