package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const packageColumns = `
	p.id, p.coach_id, p.name, p.duration_minutes, p.price, p.max_gymnasts,
	p.sort_order, p.is_active, p.created_at`

type PgPackageRepository struct {
	db     base.DBTX
	logger *zap.Logger
}

func NewPackageRepository(db base.DBTX, logger *zap.Logger) *PgPackageRepository {
	return &PgPackageRepository{
		db:     db,
		logger: logger,
	}
}

// Create создаёт новый пакет занятий
func (r *PgPackageRepository) Create(ctx context.Context, pkg *model.LessonPackage) error {
	query := `
		INSERT INTO lesson_packages (coach_id, name, duration_minutes, price, max_gymnasts, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		pkg.CoachID,
		pkg.Name,
		pkg.DurationMinutes,
		pkg.Price,
		pkg.MaxGymnasts,
		pkg.SortOrder,
		pkg.IsActive,
	).Scan(&pkg.ID, &pkg.CreatedAt)

	if err != nil {
		r.logger.Error("Failed to insert lesson package",
			zap.Int64("coach_id", pkg.CoachID),
			zap.String("name", pkg.Name),
			zap.Error(err))
		return fmt.Errorf("create lesson package: %w", err)
	}

	return nil
}

// Update обновляет пакет занятий
func (r *PgPackageRepository) Update(ctx context.Context, pkg *model.LessonPackage) error {
	query := `
		UPDATE lesson_packages
		SET name = $2, duration_minutes = $3, price = $4, max_gymnasts = $5, sort_order = $6, is_active = $7
		WHERE id = $1
	`

	result, err := r.db.Exec(
		ctx, query,
		pkg.ID,
		pkg.Name,
		pkg.DurationMinutes,
		pkg.Price,
		pkg.MaxGymnasts,
		pkg.SortOrder,
		pkg.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update lesson package: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID получает пакет по ID
func (r *PgPackageRepository) GetByID(ctx context.Context, id int64) (*model.LessonPackage, error) {
	query := `SELECT ` + packageColumns + ` FROM lesson_packages p WHERE p.id = $1`

	var pkg model.LessonPackage
	err := scanPackage(r.db.QueryRow(ctx, query, id), &pkg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson package: %w", err)
	}

	return &pkg, nil
}

// ListByCoach получает пакеты тренера
func (r *PgPackageRepository) ListByCoach(ctx context.Context, coachID int64, activeOnly bool) ([]*model.LessonPackage, error) {
	query := `
		SELECT ` + packageColumns + `
		FROM lesson_packages p
		WHERE p.coach_id = $1 AND (NOT $2 OR p.is_active)
		ORDER BY p.sort_order, p.id
	`

	return r.queryPackages(ctx, query, coachID, activeOnly)
}

// ListActive получает активные пакеты всех тренеров scope
func (r *PgPackageRepository) ListActive(ctx context.Context, scope model.CoachScope) ([]*model.LessonPackage, error) {
	query := `
		SELECT ` + packageColumns + `
		FROM lesson_packages p
		WHERE p.is_active
		  AND ($1::bigint IS NULL OR p.coach_id = $1)
		  AND ($2::bigint IS NULL OR EXISTS (
		      SELECT 1 FROM coach_profiles cp WHERE cp.coach_id = p.coach_id AND cp.hub_id = $2))
		ORDER BY p.coach_id, p.sort_order, p.id
	`

	return r.queryPackages(ctx, query, scope.CoachID, scope.HubID)
}

func (r *PgPackageRepository) queryPackages(ctx context.Context, query string, args ...any) ([]*model.LessonPackage, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lesson packages: %w", err)
	}
	defer rows.Close()

	var packages []*model.LessonPackage
	for rows.Next() {
		var pkg model.LessonPackage
		if err := scanPackage(rows, &pkg); err != nil {
			return nil, fmt.Errorf("scan lesson package: %w", err)
		}
		packages = append(packages, &pkg)
	}

	return packages, rows.Err()
}

func scanPackage(row pgx.Row, pkg *model.LessonPackage) error {
	return row.Scan(
		&pkg.ID,
		&pkg.CoachID,
		&pkg.Name,
		&pkg.DurationMinutes,
		&pkg.Price,
		&pkg.MaxGymnasts,
		&pkg.SortOrder,
		&pkg.IsActive,
		&pkg.CreatedAt,
	)
}
