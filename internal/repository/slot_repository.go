package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `
	s.id, s.coach_id, s.date, s.start_minute, s.end_minute, s.max_gymnasts,
	s.state, s.materialized, s.availability_window_id, s.created_at`

const activeCountColumn = `
	(SELECT COUNT(*) FROM bookings b
	 WHERE b.slot_id = s.id AND b.status IN ('pending', 'confirmed')) AS booked_count`

type PgSlotRepository struct {
	db base.DBTX
}

func NewSlotRepository(db base.DBTX) *PgSlotRepository {
	return &PgSlotRepository{db: db}
}

// InsertOrFetch материализует слот: вставляет по уникальной координате
// (coach_id, date, start_minute) или читает уже существующий
func (r *PgSlotRepository) InsertOrFetch(ctx context.Context, slot *model.Slot) (*model.Slot, bool, error) {
	state := slot.State
	if state == "" {
		state = model.SlotStateActive
	}

	insert := base.Query{
		SQL: `
			INSERT INTO slots AS s (coach_id, date, start_minute, end_minute, max_gymnasts, state, materialized, availability_window_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (coach_id, date, start_minute) DO NOTHING
			RETURNING ` + slotColumns + `, 0::bigint AS booked_count`,
		Args: []any{
			slot.CoachID,
			model.DateOf(slot.Date),
			int(slot.StartTime),
			int(slot.EndTime),
			slot.MaxGymnasts,
			string(state),
			slot.Materialized,
			slot.AvailabilityWindowID,
		},
	}
	fetch := base.Query{
		SQL: `
			SELECT ` + slotColumns + `,` + activeCountColumn + `
			FROM slots s
			WHERE s.coach_id = $1 AND s.date = $2 AND s.start_minute = $3`,
		Args: []any{slot.CoachID, model.DateOf(slot.Date), int(slot.StartTime)},
	}

	saved, created, err := base.InsertOrFetch(ctx, r.db, insert, fetch, scanSlot)
	if err != nil {
		return nil, false, fmt.Errorf("materialize slot: %w", err)
	}

	return saved, created, nil
}

// GetByID получает слот по ID вместе с количеством активных записей
func (r *PgSlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `,` + activeCountColumn + `
		FROM slots s
		WHERE s.id = $1
	`

	var slot model.Slot
	err := scanSlot(r.db.QueryRow(ctx, query, id), &slot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return &slot, nil
}

// LockByID берёт блокировку строки слота (FOR UPDATE) и пересчитывает занятость
func (r *PgSlotRepository) LockByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `, 0::bigint AS booked_count
		FROM slots s
		WHERE s.id = $1
		FOR UPDATE
	`

	var slot model.Slot
	err := scanSlot(r.db.QueryRow(ctx, query, id), &slot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock slot: %w", err)
	}

	count, err := countActive(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	slot.BookedCount = count

	return &slot, nil
}

// ListInRange получает слоты за период [from, to] в рамках scope, включая отменённые
func (r *PgSlotRepository) ListInRange(ctx context.Context, scope model.CoachScope, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `,` + activeCountColumn + `
		FROM slots s
		WHERE s.date BETWEEN $1 AND $2
		  AND ($3::bigint IS NULL OR s.coach_id = $3)
		  AND ($4::bigint IS NULL OR EXISTS (
		      SELECT 1 FROM coach_profiles cp WHERE cp.coach_id = s.coach_id AND cp.hub_id = $4))
		ORDER BY s.date, s.start_minute
	`

	rows, err := r.db.Query(ctx, query, model.DateOf(from), model.DateOf(to), scope.CoachID, scope.HubID)
	if err != nil {
		return nil, fmt.Errorf("list slots in range: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		var slot model.Slot
		if err := scanSlot(rows, &slot); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, &slot)
	}

	return slots, rows.Err()
}

// Cancel отменяет слот (строка остаётся, чтобы координата не генерировалась заново)
func (r *PgSlotRepository) Cancel(ctx context.Context, id int64) error {
	query := `UPDATE slots SET state = 'cancelled' WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("cancel slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanSlot(row pgx.Row, slot *model.Slot) error {
	var (
		start, end int
		state      string
		count      int64
	)

	err := row.Scan(
		&slot.ID,
		&slot.CoachID,
		&slot.Date,
		&start,
		&end,
		&slot.MaxGymnasts,
		&state,
		&slot.Materialized,
		&slot.AvailabilityWindowID,
		&slot.CreatedAt,
		&count,
	)
	if err != nil {
		return err
	}

	slot.StartTime = model.TimeOfDay(start)
	slot.EndTime = model.TimeOfDay(end)
	slot.State = model.SlotState(state)
	slot.BookedCount = int(count)
	return nil
}

func countActive(ctx context.Context, db base.DBTX, slotID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE slot_id = $1 AND status IN ('pending', 'confirmed')
	`

	var count int64
	if err := db.QueryRow(ctx, query, slotID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active bookings: %w", err)
	}

	return int(count), nil
}
