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

const oneActivePerGymnastIndex = "idx_bookings_one_active_per_gymnast"

const bookingWithSlotColumns = `
	b.id, b.slot_id, b.coach_id, b.gymnast_id, b.booked_by_user_id, b.event,
	b.status, b.notes, b.created_at, b.updated_at, b.cancelled_at,` + slotColumns + `,` + activeCountColumn

type PgBookingRepository struct {
	db base.DBTX
}

func NewBookingRepository(db base.DBTX) *PgBookingRepository {
	return &PgBookingRepository{db: db}
}

// Create создаёт новую запись
func (r *PgBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (slot_id, coach_id, gymnast_id, booked_by_user_id, event, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		booking.SlotID,
		booking.CoachID,
		booking.GymnastID,
		booking.BookedByUserID,
		booking.Event,
		string(booking.Status),
		booking.Notes,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err, oneActivePerGymnastIndex) {
			return ErrDuplicateActiveBooking
		}
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает запись вместе со слотом
func (r *PgBookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `
		SELECT ` + bookingWithSlotColumns + `
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE b.id = $1
	`

	booking, err := scanBookingWithSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// UpdateStatus обновляет статус записи; при отмене проставляет cancelled_at
func (r *PgBookingRepository) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1,
		    updated_at = NOW(),
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
		WHERE id = $2
	`

	result, err := r.db.Exec(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// CountActive считает pending и confirmed записи слота
func (r *PgBookingRepository) CountActive(ctx context.Context, slotID int64) (int, error) {
	return countActive(ctx, r.db, slotID)
}

// HasActive проверяет, есть ли у гимнаста активная запись в слоте
func (r *PgBookingRepository) HasActive(ctx context.Context, slotID, gymnastID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE slot_id = $1 AND gymnast_id = $2 AND status IN ('pending', 'confirmed')
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, slotID, gymnastID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active booking: %w", err)
	}

	return exists, nil
}

// ListActiveBySlot получает активные записи слота
func (r *PgBookingRepository) ListActiveBySlot(ctx context.Context, slotID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingWithSlotColumns + `
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE b.slot_id = $1 AND b.status IN ('pending', 'confirmed')
		ORDER BY b.created_at, b.id
	`

	return r.queryBookings(ctx, query, slotID)
}

// List получает записи по участнику и фильтру дат.
// past: от новых к старым, остальные фильтры по возрастанию даты.
func (r *PgBookingRepository) List(ctx context.Context, filter model.BookingFilter, when model.DateFilter, today time.Time) ([]*model.Booking, error) {
	from, to := DateBounds(when, today)

	order := "ASC"
	if when == model.DateFilterPast {
		order = "DESC"
	}

	query := `
		SELECT ` + bookingWithSlotColumns + `
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE ($1::bigint IS NULL OR b.coach_id = $1)
		  AND ($2::bigint IS NULL OR b.booked_by_user_id = $2)
		  AND ($3::bigint IS NULL OR b.gymnast_id = $3)
		  AND ($4::date IS NULL OR s.date >= $4)
		  AND ($5::date IS NULL OR s.date < $5)
		ORDER BY s.date ` + order + `, s.start_minute ` + order + `, b.id
	`

	return r.queryBookings(ctx, query, filter.CoachID, filter.RequesterID, filter.GymnastID, from, to)
}

// ListPendingByCoach получает записи, ожидающие подтверждения тренера
func (r *PgBookingRepository) ListPendingByCoach(ctx context.Context, coachID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingWithSlotColumns + `
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE b.coach_id = $1 AND b.status = 'pending'
		ORDER BY s.date, s.start_minute, b.id
	`

	return r.queryBookings(ctx, query, coachID)
}

func (r *PgBookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBookingWithSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func scanBookingWithSlot(row pgx.Row) (*model.Booking, error) {
	var (
		booking    model.Booking
		slot       model.Slot
		status     string
		start, end int
		state      string
		count      int64
	)

	err := row.Scan(
		&booking.ID,
		&booking.SlotID,
		&booking.CoachID,
		&booking.GymnastID,
		&booking.BookedByUserID,
		&booking.Event,
		&status,
		&booking.Notes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.CancelledAt,
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
		return nil, err
	}

	booking.Status = model.BookingStatus(status)
	slot.StartTime = model.TimeOfDay(start)
	slot.EndTime = model.TimeOfDay(end)
	slot.State = model.SlotState(state)
	slot.BookedCount = int(count)
	booking.Slot = &slot

	return &booking, nil
}
