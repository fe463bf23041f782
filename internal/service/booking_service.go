package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/events"
	"github.com/Freeeeeet/lesson_scheduler/internal/metrics"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// BookingService: журнал записей: переходы статусов и проверка вместимости слота.
// Записи никогда не удаляются, отмена только меняет статус.
type BookingService struct {
	store     repository.Store
	clock     clock.Clock
	publisher events.Publisher
	metrics   *metrics.SchedulingMetrics
	logger    *zap.Logger
}

func NewBookingService(
	store repository.Store,
	clk clock.Clock,
	publisher events.Publisher,
	m *metrics.SchedulingMetrics,
	logger *zap.Logger,
) *BookingService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &BookingService{
		store:     store,
		clock:     clk,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// admission: новая запись в уже заблокированный слот
type admission struct {
	GymnastID   int64
	RequesterID int64
	Event       string
	Notes       string
	Status      model.BookingStatus
}

// admit проверяет вместимость и создаёт запись. Вызывается внутри транзакции,
// после LockByID на слоте.
func (s *BookingService) admit(ctx context.Context, tx repository.Repositories, slot *model.Slot, a admission) (*model.Booking, error) {
	already, err := tx.Bookings().HasActive(ctx, slot.ID, a.GymnastID)
	if err != nil {
		return nil, fmt.Errorf("check active booking: %w", err)
	}
	if already {
		return nil, ErrAlreadyBooked
	}

	if slot.BookedCount >= slot.MaxGymnasts {
		return nil, ErrSlotFull
	}

	booking := &model.Booking{
		SlotID:         slot.ID,
		CoachID:        slot.CoachID,
		GymnastID:      a.GymnastID,
		BookedByUserID: a.RequesterID,
		Event:          a.Event,
		Status:         a.Status,
		Notes:          a.Notes,
	}
	if err := tx.Bookings().Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrDuplicateActiveBooking) {
			return nil, ErrAlreadyBooked
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	slot.BookedCount++
	booking.Slot = slot
	return booking, nil
}

// Get возвращает запись со слотом и вычисленным статусом
func (s *BookingService) Get(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	booking.Status = booking.EffectiveStatus(clock.Today(s.clock))
	return booking, nil
}

// Confirm переводит pending → confirmed; подтверждает тренер слота или администратор
func (s *BookingService) Confirm(ctx context.Context, bookingID, actorID int64) (*model.Booking, error) {
	booking, err := s.transition(ctx, bookingID, actorID, model.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BookingConfirmed, booking)
	s.logger.Info("Booking confirmed",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("actor_id", actorID),
	)
	return booking, nil
}

// Cancel отменяет запись; место в слоте освобождается сразу
func (s *BookingService) Cancel(ctx context.Context, bookingID, actorID int64) (_ *model.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.Cancel", attribute.Int64("booking.id", bookingID))
	defer func() { endSpan(span, err) }()

	booking, err := s.transition(ctx, bookingID, actorID, model.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BookingCancelled, booking)
	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("slot_id", booking.SlotID),
		zap.Int64("actor_id", actorID),
	)
	return booking, nil
}

func (s *BookingService) transition(ctx context.Context, bookingID, actorID int64, next model.BookingStatus) (*model.Booking, error) {
	today := clock.Today(s.clock)

	var booking *model.Booking
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		current, err := tx.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if current == nil {
			return ErrBookingNotFound
		}

		if !canAct(current, actorID, next) {
			return ErrForbidden
		}

		// Блокировка слота сериализует отмену с параллельными записями в тот же слот
		slot, err := tx.Slots().LockByID(ctx, current.SlotID)
		if err != nil {
			return fmt.Errorf("lock slot: %w", err)
		}

		from := current.EffectiveStatus(today)
		if !from.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, next)
		}

		if err := tx.Bookings().UpdateStatus(ctx, current.ID, next); err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}

		if next == model.BookingStatusCancelled {
			s.metrics.ObserveCancellation(string(from))
			if slot != nil && slot.BookedCount > 0 {
				slot.BookedCount--
			}
		}

		current.Status = next
		if slot != nil {
			current.Slot = slot
		}
		booking = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// canAct: отменить может автор записи, тренер или администратор; подтвердить может тренер или администратор
func canAct(b *model.Booking, actorID int64, next model.BookingStatus) bool {
	if actorID == SystemActor || actorID == b.CoachID {
		return true
	}
	return next == model.BookingStatusCancelled && actorID == b.BookedByUserID
}

// List возвращает записи ровно по одному участнику, отфильтрованные по дате слота
func (s *BookingService) List(ctx context.Context, filter model.BookingFilter, when model.DateFilter) ([]*model.Booking, error) {
	set := 0
	for _, id := range []*int64{filter.CoachID, filter.RequesterID, filter.GymnastID} {
		if id != nil {
			set++
		}
	}
	if set != 1 {
		return nil, validationError("exactly one of coach, requester or gymnast must be set")
	}

	if when == "" {
		when = model.DateFilterAll
	}
	if !when.Valid() {
		return nil, validationError("unknown date filter %q", when)
	}

	today := clock.Today(s.clock)
	bookings, err := s.store.Bookings().List(ctx, filter, when, today)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	for _, b := range bookings {
		b.Status = b.EffectiveStatus(today)
	}
	return bookings, nil
}

// PendingForCoach: записи, ожидающие решения тренера
func (s *BookingService) PendingForCoach(ctx context.Context, coachID int64) ([]*model.Booking, error) {
	bookings, err := s.store.Bookings().ListPendingByCoach(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("list pending bookings: %w", err)
	}
	return bookings, nil
}

// publish отправляет событие; ошибка доставки только логируется
func (s *BookingService) publish(ctx context.Context, eventType events.EventType, booking *model.Booking) {
	event := events.NewBookingEvent(eventType, booking, s.clock.Now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish booking event",
			zap.String("event_type", string(eventType)),
			zap.Int64("booking_id", booking.ID),
			zap.Error(err),
		)
	}
}
