package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/events"
	"github.com/Freeeeeet/lesson_scheduler/internal/lock"
	"github.com/Freeeeeet/lesson_scheduler/internal/materializer"
	"github.com/Freeeeeet/lesson_scheduler/internal/metrics"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxMaterializeAttempts: сколько раз BookSlot повторяет транзакцию при конфликте материализации
const maxMaterializeAttempts = 3

type SchedulingConfig struct {
	DefaultDurationMinutes int
	DefaultMaxGymnasts     int
	MaxRangeDays           int
}

// DefaultSchedulingConfig: значения по умолчанию для календаря
func DefaultSchedulingConfig() SchedulingConfig {
	return SchedulingConfig{
		DefaultDurationMinutes: materializer.DefaultLessonMinutes,
		DefaultMaxGymnasts:     materializer.DefaultMaxGymnasts,
		MaxRangeDays:           62,
	}
}

// SlotRef: ссылка клиента на слот: ID сохранённого слота или координата
type SlotRef struct {
	SlotID    *int64
	CoachID   int64
	Date      time.Time
	StartTime model.TimeOfDay
}

type BookRequest struct {
	Slot        model.BookableSlot
	GymnastID   int64
	Event       string
	RequesterID int64
	Notes       string
}

// SchedulingService: календарь частных занятий и запись на них.
// Виртуальные слоты сохраняются только в момент первой записи.
type SchedulingService struct {
	store   repository.Store
	ledger  *BookingService
	locker  lock.Locker
	clock   clock.Clock
	cfg     SchedulingConfig
	metrics *metrics.SchedulingMetrics
	logger  *zap.Logger
}

func NewSchedulingService(
	store repository.Store,
	ledger *BookingService,
	locker lock.Locker,
	clk clock.Clock,
	cfg SchedulingConfig,
	m *metrics.SchedulingMetrics,
	logger *zap.Logger,
) *SchedulingService {
	if locker == nil {
		locker = lock.Noop{}
	}
	if cfg.DefaultDurationMinutes <= 0 {
		cfg.DefaultDurationMinutes = materializer.DefaultLessonMinutes
	}
	if cfg.DefaultMaxGymnasts <= 0 {
		cfg.DefaultMaxGymnasts = materializer.DefaultMaxGymnasts
	}
	return &SchedulingService{
		store:   store,
		ledger:  ledger,
		locker:  locker,
		clock:   clk,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// ListBookableSlots возвращает сохранённые и виртуальные слоты scope за [from, to]
func (s *SchedulingService) ListBookableSlots(ctx context.Context, scope model.CoachScope, from, to time.Time) (_ []model.BookableSlot, err error) {
	ctx, span := startSpan(ctx, "SchedulingService.ListBookableSlots",
		attribute.String("range.from", model.FormatDate(from)),
		attribute.String("range.to", model.FormatDate(to)),
	)
	defer func() { endSpan(span, err) }()

	from, to = model.DateOf(from), model.DateOf(to)
	if to.Before(from) {
		return nil, validationError("range end %s is before start %s", model.FormatDate(to), model.FormatDate(from))
	}
	if s.cfg.MaxRangeDays > 0 && int(to.Sub(from).Hours()/24) >= s.cfg.MaxRangeDays {
		return nil, validationError("range must not exceed %d days", s.cfg.MaxRangeDays)
	}

	slots, err := s.calendar(ctx, scope, from, to)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSlotsListed(len(slots))
	span.SetAttributes(attribute.Int("slots.count", len(slots)))
	return slots, nil
}

func (s *SchedulingService) calendar(ctx context.Context, scope model.CoachScope, from, to time.Time) ([]model.BookableSlot, error) {
	windows, err := s.store.Windows().ListApplicable(ctx, scope, from, to)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}

	persisted, err := s.store.Slots().ListInRange(ctx, scope, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	packages, err := s.store.Packages().ListActive(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}

	profiles, err := s.store.Coaches().ListProfiles(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list coach profiles: %w", err)
	}
	byCoach := make(map[int64]*model.CoachProfile, len(profiles))
	for _, p := range profiles {
		byCoach[p.CoachID] = p
	}

	return materializer.Materialize(materializer.Input{
		Scope:                  scope,
		From:                   from,
		To:                     to,
		Today:                  clock.Today(s.clock),
		Windows:                windows,
		Persisted:              persisted,
		Packages:               packages,
		Profiles:               byCoach,
		DefaultDurationMinutes: s.cfg.DefaultDurationMinutes,
		DefaultMaxGymnasts:     s.cfg.DefaultMaxGymnasts,
	}), nil
}

// ResolveSlot находит слот по ссылке клиента, заново строя календарь на дату координаты
func (s *SchedulingService) ResolveSlot(ctx context.Context, ref SlotRef) (model.BookableSlot, error) {
	if ref.SlotID != nil {
		slot, err := s.store.Slots().GetByID(ctx, *ref.SlotID)
		if err != nil {
			return nil, fmt.Errorf("get slot: %w", err)
		}
		if slot == nil {
			return nil, ErrSlotNotFound
		}
		return slot, nil
	}

	if ref.CoachID == 0 || ref.Date.IsZero() {
		return nil, validationError("slot id or coach, date and start time are required")
	}

	date := model.DateOf(ref.Date)
	if date.Before(clock.Today(s.clock)) {
		return nil, ErrSlotExpired
	}

	slots, err := s.calendar(ctx, model.ForCoach(ref.CoachID), date, date)
	if err != nil {
		return nil, err
	}
	for _, slot := range slots {
		if slot.Coordinate().StartTime == ref.StartTime {
			return slot, nil
		}
	}
	return nil, ErrSlotNotFound
}

// BookSlot записывает гимнаста на слот. Виртуальный слот сохраняется идемпотентно,
// вместимость перепроверяется под блокировкой строки слота в той же транзакции.
func (s *SchedulingService) BookSlot(ctx context.Context, req BookRequest) (_ *model.Booking, err error) {
	if req.Slot == nil {
		return nil, validationError("slot is required")
	}
	coord := req.Slot.Coordinate()

	ctx, span := startSpan(ctx, "SchedulingService.BookSlot",
		attribute.String("slot.key", req.Slot.Key()),
		attribute.String("slot.kind", string(req.Slot.Kind())),
		attribute.Int64("coach.id", coord.CoachID),
		attribute.Int64("gymnast.id", req.GymnastID),
	)
	defer func() {
		s.metrics.ObserveBooking(bookingResult(err))
		endSpan(span, err)
	}()

	req.Event = strings.TrimSpace(req.Event)
	if req.Event == "" {
		return nil, validationError("event is required")
	}

	if model.DateOf(coord.Date).Before(clock.Today(s.clock)) {
		return nil, ErrSlotExpired
	}

	if err := s.checkRequester(ctx, coord.CoachID, req.GymnastID, req.RequesterID); err != nil {
		return nil, err
	}

	status, err := s.initialStatus(ctx, coord.CoachID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, coord.LockKey())
	if err != nil {
		s.logger.Warn("Failed to acquire slot lock", zap.String("key", coord.LockKey()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrTemporary, err)
	}
	defer unlock()

	var booking *model.Booking
	err = s.retryMaterialization(coord, func() (err error) {
		booking, err = s.book(ctx, req, status)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.ledger.publish(ctx, events.BookingCreated, booking)
	s.logger.Info("Slot booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("slot_id", booking.SlotID),
		zap.Int64("gymnast_id", booking.GymnastID),
		zap.Int64("requester_id", req.RequesterID),
		zap.String("status", string(booking.Status)),
	)
	return booking, nil
}

// book: одна попытка: материализация, блокировка слота, проверка вместимости, запись
func (s *SchedulingService) book(ctx context.Context, req BookRequest, status model.BookingStatus) (*model.Booking, error) {
	today := clock.Today(s.clock)

	var (
		booking      *model.Booking
		materialized *bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		var slotID int64
		switch slot := req.Slot.(type) {
		case *model.Slot:
			slotID = slot.ID
		case *model.VirtualSlot:
			saved, created, err := tx.Slots().InsertOrFetch(ctx, slot.Persist())
			if err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return fmt.Errorf("%w: %v", ErrMaterializationConflict, err)
				}
				return fmt.Errorf("materialize slot: %w", err)
			}
			slotID = saved.ID
			materialized = &created
		default:
			return validationError("unsupported slot kind %q", req.Slot.Kind())
		}

		locked, err := tx.Slots().LockByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("lock slot: %w", err)
		}
		if locked == nil {
			return ErrSlotNotFound
		}
		if locked.State == model.SlotStateCancelled {
			return ErrSlotCancelled
		}
		if locked.Date.Before(today) {
			return ErrSlotExpired
		}

		booking, err = s.ledger.admit(ctx, tx, locked, admission{
			GymnastID:   req.GymnastID,
			RequesterID: req.RequesterID,
			Event:       req.Event,
			Notes:       strings.TrimSpace(req.Notes),
			Status:      status,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if materialized != nil {
		s.metrics.ObserveMaterialization(*materialized)
	}
	return booking, nil
}

// checkRequester: записать гимнаста может его опекун, тренер слота или администратор
func (s *SchedulingService) checkRequester(ctx context.Context, coachID, gymnastID, requesterID int64) error {
	gymnast, err := s.store.Gymnasts().GetByID(ctx, gymnastID)
	if err != nil {
		return fmt.Errorf("get gymnast: %w", err)
	}
	if gymnast == nil {
		return fmt.Errorf("gymnast %d: %w", gymnastID, ErrNotFound)
	}
	if requesterID != SystemActor && requesterID != coachID && requesterID != gymnast.GuardianUserID {
		return ErrForbidden
	}
	return nil
}

// initialStatus определяется политикой зала тренера
func (s *SchedulingService) initialStatus(ctx context.Context, coachID int64) (model.BookingStatus, error) {
	profile, err := s.store.Coaches().GetProfile(ctx, coachID)
	if err != nil {
		return "", fmt.Errorf("get coach profile: %w", err)
	}
	if profile == nil {
		return model.BookingStatusPending, nil
	}

	hub, err := s.store.Coaches().GetHub(ctx, profile.HubID)
	if err != nil {
		return "", fmt.Errorf("get hub: %w", err)
	}
	if hub != nil && hub.AutoConfirmBookings {
		return model.BookingStatusConfirmed, nil
	}
	return model.BookingStatusPending, nil
}

// CancelBooking отменяет запись и освобождает место
func (s *SchedulingService) CancelBooking(ctx context.Context, bookingID, actorID int64) (*model.Booking, error) {
	return s.ledger.Cancel(ctx, bookingID, actorID)
}

// ListBookings: записи участника по фильтру дат
func (s *SchedulingService) ListBookings(ctx context.Context, filter model.BookingFilter, when model.DateFilter) ([]*model.Booking, error) {
	return s.ledger.List(ctx, filter, when)
}

// CancelSlot снимает слот с расписания вместе с активными записями.
// Виртуальный слот сохраняется отменённым, чтобы генерация больше не занимала его координату.
func (s *SchedulingService) CancelSlot(ctx context.Context, target model.BookableSlot, actorID int64) (_ *model.Slot, err error) {
	if target == nil {
		return nil, validationError("slot is required")
	}
	coord := target.Coordinate()
	if actorID != SystemActor && actorID != coord.CoachID {
		return nil, ErrForbidden
	}

	ctx, span := startSpan(ctx, "SchedulingService.CancelSlot", attribute.String("slot.key", target.Key()))
	defer func() { endSpan(span, err) }()

	unlock, err := s.locker.Lock(ctx, coord.LockKey())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemporary, err)
	}
	defer unlock()

	var (
		result    *model.Slot
		cancelled []*model.Booking
	)
	err = s.retryMaterialization(coord, func() (err error) {
		result, cancelled, err = s.cancelSlot(ctx, target)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, b := range cancelled {
		s.ledger.publish(ctx, events.BookingCancelled, b)
	}
	s.logger.Info("Slot cancelled",
		zap.Int64("slot_id", result.ID),
		zap.Int64("actor_id", actorID),
		zap.Int("bookings_cancelled", len(cancelled)),
	)
	return result, nil
}

// cancelSlot: одна попытка снять слот в транзакции
func (s *SchedulingService) cancelSlot(ctx context.Context, target model.BookableSlot) (*model.Slot, []*model.Booking, error) {
	var (
		cancelled []*model.Booking
		result    *model.Slot
	)
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		var slotID int64
		switch slot := target.(type) {
		case *model.Slot:
			slotID = slot.ID
		case *model.VirtualSlot:
			saved, _, err := tx.Slots().InsertOrFetch(ctx, slot.Persist())
			if err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return fmt.Errorf("%w: %v", ErrMaterializationConflict, err)
				}
				return fmt.Errorf("materialize slot: %w", err)
			}
			slotID = saved.ID
		}

		locked, err := tx.Slots().LockByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("lock slot: %w", err)
		}
		if locked == nil {
			return ErrSlotNotFound
		}

		active, err := tx.Bookings().ListActiveBySlot(ctx, locked.ID)
		if err != nil {
			return fmt.Errorf("list slot bookings: %w", err)
		}
		for _, b := range active {
			if err := tx.Bookings().UpdateStatus(ctx, b.ID, model.BookingStatusCancelled); err != nil {
				return fmt.Errorf("cancel booking %d: %w", b.ID, err)
			}
			s.metrics.ObserveCancellation(string(b.Status))
			b.Status = model.BookingStatusCancelled
			cancelled = append(cancelled, b)
		}

		if err := tx.Slots().Cancel(ctx, locked.ID); err != nil {
			return fmt.Errorf("cancel slot: %w", err)
		}
		locked.State = model.SlotStateCancelled
		locked.BookedCount = 0
		result = locked
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, cancelled, nil
}

// retryMaterialization повторяет attempt, пока сохранение слота упирается в конфликт координаты
func (s *SchedulingService) retryMaterialization(coord model.SlotCoordinate, attempt func() error) error {
	var err error
	for i := 1; i <= maxMaterializeAttempts; i++ {
		err = attempt()
		if !errors.Is(err, ErrMaterializationConflict) {
			return err
		}
		s.logger.Debug("Slot materialization conflict, retrying",
			zap.String("key", coord.LockKey()),
			zap.Int("attempt", i),
		)
	}
	return fmt.Errorf("%w: %v", ErrTemporary, err)
}

func bookingResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultBooked
	case errors.Is(err, ErrSlotFull):
		return metrics.ResultFull
	case errors.Is(err, ErrSlotExpired):
		return metrics.ResultExpired
	case errors.Is(err, ErrAlreadyBooked):
		return metrics.ResultAlreadyBooked
	default:
		return metrics.ResultError
	}
}
