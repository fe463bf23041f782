package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
)

// ErrNotFound: изменяемая строка не найдена
var ErrNotFound = errors.New("record not found")

// ErrDuplicateActiveBooking: гимнаст уже активно записан в этот слот
var ErrDuplicateActiveBooking = errors.New("gymnast already has an active booking for this slot")

// ErrConflict: слот конфликтует по координате, но прочитать его не удалось; операцию можно повторить
var ErrConflict = base.ErrConflict

// Методы Get* возвращают (nil, nil), если записи нет.

type WindowRepository interface {
	Create(ctx context.Context, window *model.AvailabilityWindow) error
	Update(ctx context.Context, window *model.AvailabilityWindow) error
	Deactivate(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.AvailabilityWindow, error)
	ListByCoach(ctx context.Context, coachID int64) ([]*model.AvailabilityWindow, error)
	// ListApplicable возвращает активные окна, период действия которых пересекает [from, to]
	ListApplicable(ctx context.Context, scope model.CoachScope, from, to time.Time) ([]*model.AvailabilityWindow, error)
}

type PackageRepository interface {
	Create(ctx context.Context, pkg *model.LessonPackage) error
	Update(ctx context.Context, pkg *model.LessonPackage) error
	GetByID(ctx context.Context, id int64) (*model.LessonPackage, error)
	ListByCoach(ctx context.Context, coachID int64, activeOnly bool) ([]*model.LessonPackage, error)
	ListActive(ctx context.Context, scope model.CoachScope) ([]*model.LessonPackage, error)
}

type CoachRepository interface {
	CreateHub(ctx context.Context, hub *model.Hub) error
	GetHub(ctx context.Context, id int64) (*model.Hub, error)
	UpsertProfile(ctx context.Context, profile *model.CoachProfile) error
	GetProfile(ctx context.Context, coachID int64) (*model.CoachProfile, error)
	ListProfiles(ctx context.Context, scope model.CoachScope) ([]*model.CoachProfile, error)
}

type SlotRepository interface {
	// InsertOrFetch сохраняет слот по координате или возвращает уже существующий
	InsertOrFetch(ctx context.Context, slot *model.Slot) (*model.Slot, bool, error)
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	// LockByID читает слот и держит блокировку строки до конца транзакции
	LockByID(ctx context.Context, id int64) (*model.Slot, error)
	// ListInRange возвращает слоты за [from, to], включая отменённые
	ListInRange(ctx context.Context, scope model.CoachScope, from, to time.Time) ([]*model.Slot, error)
	Cancel(ctx context.Context, id int64) error
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error
	CountActive(ctx context.Context, slotID int64) (int, error)
	HasActive(ctx context.Context, slotID, gymnastID int64) (bool, error)
	ListActiveBySlot(ctx context.Context, slotID int64) ([]*model.Booking, error)
	// List возвращает записи участника вместе со слотами, отфильтрованные по дате слота
	List(ctx context.Context, filter model.BookingFilter, when model.DateFilter, today time.Time) ([]*model.Booking, error)
	ListPendingByCoach(ctx context.Context, coachID int64) ([]*model.Booking, error)
}

type UserRepository interface {
	// RegisterByTelegramID создаёт пользователя или возвращает существующего
	RegisterByTelegramID(ctx context.Context, user *model.User) (*model.User, bool, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

type GymnastRepository interface {
	Create(ctx context.Context, gymnast *model.Gymnast) error
	GetByID(ctx context.Context, id int64) (*model.Gymnast, error)
	ListByGuardian(ctx context.Context, guardianID int64) ([]*model.Gymnast, error)
}

type ChannelRepository interface {
	GetOrCreate(ctx context.Context, channel *model.DirectChannel) (*model.DirectChannel, bool, error)
}

// Repositories: набор репозиториев поверх одного соединения (пул или транзакция)
type Repositories interface {
	Windows() WindowRepository
	Packages() PackageRepository
	Coaches() CoachRepository
	Slots() SlotRepository
	Bookings() BookingRepository
	Users() UserRepository
	Gymnasts() GymnastRepository
	Channels() ChannelRepository
}

// Store: хранилище: репозитории вне транзакции и запуск транзакции
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(tx Repositories) error) error
}

// DateBounds переводит фильтр в границы дат [from, to) для запроса; nil означает без ограничения
func DateBounds(when model.DateFilter, today time.Time) (from, to *time.Time) {
	tomorrow := today.AddDate(0, 0, 1)
	switch when {
	case model.DateFilterToday:
		return &today, &tomorrow
	case model.DateFilterUpcoming:
		return &today, nil
	case model.DateFilterPast:
		return nil, &today
	default:
		return nil, nil
	}
}
