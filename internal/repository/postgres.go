package repository

import (
	"context"

	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// pgRepositories: репозитории поверх одного соединения
type pgRepositories struct {
	windows  *PgWindowRepository
	packages *PgPackageRepository
	coaches  *PgCoachRepository
	slots    *PgSlotRepository
	bookings *PgBookingRepository
	users    *PgUserRepository
	gymnasts *PgGymnastRepository
	channels *PgChannelRepository
}

func newPgRepositories(db base.DBTX, logger *zap.Logger) *pgRepositories {
	return &pgRepositories{
		windows:  NewWindowRepository(db, logger),
		packages: NewPackageRepository(db, logger),
		coaches:  NewCoachRepository(db),
		slots:    NewSlotRepository(db),
		bookings: NewBookingRepository(db),
		users:    NewUserRepository(db),
		gymnasts: NewGymnastRepository(db),
		channels: NewChannelRepository(db),
	}
}

func (r *pgRepositories) Windows() WindowRepository   { return r.windows }
func (r *pgRepositories) Packages() PackageRepository { return r.packages }
func (r *pgRepositories) Coaches() CoachRepository    { return r.coaches }
func (r *pgRepositories) Slots() SlotRepository       { return r.slots }
func (r *pgRepositories) Bookings() BookingRepository { return r.bookings }
func (r *pgRepositories) Users() UserRepository       { return r.users }
func (r *pgRepositories) Gymnasts() GymnastRepository { return r.gymnasts }
func (r *pgRepositories) Channels() ChannelRepository { return r.channels }

// PgStore: хранилище в PostgreSQL
type PgStore struct {
	*pgRepositories
	pool   base.Pool
	logger *zap.Logger
}

// NewPgStore создаёт хранилище поверх пула (или любого base.Pool, например pgxmock)
func NewPgStore(pool base.Pool, logger *zap.Logger) *PgStore {
	return &PgStore{
		pgRepositories: newPgRepositories(pool, logger),
		pool:           pool,
		logger:         logger,
	}
}

// WithinTx выполняет fn с репозиториями, привязанными к одной транзакции
func (s *PgStore) WithinTx(ctx context.Context, fn func(tx Repositories) error) error {
	return base.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newPgRepositories(tx, s.logger))
	})
}
