// Package memory: хранилище в памяти процесса для режима разработки и тестов сервисов.
// Транзакции сериализуются одним мьютексом; при ошибке состояние откатывается к снимку.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
)

type state struct {
	seq int64

	hubs     map[int64]model.Hub
	users    map[int64]model.User
	profiles map[int64]model.CoachProfile
	gymnasts map[int64]model.Gymnast
	windows  map[int64]model.AvailabilityWindow
	packages map[int64]model.LessonPackage
	slots    map[int64]model.Slot
	bookings map[int64]model.Booking
	channels map[[2]int64]model.DirectChannel
}

func newState() *state {
	return &state{
		hubs:     make(map[int64]model.Hub),
		users:    make(map[int64]model.User),
		profiles: make(map[int64]model.CoachProfile),
		gymnasts: make(map[int64]model.Gymnast),
		windows:  make(map[int64]model.AvailabilityWindow),
		packages: make(map[int64]model.LessonPackage),
		slots:    make(map[int64]model.Slot),
		bookings: make(map[int64]model.Booking),
		channels: make(map[[2]int64]model.DirectChannel),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *state) clone() *state {
	c := &state{
		seq:      s.seq,
		hubs:     cloneMap(s.hubs),
		users:    cloneMap(s.users),
		profiles: cloneMap(s.profiles),
		gymnasts: cloneMap(s.gymnasts),
		windows:  cloneMap(s.windows),
		packages: cloneMap(s.packages),
		slots:    cloneMap(s.slots),
		bookings: cloneMap(s.bookings),
		channels: cloneMap(s.channels),
	}
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store реализует repository.Store в памяти
type Store struct {
	mu    sync.Mutex
	data  *state
	now   func() time.Time
	repos *repos
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	s := &Store{
		data: newState(),
		now:  time.Now,
	}
	s.repos = &repos{store: s}
	return s
}

// repos: репозитории; inTx = true, когда мьютекс уже держит WithinTx
type repos struct {
	store *Store
	inTx  bool
}

func (r *repos) Windows() repository.WindowRepository   { return &windowRepo{r} }
func (r *repos) Packages() repository.PackageRepository { return &packageRepo{r} }
func (r *repos) Coaches() repository.CoachRepository    { return &coachRepo{r} }
func (r *repos) Slots() repository.SlotRepository       { return &slotRepo{r} }
func (r *repos) Bookings() repository.BookingRepository { return &bookingRepo{r} }
func (r *repos) Users() repository.UserRepository       { return &userRepo{r} }
func (r *repos) Gymnasts() repository.GymnastRepository { return &gymnastRepo{r} }
func (r *repos) Channels() repository.ChannelRepository { return &channelRepo{r} }

func (s *Store) Windows() repository.WindowRepository   { return s.repos.Windows() }
func (s *Store) Packages() repository.PackageRepository { return s.repos.Packages() }
func (s *Store) Coaches() repository.CoachRepository    { return s.repos.Coaches() }
func (s *Store) Slots() repository.SlotRepository       { return s.repos.Slots() }
func (s *Store) Bookings() repository.BookingRepository { return s.repos.Bookings() }
func (s *Store) Users() repository.UserRepository       { return s.repos.Users() }
func (s *Store) Gymnasts() repository.GymnastRepository { return s.repos.Gymnasts() }
func (s *Store) Channels() repository.ChannelRepository { return s.repos.Channels() }

// WithinTx выполняет fn эксклюзивно; при ошибке или панике изменения отбрасываются
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Repositories) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.data = snapshot
		}
	}()

	if err := fn(&repos{store: s, inTx: true}); err != nil {
		return err
	}

	committed = true
	return nil
}

// with выполняет f над состоянием под мьютексом (если он ещё не взят транзакцией)
func (r *repos) with(f func(d *state)) {
	if !r.inTx {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}
	f(r.store.data)
}

func (r *repos) now() time.Time {
	return r.store.now()
}
