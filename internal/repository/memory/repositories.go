package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
)

func (d *state) profile(coachID int64) *model.CoachProfile {
	p, ok := d.profiles[coachID]
	if !ok {
		return nil
	}
	return &p
}

func (d *state) activeCount(slotID int64) int {
	count := 0
	for _, b := range d.bookings {
		if b.SlotID == slotID && b.Status.IsActive() {
			count++
		}
	}
	return count
}

func (d *state) slotWithCount(id int64) *model.Slot {
	slot, ok := d.slots[id]
	if !ok {
		return nil
	}
	slot.BookedCount = d.activeCount(id)
	return &slot
}

func (d *state) bookingWithSlot(b model.Booking) *model.Booking {
	b.Slot = d.slotWithCount(b.SlotID)
	return &b
}

// ---- окна доступности ----

type windowRepo struct{ *repos }

func (r *windowRepo) Create(_ context.Context, window *model.AvailabilityWindow) error {
	r.with(func(d *state) {
		window.ID = d.nextID()
		window.CreatedAt = r.now()
		window.UpdatedAt = window.CreatedAt
		d.windows[window.ID] = *window
	})
	return nil
}

func (r *windowRepo) Update(_ context.Context, window *model.AvailabilityWindow) error {
	var err error
	r.with(func(d *state) {
		existing, ok := d.windows[window.ID]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		window.CoachID = existing.CoachID
		window.CreatedAt = existing.CreatedAt
		window.UpdatedAt = r.now()
		d.windows[window.ID] = *window
	})
	return err
}

func (r *windowRepo) Deactivate(_ context.Context, id int64) error {
	var err error
	r.with(func(d *state) {
		w, ok := d.windows[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		w.IsActive = false
		w.UpdatedAt = r.now()
		d.windows[id] = w
	})
	return err
}

func (r *windowRepo) GetByID(_ context.Context, id int64) (*model.AvailabilityWindow, error) {
	var out *model.AvailabilityWindow
	r.with(func(d *state) {
		if w, ok := d.windows[id]; ok {
			out = &w
		}
	})
	return out, nil
}

func (r *windowRepo) ListByCoach(_ context.Context, coachID int64) ([]*model.AvailabilityWindow, error) {
	var out []*model.AvailabilityWindow
	r.with(func(d *state) {
		for _, w := range d.windows {
			if w.CoachID == coachID {
				w := w
				out = append(out, &w)
			}
		}
	})
	sortWindows(out)
	return out, nil
}

func (r *windowRepo) ListApplicable(_ context.Context, scope model.CoachScope, from, to time.Time) ([]*model.AvailabilityWindow, error) {
	from, to = model.DateOf(from), model.DateOf(to)

	var out []*model.AvailabilityWindow
	r.with(func(d *state) {
		for _, w := range d.windows {
			if !w.IsActive || !w.Intersects(from, to) || !scope.Includes(w.CoachID, d.profile(w.CoachID)) {
				continue
			}
			w := w
			out = append(out, &w)
		}
	})
	sortWindows(out)
	return out, nil
}

func sortWindows(windows []*model.AvailabilityWindow) {
	sort.Slice(windows, func(i, j int) bool {
		a, b := windows[i], windows[j]
		if a.CoachID != b.CoachID {
			return a.CoachID < b.CoachID
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}

// ---- пакеты ----

type packageRepo struct{ *repos }

func (r *packageRepo) Create(_ context.Context, pkg *model.LessonPackage) error {
	r.with(func(d *state) {
		pkg.ID = d.nextID()
		pkg.CreatedAt = r.now()
		d.packages[pkg.ID] = *pkg
	})
	return nil
}

func (r *packageRepo) Update(_ context.Context, pkg *model.LessonPackage) error {
	var err error
	r.with(func(d *state) {
		existing, ok := d.packages[pkg.ID]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		pkg.CoachID = existing.CoachID
		pkg.CreatedAt = existing.CreatedAt
		d.packages[pkg.ID] = *pkg
	})
	return err
}

func (r *packageRepo) GetByID(_ context.Context, id int64) (*model.LessonPackage, error) {
	var out *model.LessonPackage
	r.with(func(d *state) {
		if p, ok := d.packages[id]; ok {
			out = &p
		}
	})
	return out, nil
}

func (r *packageRepo) ListByCoach(_ context.Context, coachID int64, activeOnly bool) ([]*model.LessonPackage, error) {
	var out []*model.LessonPackage
	r.with(func(d *state) {
		for _, p := range d.packages {
			if p.CoachID == coachID && (!activeOnly || p.IsActive) {
				p := p
				out = append(out, &p)
			}
		}
	})
	sortPackages(out)
	return out, nil
}

func (r *packageRepo) ListActive(_ context.Context, scope model.CoachScope) ([]*model.LessonPackage, error) {
	var out []*model.LessonPackage
	r.with(func(d *state) {
		for _, p := range d.packages {
			if p.IsActive && scope.Includes(p.CoachID, d.profile(p.CoachID)) {
				p := p
				out = append(out, &p)
			}
		}
	})
	sortPackages(out)
	return out, nil
}

func sortPackages(packages []*model.LessonPackage) {
	sort.Slice(packages, func(i, j int) bool {
		a, b := packages[i], packages[j]
		if a.CoachID != b.CoachID {
			return a.CoachID < b.CoachID
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.ID < b.ID
	})
}

// ---- залы и профили ----

type coachRepo struct{ *repos }

func (r *coachRepo) CreateHub(_ context.Context, hub *model.Hub) error {
	r.with(func(d *state) {
		hub.ID = d.nextID()
		hub.CreatedAt = r.now()
		d.hubs[hub.ID] = *hub
	})
	return nil
}

func (r *coachRepo) GetHub(_ context.Context, id int64) (*model.Hub, error) {
	var out *model.Hub
	r.with(func(d *state) {
		if h, ok := d.hubs[id]; ok {
			out = &h
		}
	})
	return out, nil
}

func (r *coachRepo) UpsertProfile(_ context.Context, profile *model.CoachProfile) error {
	r.with(func(d *state) {
		profile.UpdatedAt = r.now()
		d.profiles[profile.CoachID] = *profile
	})
	return nil
}

func (r *coachRepo) GetProfile(_ context.Context, coachID int64) (*model.CoachProfile, error) {
	var out *model.CoachProfile
	r.with(func(d *state) {
		out = d.profile(coachID)
	})
	return out, nil
}

func (r *coachRepo) ListProfiles(_ context.Context, scope model.CoachScope) ([]*model.CoachProfile, error) {
	var out []*model.CoachProfile
	r.with(func(d *state) {
		for _, p := range d.profiles {
			if p.IsActive && scope.Includes(p.CoachID, &p) {
				p := p
				out = append(out, &p)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].CoachID < out[j].CoachID
	})
	return out, nil
}

// ---- слоты ----

type slotRepo struct{ *repos }

func (r *slotRepo) InsertOrFetch(_ context.Context, slot *model.Slot) (*model.Slot, bool, error) {
	var (
		out     *model.Slot
		created bool
	)
	r.with(func(d *state) {
		date := model.DateOf(slot.Date)
		for id, s := range d.slots {
			if s.CoachID == slot.CoachID && s.Date.Equal(date) && s.StartTime == slot.StartTime {
				out = d.slotWithCount(id)
				return
			}
		}

		saved := *slot
		saved.ID = d.nextID()
		saved.Date = date
		saved.CreatedAt = r.now()
		saved.BookedCount = 0
		if saved.State == "" {
			saved.State = model.SlotStateActive
		}
		d.slots[saved.ID] = saved
		out, created = &saved, true
	})
	return out, created, nil
}

func (r *slotRepo) GetByID(_ context.Context, id int64) (*model.Slot, error) {
	var out *model.Slot
	r.with(func(d *state) {
		out = d.slotWithCount(id)
	})
	return out, nil
}

// LockByID: внутри WithinTx мьютекс хранилища уже сериализует доступ
func (r *slotRepo) LockByID(ctx context.Context, id int64) (*model.Slot, error) {
	return r.GetByID(ctx, id)
}

func (r *slotRepo) ListInRange(_ context.Context, scope model.CoachScope, from, to time.Time) ([]*model.Slot, error) {
	from, to = model.DateOf(from), model.DateOf(to)

	var out []*model.Slot
	r.with(func(d *state) {
		for id, s := range d.slots {
			if s.Date.Before(from) || s.Date.After(to) || !scope.Includes(s.CoachID, d.profile(s.CoachID)) {
				continue
			}
			out = append(out, d.slotWithCount(id))
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].CoachID < out[j].CoachID
	})
	return out, nil
}

func (r *slotRepo) Cancel(_ context.Context, id int64) error {
	var err error
	r.with(func(d *state) {
		s, ok := d.slots[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		s.State = model.SlotStateCancelled
		d.slots[id] = s
	})
	return err
}

// ---- записи ----

type bookingRepo struct{ *repos }

func (r *bookingRepo) Create(_ context.Context, booking *model.Booking) error {
	var err error
	r.with(func(d *state) {
		for _, b := range d.bookings {
			if b.SlotID == booking.SlotID && b.GymnastID == booking.GymnastID && b.Status.IsActive() {
				err = repository.ErrDuplicateActiveBooking
				return
			}
		}

		booking.ID = d.nextID()
		booking.CreatedAt = r.now()
		booking.UpdatedAt = booking.CreatedAt

		saved := *booking
		saved.Slot = nil
		d.bookings[saved.ID] = saved
	})
	return err
}

func (r *bookingRepo) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	var out *model.Booking
	r.with(func(d *state) {
		if b, ok := d.bookings[id]; ok {
			out = d.bookingWithSlot(b)
		}
	})
	return out, nil
}

func (r *bookingRepo) UpdateStatus(_ context.Context, id int64, status model.BookingStatus) error {
	var err error
	r.with(func(d *state) {
		b, ok := d.bookings[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		now := r.now()
		b.Status = status
		b.UpdatedAt = now
		if status == model.BookingStatusCancelled {
			b.CancelledAt = &now
		}
		d.bookings[id] = b
	})
	return err
}

func (r *bookingRepo) CountActive(_ context.Context, slotID int64) (int, error) {
	var count int
	r.with(func(d *state) {
		count = d.activeCount(slotID)
	})
	return count, nil
}

func (r *bookingRepo) HasActive(_ context.Context, slotID, gymnastID int64) (bool, error) {
	var exists bool
	r.with(func(d *state) {
		for _, b := range d.bookings {
			if b.SlotID == slotID && b.GymnastID == gymnastID && b.Status.IsActive() {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r *bookingRepo) ListActiveBySlot(_ context.Context, slotID int64) ([]*model.Booking, error) {
	var out []*model.Booking
	r.with(func(d *state) {
		for _, b := range d.bookings {
			if b.SlotID == slotID && b.Status.IsActive() {
				out = append(out, d.bookingWithSlot(b))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *bookingRepo) List(_ context.Context, filter model.BookingFilter, when model.DateFilter, today time.Time) ([]*model.Booking, error) {
	from, to := repository.DateBounds(when, today)

	var out []*model.Booking
	r.with(func(d *state) {
		for _, b := range d.bookings {
			if !matchesFilter(b, filter) {
				continue
			}
			withSlot := d.bookingWithSlot(b)
			if withSlot.Slot == nil {
				continue
			}
			date := withSlot.Slot.Date
			if from != nil && date.Before(*from) {
				continue
			}
			if to != nil && !date.Before(*to) {
				continue
			}
			out = append(out, withSlot)
		}
	})

	descending := when == model.DateFilterPast
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Slot.Date.Equal(b.Slot.Date) {
			return a.Slot.Date.Before(b.Slot.Date) != descending
		}
		if a.Slot.StartTime != b.Slot.StartTime {
			return (a.Slot.StartTime < b.Slot.StartTime) != descending
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *bookingRepo) ListPendingByCoach(_ context.Context, coachID int64) ([]*model.Booking, error) {
	var out []*model.Booking
	r.with(func(d *state) {
		for _, b := range d.bookings {
			if b.CoachID == coachID && b.Status == model.BookingStatusPending {
				out = append(out, d.bookingWithSlot(b))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Slot, out[j].Slot
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matchesFilter(b model.Booking, filter model.BookingFilter) bool {
	if filter.CoachID != nil && b.CoachID != *filter.CoachID {
		return false
	}
	if filter.RequesterID != nil && b.BookedByUserID != *filter.RequesterID {
		return false
	}
	if filter.GymnastID != nil && b.GymnastID != *filter.GymnastID {
		return false
	}
	return true
}

// ---- пользователи и ростер ----

type userRepo struct{ *repos }

func (r *userRepo) RegisterByTelegramID(_ context.Context, user *model.User) (*model.User, bool, error) {
	var (
		out     *model.User
		created bool
	)
	r.with(func(d *state) {
		for _, u := range d.users {
			if u.TelegramID == user.TelegramID {
				u := u
				out = &u
				return
			}
		}

		saved := *user
		saved.ID = d.nextID()
		saved.CreatedAt = r.now()
		d.users[saved.ID] = saved
		out, created = &saved, true
	})
	return out, created, nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	var out *model.User
	r.with(func(d *state) {
		if u, ok := d.users[id]; ok {
			out = &u
		}
	})
	return out, nil
}

func (r *userRepo) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	var out *model.User
	r.with(func(d *state) {
		for _, u := range d.users {
			if u.TelegramID == telegramID {
				u := u
				out = &u
				return
			}
		}
	})
	return out, nil
}

type gymnastRepo struct{ *repos }

func (r *gymnastRepo) Create(_ context.Context, gymnast *model.Gymnast) error {
	r.with(func(d *state) {
		gymnast.ID = d.nextID()
		d.gymnasts[gymnast.ID] = *gymnast
	})
	return nil
}

func (r *gymnastRepo) GetByID(_ context.Context, id int64) (*model.Gymnast, error) {
	var out *model.Gymnast
	r.with(func(d *state) {
		if g, ok := d.gymnasts[id]; ok {
			out = &g
		}
	})
	return out, nil
}

func (r *gymnastRepo) ListByGuardian(_ context.Context, guardianID int64) ([]*model.Gymnast, error) {
	var out []*model.Gymnast
	r.with(func(d *state) {
		for _, g := range d.gymnasts {
			if g.GuardianUserID == guardianID {
				g := g
				out = append(out, &g)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ---- личные каналы ----

type channelRepo struct{ *repos }

func (r *channelRepo) GetOrCreate(_ context.Context, channel *model.DirectChannel) (*model.DirectChannel, bool, error) {
	var (
		out     *model.DirectChannel
		created bool
	)
	r.with(func(d *state) {
		key := [2]int64{channel.UserLowID, channel.UserHighID}
		if existing, ok := d.channels[key]; ok {
			out = &existing
			return
		}

		saved := *channel
		saved.CreatedAt = r.now()
		d.channels[key] = saved
		out, created = &saved, true
	})
	return out, created, nil
}
