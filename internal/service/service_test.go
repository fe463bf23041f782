package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/events"
	"github.com/Freeeeeet/lesson_scheduler/internal/lock"
	"github.com/Freeeeeet/lesson_scheduler/internal/metrics"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/memory"
)

// monday: понедельник, 3 марта 2025
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store

	hub      *model.Hub
	coach    *model.User
	guardian *model.User
	window   *model.AvailabilityWindow

	recorder   *events.Recorder
	ledger     *BookingService
	scheduling *SchedulingService
	users      *UserService
	coaches    *CoachService
	windows    *AvailabilityService
	channels   *ChannelService
}

// newFixture: тренер с окном по понедельникам 13:00–14:30, вместимость по умолчанию maxGymnasts
func newFixture(t *testing.T, maxGymnasts int, autoConfirm bool) *fixture {
	t.Helper()

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: memory.NewStore(),
	}
	f.at(monday.Add(8 * time.Hour))

	var err error
	f.hub, err = f.coaches.CreateHub(f.ctx, "Flip Gym", autoConfirm)
	require.NoError(t, err)

	f.coach, err = f.users.RegisterTelegramUser(f.ctx, 1001, "coach", "Anna", "")
	require.NoError(t, err)
	f.guardian, err = f.users.RegisterTelegramUser(f.ctx, 2002, "parent", "Oleg", "")
	require.NoError(t, err)

	require.NoError(t, f.coaches.UpsertProfile(f.ctx, &model.CoachProfile{
		CoachID:            f.coach.ID,
		HubID:              f.hub.ID,
		DisplayName:        "Anna",
		DefaultMaxGymnasts: maxGymnasts,
		IsActive:           true,
	}))

	f.window, err = f.windows.CreateWindow(f.ctx, f.coach.ID, WindowInput{
		DayOfWeek: int(time.Monday),
		StartTime: model.NewTimeOfDay(13, 0),
		EndTime:   model.NewTimeOfDay(14, 30),
	})
	require.NoError(t, err)

	return f
}

// at пересобирает сервисы поверх того же хранилища с часами, остановленными на now
func (f *fixture) at(now time.Time) {
	clk := clock.Fixed(now)
	logger := zap.NewNop()

	f.recorder = &events.Recorder{}
	m := metrics.NewSchedulingMetrics(prometheus.NewRegistry())

	f.ledger = NewBookingService(f.store, clk, f.recorder, m, logger)
	f.scheduling = NewSchedulingService(f.store, f.ledger, lock.NewMemory(), clk, DefaultSchedulingConfig(), m, logger)
	f.users = NewUserService(f.store, logger)
	f.coaches = NewCoachService(f.store, logger)
	f.windows = NewAvailabilityService(f.store, logger)
	f.channels = NewChannelService(f.store, logger)
}

func (f *fixture) addPackage(minutes int) {
	f.t.Helper()
	_, err := f.coaches.CreatePackage(f.ctx, f.coach.ID, PackageInput{
		Name:            "Private",
		DurationMinutes: minutes,
		Price:           4500,
		MaxGymnasts:     1,
	})
	require.NoError(f.t, err)
}

func (f *fixture) addGymnast(name string) *model.Gymnast {
	f.t.Helper()
	g, err := f.users.AddGymnast(f.ctx, f.hub.ID, f.guardian.ID, name)
	require.NoError(f.t, err)
	return g
}

func (f *fixture) slotsOn(date time.Time) []model.BookableSlot {
	f.t.Helper()
	slots, err := f.scheduling.ListBookableSlots(f.ctx, model.ForCoach(f.coach.ID), date, date)
	require.NoError(f.t, err)
	return slots
}

func (f *fixture) book(slot model.BookableSlot, gymnast *model.Gymnast) (*model.Booking, error) {
	return f.scheduling.BookSlot(f.ctx, BookRequest{
		Slot:        slot,
		GymnastID:   gymnast.ID,
		Event:       "vault",
		RequesterID: f.guardian.ID,
	})
}

func eventTypes(r *events.Recorder) []events.EventType {
	var out []events.EventType
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}
