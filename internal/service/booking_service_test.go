package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/lesson_scheduler/internal/events"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

func TestConfirm_Transitions(t *testing.T) {
	f := newFixture(t, 1, false)
	booking, err := f.book(f.slotsOn(monday)[0], f.addGymnast("A"))
	require.NoError(t, err)
	require.Equal(t, model.BookingStatusPending, booking.Status)

	_, err = f.ledger.Confirm(f.ctx, booking.ID, f.guardian.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	confirmed, err := f.ledger.Confirm(f.ctx, booking.ID, f.coach.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)

	_, err = f.ledger.Confirm(f.ctx, booking.ID, f.coach.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.ledger.Cancel(f.ctx, booking.ID, SystemActor)
	require.NoError(t, err)

	_, err = f.ledger.Cancel(f.ctx, booking.ID, SystemActor)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.ledger.Confirm(f.ctx, 12345, SystemActor)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	assert.Equal(t,
		[]events.EventType{events.BookingCreated, events.BookingConfirmed, events.BookingCancelled},
		eventTypes(f.recorder),
	)
}

func TestCompletedIsDerivedAndTerminal(t *testing.T) {
	f := newFixture(t, 1, true)
	booking, err := f.book(f.slotsOn(monday)[0], f.addGymnast("A"))
	require.NoError(t, err)

	f.at(monday.AddDate(0, 0, 2))

	got, err := f.ledger.Get(f.ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, got.Status)

	_, err = f.ledger.Cancel(f.ctx, booking.ID, f.coach.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := f.store.Bookings().GetByID(f.ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, stored.Status)
}

func TestCancel_Permissions(t *testing.T) {
	f := newFixture(t, 2, false)
	booking, err := f.book(f.slotsOn(monday)[0], f.addGymnast("A"))
	require.NoError(t, err)

	stranger, err := f.users.RegisterTelegramUser(f.ctx, 5005, "x", "X", "")
	require.NoError(t, err)

	_, err = f.ledger.Cancel(f.ctx, booking.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.ledger.Cancel(f.ctx, booking.ID, f.coach.ID)
	assert.NoError(t, err)
}

func TestListBookings(t *testing.T) {
	f := newFixture(t, 1, false)
	gymnast := f.addGymnast("A")

	next := f.slotsOn(monday.AddDate(0, 0, 7))
	require.NotEmpty(t, next)

	today, err := f.book(f.slotsOn(monday)[0], gymnast)
	require.NoError(t, err)
	later, err := f.book(next[0], gymnast)
	require.NoError(t, err)

	byGymnast := model.BookingFilter{GymnastID: &gymnast.ID}

	list, err := f.scheduling.ListBookings(f.ctx, byGymnast, model.DateFilterUpcoming)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, today.ID, list[0].ID)
	assert.Equal(t, later.ID, list[1].ID)

	list, err = f.scheduling.ListBookings(f.ctx, byGymnast, model.DateFilterToday)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, today.ID, list[0].ID)

	list, err = f.scheduling.ListBookings(f.ctx, byGymnast, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.scheduling.ListBookings(f.ctx, model.BookingFilter{RequesterID: &f.guardian.ID}, model.DateFilterPast)
	require.NoError(t, err)
	assert.Empty(t, list)

	pending, err := f.ledger.PendingForCoach(f.ctx, f.coach.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.scheduling.ListBookings(f.ctx, model.BookingFilter{}, model.DateFilterAll)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.scheduling.ListBookings(f.ctx, model.BookingFilter{GymnastID: &gymnast.ID, CoachID: &f.coach.ID}, model.DateFilterAll)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.scheduling.ListBookings(f.ctx, byGymnast, "tomorrow")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListBookings_PastIsDescending(t *testing.T) {
	f := newFixture(t, 1, true)
	gymnast := f.addGymnast("A")

	first, err := f.book(f.slotsOn(monday)[0], gymnast)
	require.NoError(t, err)
	second, err := f.book(f.slotsOn(monday.AddDate(0, 0, 7))[0], gymnast)
	require.NoError(t, err)

	f.at(monday.AddDate(0, 0, 14))

	list, err := f.scheduling.ListBookings(f.ctx, model.BookingFilter{CoachID: &f.coach.ID}, model.DateFilterPast)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	for _, b := range list {
		assert.Equal(t, model.BookingStatusCompleted, b.Status)
	}
}
