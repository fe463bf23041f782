package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/lesson_scheduler/internal/events"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

func TestMondayScenario_FortyFiveMinutePackage(t *testing.T) {
	f := newFixture(t, 1, false)
	f.addPackage(45)
	gymnast := f.addGymnast("Masha")

	slots := f.slotsOn(monday)
	require.Len(t, slots, 2)
	for _, s := range slots {
		assert.Equal(t, model.SlotKindVirtual, s.Kind())
		assert.Equal(t, model.SlotStatusAvailable, s.Status())
		assert.True(t, s.Generated())
	}
	assert.Equal(t, model.NewTimeOfDay(13, 0), slots[0].Coordinate().StartTime)
	assert.Equal(t, model.NewTimeOfDay(13, 45), slots[0].End())
	assert.Equal(t, model.NewTimeOfDay(13, 45), slots[1].Coordinate().StartTime)
	assert.Equal(t, model.NewTimeOfDay(14, 30), slots[1].End())

	booking, err := f.book(slots[0], gymnast)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, booking.Status)
	assert.Equal(t, "vault", booking.Event)
	assert.Equal(t, f.coach.ID, booking.CoachID)
	require.NotNil(t, booking.Slot)
	assert.True(t, booking.Slot.Materialized)

	slots = f.slotsOn(monday)
	require.Len(t, slots, 2)

	persisted, ok := slots[0].(*model.Slot)
	require.True(t, ok, "first slot must be persisted after booking")
	assert.Equal(t, booking.SlotID, persisted.ID)
	assert.Equal(t, model.SlotStatusBooked, persisted.Status())
	assert.Equal(t, model.NewTimeOfDay(13, 0), persisted.StartTime)

	_, ok = slots[1].(*model.VirtualSlot)
	assert.True(t, ok, "second slot stays virtual")

	assert.Equal(t, []events.EventType{events.BookingCreated}, eventTypes(f.recorder))
}

func TestListBookableSlots_DefaultDurationWithoutPackages(t *testing.T) {
	f := newFixture(t, 1, false)

	slots := f.slotsOn(monday)
	require.Len(t, slots, 3)
	assert.Equal(t, model.NewTimeOfDay(14, 0), slots[2].Coordinate().StartTime)
	assert.Equal(t, model.NewTimeOfDay(14, 30), slots[2].End())
}

func TestListBookableSlots_NoPastDates(t *testing.T) {
	f := newFixture(t, 1, false)
	f.at(monday.AddDate(0, 0, 1))

	slots, err := f.scheduling.ListBookableSlots(f.ctx, model.ForCoach(f.coach.ID), monday, monday.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.True(t, s.Coordinate().Date.Equal(monday.AddDate(0, 0, 7)))
	}
}

func TestListBookableSlots_RangeValidation(t *testing.T) {
	f := newFixture(t, 1, false)

	_, err := f.scheduling.ListBookableSlots(f.ctx, model.ForCoach(f.coach.ID), monday.AddDate(0, 0, 1), monday)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.scheduling.ListBookableSlots(f.ctx, model.ForCoach(f.coach.ID), monday, monday.AddDate(0, 0, 90))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListBookableSlots_HubScope(t *testing.T) {
	f := newFixture(t, 1, false)

	other, err := f.users.RegisterTelegramUser(f.ctx, 3003, "coach2", "Ivan", "")
	require.NoError(t, err)
	otherHub, err := f.coaches.CreateHub(f.ctx, "Other", false)
	require.NoError(t, err)
	require.NoError(t, f.coaches.UpsertProfile(f.ctx, &model.CoachProfile{CoachID: other.ID, HubID: otherHub.ID, IsActive: true}))
	_, err = f.windows.CreateWindow(f.ctx, other.ID, WindowInput{
		DayOfWeek: int(time.Monday),
		StartTime: model.NewTimeOfDay(9, 0),
		EndTime:   model.NewTimeOfDay(10, 0),
	})
	require.NoError(t, err)

	slots, err := f.scheduling.ListBookableSlots(f.ctx, model.ForHub(f.hub.ID), monday, monday)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	for _, s := range slots {
		assert.Equal(t, f.coach.ID, s.Coordinate().CoachID)
	}
}

func TestBookSlot_ConcurrentBookingsRespectCapacity(t *testing.T) {
	f := newFixture(t, 1, false)
	slot := f.slotsOn(monday)[0]

	const callers = 8
	gymnasts := make([]*model.Gymnast, callers)
	for i := range gymnasts {
		gymnasts[i] = f.addGymnast(fmt.Sprintf("Gymnast %d", i))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		booked  int
		full    int
		unknown []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(g *model.Gymnast) {
			defer wg.Done()
			_, err := f.book(slot, g)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case assert.ErrorIs(t, err, ErrSlotFull):
				full++
			default:
				unknown = append(unknown, err)
			}
		}(gymnasts[i])
	}
	wg.Wait()

	assert.Empty(t, unknown)
	assert.Equal(t, 1, booked)
	assert.Equal(t, callers-1, full)

	persisted, err := f.store.Slots().ListInRange(f.ctx, model.ForCoach(f.coach.ID), monday, monday)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, 1, persisted[0].BookedCount)
}

func TestBookSlot_ConcurrentMaterializationIsIdempotent(t *testing.T) {
	f := newFixture(t, 4, false)
	slot := f.slotsOn(monday)[1]

	gymnasts := []*model.Gymnast{f.addGymnast("A"), f.addGymnast("B"), f.addGymnast("C"), f.addGymnast("D")}
	slotIDs := make([]int64, len(gymnasts))

	var wg sync.WaitGroup
	for i, g := range gymnasts {
		wg.Add(1)
		go func(i int, g *model.Gymnast) {
			defer wg.Done()
			booking, err := f.book(slot, g)
			if !assert.NoError(t, err) {
				return
			}
			slotIDs[i] = booking.SlotID
		}(i, g)
	}
	wg.Wait()

	for _, id := range slotIDs {
		assert.Equal(t, slotIDs[0], id)
	}

	persisted, err := f.store.Slots().ListInRange(f.ctx, model.ForCoach(f.coach.ID), monday, monday)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, 4, persisted[0].BookedCount)
	assert.Equal(t, model.SlotStatusBooked, persisted[0].Status())
}

func TestBookSlot_PartialStatus(t *testing.T) {
	f := newFixture(t, 2, false)
	booking, err := f.book(f.slotsOn(monday)[0], f.addGymnast("A"))
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusPartial, booking.Slot.Status())
	assert.Equal(t, 1, booking.Slot.Remaining())
}

func TestBookSlot_CancellationFreesCapacity(t *testing.T) {
	f := newFixture(t, 1, false)
	first, second := f.addGymnast("A"), f.addGymnast("B")
	slot := f.slotsOn(monday)[0]

	booking, err := f.book(slot, first)
	require.NoError(t, err)

	_, err = f.book(slot, second)
	require.ErrorIs(t, err, ErrSlotFull)

	cancelled, err := f.scheduling.CancelBooking(f.ctx, booking.ID, f.guardian.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)

	persisted := f.slotsOn(monday)[0]
	assert.Equal(t, model.SlotStatusAvailable, persisted.Status())

	_, err = f.book(persisted, second)
	require.NoError(t, err)

	stored, err := f.store.Bookings().GetByID(f.ctx, booking.ID)
	require.NoError(t, err)
	require.NotNil(t, stored, "cancelled bookings are kept")
	assert.NotNil(t, stored.CancelledAt)

	assert.Equal(t,
		[]events.EventType{events.BookingCreated, events.BookingCancelled, events.BookingCreated},
		eventTypes(f.recorder),
	)
}

func TestBookSlot_Expired(t *testing.T) {
	f := newFixture(t, 1, false)
	gymnast := f.addGymnast("A")
	slot := f.slotsOn(monday)[0]

	f.at(monday.AddDate(0, 0, 1))
	_, err := f.book(slot, gymnast)
	assert.ErrorIs(t, err, ErrSlotExpired)

	_, err = f.scheduling.ResolveSlot(f.ctx, SlotRef{CoachID: f.coach.ID, Date: monday, StartTime: model.NewTimeOfDay(13, 0)})
	assert.ErrorIs(t, err, ErrSlotExpired)
}

func TestBookSlot_AutoConfirmHub(t *testing.T) {
	f := newFixture(t, 1, true)
	booking, err := f.book(f.slotsOn(monday)[0], f.addGymnast("A"))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, booking.Status)
}

func TestBookSlot_SameGymnastTwice(t *testing.T) {
	f := newFixture(t, 3, false)
	gymnast := f.addGymnast("A")
	slot := f.slotsOn(monday)[0]

	_, err := f.book(slot, gymnast)
	require.NoError(t, err)

	_, err = f.book(slot, gymnast)
	assert.ErrorIs(t, err, ErrAlreadyBooked)
}

func TestBookSlot_RequesterMustBeGuardianOrCoach(t *testing.T) {
	f := newFixture(t, 2, false)
	gymnast := f.addGymnast("A")
	slot := f.slotsOn(monday)[0]

	stranger, err := f.users.RegisterTelegramUser(f.ctx, 4004, "stranger", "X", "")
	require.NoError(t, err)

	_, err = f.scheduling.BookSlot(f.ctx, BookRequest{Slot: slot, GymnastID: gymnast.ID, Event: "beam", RequesterID: stranger.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.scheduling.BookSlot(f.ctx, BookRequest{Slot: slot, GymnastID: gymnast.ID, Event: "beam", RequesterID: f.coach.ID})
	assert.NoError(t, err)

	_, err = f.scheduling.BookSlot(f.ctx, BookRequest{Slot: slot, GymnastID: 9999, Event: "beam", RequesterID: f.coach.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.scheduling.BookSlot(f.ctx, BookRequest{Slot: slot, GymnastID: gymnast.ID, Event: "  ", RequesterID: f.coach.ID})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResolveSlot(t *testing.T) {
	f := newFixture(t, 1, false)
	gymnast := f.addGymnast("A")

	virtual, err := f.scheduling.ResolveSlot(f.ctx, SlotRef{CoachID: f.coach.ID, Date: monday, StartTime: model.NewTimeOfDay(13, 30)})
	require.NoError(t, err)
	assert.Equal(t, model.SlotKindVirtual, virtual.Kind())

	booking, err := f.book(virtual, gymnast)
	require.NoError(t, err)

	byCoordinate, err := f.scheduling.ResolveSlot(f.ctx, SlotRef{CoachID: f.coach.ID, Date: monday, StartTime: model.NewTimeOfDay(13, 30)})
	require.NoError(t, err)
	assert.Equal(t, model.SlotKindPersisted, byCoordinate.Kind())

	byID, err := f.scheduling.ResolveSlot(f.ctx, SlotRef{SlotID: &booking.SlotID})
	require.NoError(t, err)
	assert.Equal(t, byCoordinate.Key(), byID.Key())

	_, err = f.scheduling.ResolveSlot(f.ctx, SlotRef{CoachID: f.coach.ID, Date: monday, StartTime: model.NewTimeOfDay(13, 10)})
	assert.ErrorIs(t, err, ErrSlotNotFound)

	missing := int64(777)
	_, err = f.scheduling.ResolveSlot(f.ctx, SlotRef{SlotID: &missing})
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestCancelSlot(t *testing.T) {
	f := newFixture(t, 2, false)
	slots := f.slotsOn(monday)
	require.Len(t, slots, 3)

	booking, err := f.book(slots[0], f.addGymnast("A"))
	require.NoError(t, err)

	_, err = f.scheduling.CancelSlot(f.ctx, booking.Slot, f.guardian.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := f.scheduling.CancelSlot(f.ctx, booking.Slot, f.coach.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusCancelled, cancelled.Status())

	// виртуальный слот сохраняется отменённым и больше не генерируется
	_, err = f.scheduling.CancelSlot(f.ctx, slots[2], SystemActor)
	require.NoError(t, err)

	remaining := f.slotsOn(monday)
	require.Len(t, remaining, 1)
	assert.Equal(t, model.NewTimeOfDay(13, 30), remaining[0].Coordinate().StartTime)

	stored, err := f.ledger.Get(f.ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, stored.Status)

	_, err = f.book(cancelled, f.addGymnast("B"))
	assert.ErrorIs(t, err, ErrSlotCancelled)
}
