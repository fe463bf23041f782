package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/lock"
	"github.com/Freeeeeet/lesson_scheduler/internal/metrics"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/memory"
)

// conflictingStore: первые conflicts вызовов InsertOrFetch в транзакции
// отвечают конфликтом координаты, как при откаченной параллельной вставке
type conflictingStore struct {
	*memory.Store
	conflicts atomic.Int32
}

func (s *conflictingStore) WithinTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Repositories) error {
		return fn(conflictingRepos{Repositories: tx, store: s})
	})
}

type conflictingRepos struct {
	repository.Repositories
	store *conflictingStore
}

func (r conflictingRepos) Slots() repository.SlotRepository {
	return conflictingSlots{SlotRepository: r.Repositories.Slots(), store: r.store}
}

type conflictingSlots struct {
	repository.SlotRepository
	store *conflictingStore
}

func (r conflictingSlots) InsertOrFetch(ctx context.Context, slot *model.Slot) (*model.Slot, bool, error) {
	if r.store.conflicts.Add(-1) >= 0 {
		return nil, false, fmt.Errorf("materialize slot: %w", repository.ErrConflict)
	}
	return r.SlotRepository.InsertOrFetch(ctx, slot)
}

func (f *fixture) schedulingOver(store repository.Store) *SchedulingService {
	return NewSchedulingService(store, f.ledger, lock.NewMemory(), clock.Fixed(monday.Add(8*time.Hour)),
		DefaultSchedulingConfig(), metrics.NewSchedulingMetrics(prometheus.NewRegistry()), zap.NewNop())
}

func TestBookSlot_RetriesMaterializationConflict(t *testing.T) {
	f := newFixture(t, 2, false)
	slots := f.slotsOn(monday)
	require.Len(t, slots, 3)

	store := &conflictingStore{Store: f.store}
	scheduling := f.schedulingOver(store)
	gymnast := f.addGymnast("A")

	store.conflicts.Store(maxMaterializeAttempts - 1)
	booking, err := scheduling.BookSlot(f.ctx, BookRequest{
		Slot: slots[0], GymnastID: gymnast.ID, Event: "beam", RequesterID: f.guardian.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, booking.Status)

	store.conflicts.Store(maxMaterializeAttempts)
	_, err = scheduling.BookSlot(f.ctx, BookRequest{
		Slot: slots[1], GymnastID: gymnast.ID, Event: "beam", RequesterID: f.guardian.ID,
	})
	assert.ErrorIs(t, err, ErrTemporary)
}

func TestCancelSlot_RetriesMaterializationConflict(t *testing.T) {
	f := newFixture(t, 2, false)
	slots := f.slotsOn(monday)
	require.Len(t, slots, 3)

	store := &conflictingStore{Store: f.store}
	scheduling := f.schedulingOver(store)

	store.conflicts.Store(maxMaterializeAttempts - 1)
	cancelled, err := scheduling.CancelSlot(f.ctx, slots[0], f.coach.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusCancelled, cancelled.Status())

	// конфликт на каждой попытке: временная ошибка, слот остаётся в расписании
	store.conflicts.Store(maxMaterializeAttempts)
	_, err = scheduling.CancelSlot(f.ctx, slots[1], f.coach.ID)
	assert.ErrorIs(t, err, ErrTemporary)
	assert.NotErrorIs(t, err, ErrMaterializationConflict)

	remaining := f.slotsOn(monday)
	require.Len(t, remaining, 2)
	assert.Equal(t, slots[1].Coordinate().StartTime, remaining[0].Coordinate().StartTime)
}
