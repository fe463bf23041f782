package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func testBooking() *model.Booking {
	return &model.Booking{
		ID:        100,
		SlotID:    42,
		CoachID:   1,
		GymnastID: 5,
		Status:    model.BookingStatusPending,
		Slot: &model.Slot{
			ID:        42,
			Date:      time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
			StartTime: model.NewTimeOfDay(13, 0),
		},
	}
}

func TestNatsPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	publisher := NewPublisherWithConn(conn, zap.NewNop())

	event := NewBookingEvent(BookingCreated, testBooking(), time.Now())
	require.NoError(t, publisher.Publish(context.Background(), event))

	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "lessons.booking.created", conn.subjects[0])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	assert.Equal(t, "booking.created", decoded["event_type"])
	assert.Equal(t, "2025-03-03", decoded["date"])
	assert.Equal(t, "13:00", decoded["start_time"])
	assert.EqualValues(t, 100, decoded["booking_id"])
}

func TestNatsPublisher_PublishError(t *testing.T) {
	boom := errors.New("nats: connection closed")
	publisher := NewPublisherWithConn(&fakeConn{err: boom}, zap.NewNop())

	err := publisher.Publish(context.Background(), NewBookingEvent(BookingCancelled, testBooking(), time.Now()))
	assert.ErrorIs(t, err, boom)
}

func TestRecorder(t *testing.T) {
	var rec Recorder
	require.NoError(t, rec.Publish(context.Background(), NewBookingEvent(BookingConfirmed, testBooking(), time.Now())))

	got := rec.Events()
	require.Len(t, got, 1)
	assert.Equal(t, BookingConfirmed, got[0].Type)
	assert.NotEqual(t, got[0].ID.String(), "00000000-0000-0000-0000-000000000000")
}
