package common

import (
	"testing"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotPick_EncodeParse(t *testing.T) {
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	pick := Day(7, date).WithStart(model.NewTimeOfDay(13, 0)).WithGymnast(42).WithEvent(3)

	data := pick.Encode(PickEvent)
	assert.Equal(t, "lbook:7:20250303:780:42:3", data)
	assert.LessOrEqual(t, len(data), maxCallbackData)

	parsed, err := ParseSlotPick(data, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), parsed.CoachID)
	assert.True(t, parsed.Date.Equal(date))
	assert.Equal(t, model.NewTimeOfDay(13, 0), parsed.Start)
	assert.Equal(t, int64(42), parsed.GymnastID)
	assert.Equal(t, 3, parsed.Event)
	assert.Equal(t, data, parsed.Encode(PickEvent))
}

func TestSlotPick_EncodeStopsAtDepth(t *testing.T) {
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "lday:7:20250303", Day(7, date).Encode(PickDay))
	assert.Equal(t, "lslot:7:20250303:540", Day(7, date).WithStart(model.NewTimeOfDay(9, 0)).Encode(PickSlot))

	day, err := ParseSlotPick("lday:7:20250303", 2)
	require.NoError(t, err)
	assert.Equal(t, "lslot:7:20250303:600", day.WithStart(model.NewTimeOfDay(10, 0)).Encode(PickSlot))
}

func TestParseSlotPick_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		depth int
	}{
		{name: "no prefix", data: "7:20250303", depth: 2},
		{name: "wrong depth", data: "lday:7:20250303:780", depth: 2},
		{name: "bad coach", data: "lday:x:20250303", depth: 2},
		{name: "bad date", data: "lday:7:2025-03-03", depth: 2},
		{name: "bad start", data: "lslot:7:20250303:9999", depth: 3},
		{name: "bad gymnast", data: "lgym:7:20250303:780:g", depth: 4},
		{name: "unknown event", data: "lbook:7:20250303:780:1:99", depth: 5},
		{name: "negative event", data: "lbook:7:20250303:780:1:-1", depth: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSlotPick(tt.data, tt.depth)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestParseIDFromCallback(t *testing.T) {
	id, err := ParseIDFromCallback(CancelBooking + "15")
	require.NoError(t, err)
	assert.Equal(t, int64(15), id)

	for _, data := range []string{"bcancel:1:2", "bcancel:abc", "bcancel:0"} {
		_, err = ParseIDFromCallback(data)
		assert.ErrorIs(t, err, ErrInvalidFormat, data)
	}
}

func TestApparatusTitle(t *testing.T) {
	assert.Equal(t, "🪵 Бревно", ApparatusTitle("beam"))
	assert.Equal(t, "rings", ApparatusTitle("rings"))
}
