package formatting

import (
	"testing"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestPluralize(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{1, "место"}, {2, "места"}, {4, "места"}, {5, "мест"},
		{11, "мест"}, {12, "мест"}, {21, "место"}, {22, "места"}, {0, "мест"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PluralizePlaces(tt.count), "count=%d", tt.count)
	}
	assert.Equal(t, "записи", PluralizeBookings(3))
	assert.Equal(t, "слотов", PluralizeSlots(15))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45 мин", FormatDuration(45))
	assert.Equal(t, "1 ч", FormatDuration(60))
	assert.Equal(t, "1 ч 30 мин", FormatDuration(90))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "2500 ₽", FormatPrice(250000))
	assert.Equal(t, "12.50 ₽", FormatPrice(1250))
}

func TestFormatDates(t *testing.T) {
	monday := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "03.03.2025", FormatDate(monday))
	assert.Equal(t, "Пн 03.03", FormatDayLabel(monday))
	assert.Equal(t, "Понедельник, 3 марта", FormatDateWithWeekday(monday))
}

func TestFormatBooking(t *testing.T) {
	monday := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	b := &model.Booking{
		ID:     9,
		Status: model.BookingStatusConfirmed,
		Notes:  "<b>колено</b>",
		Slot:   &model.Slot{Date: monday, StartTime: model.NewTimeOfDay(13, 0), EndTime: model.NewTimeOfDay(13, 45)},
	}

	upcoming := FormatBooking(b, monday, "🪵 Бревно")
	assert.Contains(t, upcoming, "Запись #9")
	assert.Contains(t, upcoming, "13:00-13:45")
	assert.Contains(t, upcoming, "✅ Подтверждена")
	assert.Contains(t, upcoming, "&lt;b&gt;колено&lt;/b&gt;")

	past := FormatBooking(b, monday.AddDate(0, 0, 1), "🪵 Бревно")
	assert.Contains(t, past, "✔️ Завершена")
}

func TestGetSlotStatusDisplay(t *testing.T) {
	assert.Equal(t, "🟡", GetSlotStatusDisplay(model.SlotStatusPartial).Emoji)
	assert.Equal(t, "❓", GetSlotStatusDisplay(model.SlotStatus("weird")).Emoji)
}
