package formatting

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

// FormatSlotButton форматирует слот для кнопки: "🟡 13:00-13:30 · 2 места"
func FormatSlotButton(s model.BookableSlot) string {
	coord := s.Coordinate()
	display := GetSlotStatusDisplay(s.Status())
	free := s.Capacity()
	if persisted, ok := s.(*model.Slot); ok {
		free = persisted.Remaining()
	}
	return fmt.Sprintf("%s %s · %d %s",
		display.Emoji, FormatTimeRange(coord.StartTime, s.End()), free, PluralizePlaces(free))
}

// FormatBooking форматирует запись; eventTitle это название снаряда для показа
func FormatBooking(b *model.Booking, today time.Time, eventTitle string) string {
	status := GetBookingStatusDisplay(b.EffectiveStatus(today))

	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 <b>Запись #%d</b>\n", b.ID)
	if b.Slot != nil {
		fmt.Fprintf(&sb, "📅 %s\n🕐 %s\n",
			FormatDateWithWeekday(b.Slot.Date), FormatTimeRange(b.Slot.StartTime, b.Slot.EndTime))
	}
	fmt.Fprintf(&sb, "🤸 %s\n", html.EscapeString(eventTitle))
	fmt.Fprintf(&sb, "%s %s", status.Emoji, status.Text)
	if b.Notes != "" {
		fmt.Fprintf(&sb, "\n💬 %s", html.EscapeString(b.Notes))
	}
	return sb.String()
}

// FormatPackage форматирует формат занятия: "Индивидуальное · 45 мин · 2500 ₽"
func FormatPackage(p *model.LessonPackage) string {
	return fmt.Sprintf("%s · %s · %s", html.EscapeString(p.Name), FormatDuration(p.DurationMinutes), FormatPrice(p.Price))
}
