package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

// ========================
// Callback Data Patterns
// ========================
// Всё состояние диалога записи лежит в callback data, поэтому state manager не нужен.
// Telegram ограничивает callback data 64 байтами.

const (
	BackToMain = "back_to_main"
	Lessons    = "lessons"
	Noop       = "noop"

	PickCoach   = "lcoach:" // lcoach:coach_id
	PickDay     = "lday:"   // lday:coach_id:20250303
	PickSlot    = "lslot:"  // lslot:coach_id:20250303:780
	PickGymnast = "lgym:"   // lgym:coach_id:20250303:780:gymnast_id
	PickEvent   = "lbook:"  // lbook:coach_id:20250303:780:gymnast_id:event_idx

	CancelBooking  = "bcancel:"     // bcancel:booking_id
	ConfirmCancel  = "bcancel_yes:" // bcancel_yes:booking_id
	ApproveBooking = "bapprove:"    // bapprove:booking_id
	RejectBooking  = "breject:"     // breject:booking_id
)

const maxCallbackData = 64

const compactDate = "20060102"

// SlotPick: выбор пользователя в диалоге записи, накопленный по шагам
type SlotPick struct {
	CoachID   int64
	Date      time.Time
	Start     model.TimeOfDay
	GymnastID int64
	Event     int
	depth     int
}

// Day создаёт выбор тренера и дня
func Day(coachID int64, date time.Time) SlotPick {
	return SlotPick{CoachID: coachID, Date: model.DateOf(date), depth: 2}
}

// WithStart добавляет время начала слота
func (p SlotPick) WithStart(start model.TimeOfDay) SlotPick {
	p.Start = start
	p.depth = 3
	return p
}

// WithGymnast добавляет гимнаста
func (p SlotPick) WithGymnast(gymnastID int64) SlotPick {
	p.GymnastID = gymnastID
	p.depth = 4
	return p
}

// WithEvent добавляет индекс снаряда из Apparatuses
func (p SlotPick) WithEvent(idx int) SlotPick {
	p.Event = idx
	p.depth = 5
	return p
}

// Encode собирает callback data с префиксом
func (p SlotPick) Encode(prefix string) string {
	parts := []string{
		strconv.FormatInt(p.CoachID, 10),
		p.Date.Format(compactDate),
		strconv.Itoa(int(p.Start)),
		strconv.FormatInt(p.GymnastID, 10),
		strconv.Itoa(p.Event),
	}
	return prefix + strings.Join(parts[:p.depth], ":")
}

// ParseSlotPick разбирает callback data, в которой ожидается ровно depth полей
func ParseSlotPick(data string, depth int) (SlotPick, error) {
	idx := strings.Index(data, ":")
	if idx < 0 || len(data) > maxCallbackData {
		return SlotPick{}, ErrInvalidFormat
	}
	parts := strings.Split(data[idx+1:], ":")
	if len(parts) != depth || depth < 2 || depth > 5 {
		return SlotPick{}, ErrInvalidFormat
	}

	var (
		p   = SlotPick{depth: depth}
		err error
	)
	if p.CoachID, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
		return SlotPick{}, fmt.Errorf("%w: coach: %v", ErrInvalidFormat, err)
	}
	if p.Date, err = time.Parse(compactDate, parts[1]); err != nil {
		return SlotPick{}, fmt.Errorf("%w: date: %v", ErrInvalidFormat, err)
	}
	if depth >= 3 {
		minutes, err := strconv.Atoi(parts[2])
		if err != nil || !model.TimeOfDay(minutes).Valid() {
			return SlotPick{}, fmt.Errorf("%w: start %q", ErrInvalidFormat, parts[2])
		}
		p.Start = model.TimeOfDay(minutes)
	}
	if depth >= 4 {
		if p.GymnastID, err = strconv.ParseInt(parts[3], 10, 64); err != nil {
			return SlotPick{}, fmt.Errorf("%w: gymnast: %v", ErrInvalidFormat, err)
		}
	}
	if depth == 5 {
		p.Event, err = strconv.Atoi(parts[4])
		if err != nil || p.Event < 0 || p.Event >= len(Apparatuses) {
			return SlotPick{}, fmt.Errorf("%w: event %q", ErrInvalidFormat, parts[4])
		}
	}
	return p, nil
}
