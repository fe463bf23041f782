package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/go-telegram/bot/models"
)

// BuildMainMenuScreen формирует главное меню
func BuildMainMenuScreen(user *model.User) (string, *models.InlineKeyboardMarkup) {
	text := "📋 Главное меню\n\n" +
		"Доступные команды:\n" +
		"/lessons - Записаться на частное занятие\n" +
		"/mybookings - Мои записи\n" +
		"/help - Справка\n"

	if user != nil && user.IsCoach {
		text += "\nКоманды тренера:\n" +
			"/pending - Записи, ожидающие подтверждения"
	}

	kb := keyboard.NewBuilder().
		Row(keyboard.Button("🤸 Записаться", Lessons)).
		Build()
	return text, kb
}

// BuildCoachesScreen формирует список тренеров для записи
func BuildCoachesScreen(coaches []*model.CoachProfile) (string, *models.InlineKeyboardMarkup) {
	if len(coaches) == 0 {
		return "😔 В вашем зале пока нет тренеров, к которым можно записаться.",
			keyboard.NewBuilder().AddBackToMainButton().Build()
	}

	kb := keyboard.NewBuilder()
	for _, c := range coaches {
		name := c.DisplayName
		if name == "" {
			name = fmt.Sprintf("Тренер #%d", c.CoachID)
		}
		kb.Row(keyboard.Button("👤 "+name, PickCoach+strconv.FormatInt(c.CoachID, 10)))
	}
	kb.AddBackToMainButton()

	return "🤸 <b>Частные занятия</b>\n\nВыберите тренера:", kb.Build()
}

// BuildCoachDaysScreen формирует список дней, в которых у тренера есть свободное время
func BuildCoachDaysScreen(coachID int64, slots []model.BookableSlot, packages []*model.LessonPackage) (string, *models.InlineKeyboardMarkup) {
	var (
		days    []time.Time
		perDay  = make(map[time.Time]int)
		builder = keyboard.NewBuilder()
	)
	for _, s := range slots {
		if !isOpen(s) {
			continue
		}
		d := s.Coordinate().Date
		if perDay[d] == 0 {
			days = append(days, d)
		}
		perDay[d]++
	}

	var sb strings.Builder
	sb.WriteString("📅 <b>Выберите день</b>\n")
	if len(packages) > 0 {
		sb.WriteString("\nФорматы занятий:\n")
		for _, p := range packages {
			sb.WriteString("• " + formatting.FormatPackage(p) + "\n")
		}
	}
	if len(days) == 0 {
		sb.WriteString("\n😔 Свободного времени в ближайшие дни нет.")
	}

	buttons := make([]models.InlineKeyboardButton, 0, len(days))
	for _, d := range days {
		label := fmt.Sprintf("%s (%d)", formatting.FormatDayLabel(d), perDay[d])
		buttons = append(buttons, keyboard.Button(label, Day(coachID, d).Encode(PickDay)))
	}
	builder.Grid(2, buttons...).AddBackButton(Lessons)

	return sb.String(), builder.Build()
}

// BuildDaySlotsScreen формирует список слотов дня
func BuildDaySlotsScreen(pick SlotPick, slots []model.BookableSlot) (string, *models.InlineKeyboardMarkup) {
	builder := keyboard.NewBuilder()
	buttons := make([]models.InlineKeyboardButton, 0, len(slots))
	for _, s := range slots {
		if !isOpen(s) {
			continue
		}
		next := pick.WithStart(s.Coordinate().StartTime)
		buttons = append(buttons, keyboard.Button(formatting.FormatSlotButton(s), next.Encode(PickSlot)))
	}
	builder.Grid(1, buttons...).AddBackButton(PickCoach + strconv.FormatInt(pick.CoachID, 10))

	text := fmt.Sprintf("🕐 <b>%s</b>\n\nВыберите время:", formatting.FormatDateWithWeekday(pick.Date))
	if len(buttons) == 0 {
		text = fmt.Sprintf("😔 На %s свободного времени не осталось.", formatting.FormatDate(pick.Date))
	}
	return text, builder.Build()
}

// BuildGymnastsScreen формирует выбор гимнаста для записи
func BuildGymnastsScreen(pick SlotPick, gymnasts []*model.Gymnast) (string, *models.InlineKeyboardMarkup) {
	builder := keyboard.NewBuilder()
	for _, g := range gymnasts {
		builder.Row(keyboard.Button("👧 "+g.FullName, pick.WithGymnast(g.ID).Encode(PickGymnast)))
	}
	builder.AddBackButton(Day(pick.CoachID, pick.Date).Encode(PickDay))

	return fmt.Sprintf("🕐 %s, %s\n\nКого записываем?",
		formatting.FormatDate(pick.Date), pick.Start), builder.Build()
}

// BuildEventsScreen формирует выбор снаряда
func BuildEventsScreen(pick SlotPick) (string, *models.InlineKeyboardMarkup) {
	buttons := make([]models.InlineKeyboardButton, 0, len(Apparatuses))
	for i, a := range Apparatuses {
		buttons = append(buttons, keyboard.Button(a.Title, pick.WithEvent(i).Encode(PickEvent)))
	}
	back := SlotPick{CoachID: pick.CoachID, Date: pick.Date}.WithStart(pick.Start)

	return "🤸 Выберите снаряд для занятия:",
		keyboard.NewBuilder().Grid(2, buttons...).AddBackButton(back.Encode(PickSlot)).Build()
}

// BuildBookingSuccessScreen формирует экран успешной записи
func BuildBookingSuccessScreen(b *model.Booking, today time.Time) (string, *models.InlineKeyboardMarkup) {
	additionalInfo := "Тренер получил уведомление о записи."
	if b.Status == model.BookingStatusPending {
		additionalInfo = "Тренер подтвердит запись, статус можно посмотреть в /mybookings."
	}

	text := "✅ Запись создана!\n\n" +
		formatting.FormatBooking(b, today, ApparatusTitle(b.Event)) + "\n\n" +
		additionalInfo

	kb := keyboard.NewBuilder().
		Row(keyboard.Button("➕ Записаться ещё", Lessons)).
		AddBackToMainButton().
		Build()
	return text, kb
}

// BuildEmptyBookingsScreen формирует экран для пустого списка записей
func BuildEmptyBookingsScreen() (string, *models.InlineKeyboardMarkup) {
	text := "📅 У вас пока нет записей на занятия."

	kb := keyboard.NewBuilder().
		Row(keyboard.Button("🤸 Записаться", Lessons)).
		Build()
	return text, kb
}

// BuildCancelConfirmScreen спрашивает подтверждение отмены записи
func BuildCancelConfirmScreen(b *model.Booking, today time.Time) (string, *models.InlineKeyboardMarkup) {
	text := "❓ Отменить запись?\n\n" + formatting.FormatBooking(b, today, ApparatusTitle(b.Event))
	id := strconv.FormatInt(b.ID, 10)
	kb := keyboard.NewBuilder().
		AddRow(keyboard.YesNoButtons(ConfirmCancel+id, Noop)).
		Build()
	return text, kb
}

// BookingActions возвращает кнопки для записи в списке; nil если действий нет
func BookingActions(b *model.Booking, today time.Time, asCoach bool) *models.InlineKeyboardMarkup {
	status := b.EffectiveStatus(today)
	if !status.IsActive() {
		return nil
	}
	id := strconv.FormatInt(b.ID, 10)
	builder := keyboard.NewBuilder()
	if asCoach && status == model.BookingStatusPending {
		builder.Row(
			keyboard.ConfirmButton(ApproveBooking+id),
			keyboard.Button("🚫 Отклонить", RejectBooking+id),
		)
	} else {
		builder.Row(keyboard.Button(fmt.Sprintf("❌ Отменить запись #%d", b.ID), CancelBooking+id))
	}
	return builder.Build()
}

// isOpen: в слот ещё можно записаться
func isOpen(s model.BookableSlot) bool {
	status := s.Status()
	return status == model.SlotStatusAvailable || status == model.SlotStatusPartial
}
