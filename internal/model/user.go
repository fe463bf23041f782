package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	IsCoach    bool      `json:"is_coach"`
	CreatedAt  time.Time `json:"created_at"`
}

// Gymnast: проекция ростера, только для выбора при записи
type Gymnast struct {
	ID             int64  `json:"id"`
	HubID          int64  `json:"hub_id"`
	GuardianUserID int64  `json:"guardian_user_id"`
	FullName       string `json:"full_name"`
}

// DirectChannel: личный канал между двумя пользователями
type DirectChannel struct {
	ID         uuid.UUID `json:"id"`
	UserLowID  int64     `json:"user_low_id"`
	UserHighID int64     `json:"user_high_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewDirectChannel нормализует пару участников (меньший ID первым)
func NewDirectChannel(userA, userB int64) *DirectChannel {
	if userA > userB {
		userA, userB = userB, userA
	}
	return &DirectChannel{
		ID:         uuid.New(),
		UserLowID:  userA,
		UserHighID: userB,
	}
}
