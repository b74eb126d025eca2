package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User представляє обліковий запис користувача.
// Index — числовий первинний ключ, UUID — зовнішній ідентифікатор
// (саме він є ключем у реєстрі з'єднань).
type User struct {
	Index          int64  `gorm:"primaryKey;autoIncrement" json:"index"`
	UUID           string `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	LoginID        string `gorm:"size:100;uniqueIndex;not null" json:"login_id"`
	Email          string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Nickname       string `gorm:"size:100;not null" json:"nickname"`
	PasswordDigest string `gorm:"size:255;not null" json:"-"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BeforeCreate — хук GORM, генерує UUID, якщо він ще не встановлений.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.UUID == "" {
		u.UUID = uuid.New().String()
	}
	return
}
