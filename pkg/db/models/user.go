package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the stable identity record both authentication variants resolve
// to. OTP-verified users carry no password hash.
type User struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Phone        string    `gorm:"column:phone;uniqueIndex;not null"`
	Email        *string   `gorm:"column:email;uniqueIndex"`
	PasswordHash *string   `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
