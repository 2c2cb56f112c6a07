package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anandkp/shelfwise-backend/pkg/types"
)

// BuyerProfile stores the buyer's contact and default shipping address.
// It is upserted inside the reservation transaction at submit.
type BuyerProfile struct {
	UserID          uuid.UUID     `gorm:"column:user_id;type:uuid;primaryKey"`
	FullName        string        `gorm:"column:full_name"`
	Phone           string        `gorm:"column:phone;not null"`
	Email           string        `gorm:"column:email"`
	DefaultAddress  types.Address `gorm:"column:default_address;type:jsonb"`
	PhoneVerifiedAt *time.Time    `gorm:"column:phone_verified_at"`
	CreatedAt       time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
