package auth

import (
	"time"

	"github.com/google/uuid"
)

// MagicLink is a pending passwordless sign-in. Only a bcrypt hash of the
// secret half of the emailed token is stored.
type MagicLink struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email      string     `gorm:"index;not null;column:email" json:"email"`
	SecretHash string     `gorm:"not null;column:secret_hash" json:"-"`
	RedirectTo string     `gorm:"column:redirect_to" json:"redirect_to"`
	ExpiresAt  time.Time  `gorm:"not null;column:expires_at" json:"expires_at"`
	ConsumedAt *time.Time `gorm:"column:consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
}

func (MagicLink) TableName() string { return "magic_link" }

func (m *MagicLink) Usable(now time.Time) bool {
	return m.ConsumedAt == nil && now.Before(m.ExpiresAt)
}
