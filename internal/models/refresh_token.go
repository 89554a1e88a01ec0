package models

import (
	"time"
)

// RefreshToken is one issued refresh token. Rotation revokes the presented
// token and issues a new row.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"user_id"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	IsRevoked bool      `gorm:"default:false" json:"is_revoked"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Usable reports whether the token can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}

// Revoke marks the token as spent and expires it at now.
func (t *RefreshToken) Revoke(now time.Time) {
	t.IsRevoked = true
	t.ExpiresAt = now
}
