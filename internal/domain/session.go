package domain

import "time"

// Session is a server-side row for a granted gate session. Only the hash of
// the issued token is stored.
type Session struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	TokenHash string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	ClientKey string     `gorm:"size:128;index;not null" json:"client_key"`
	IP        string     `gorm:"size:64" json:"ip"`
	UserAgent string     `gorm:"size:512" json:"user_agent"`
	ExpiresAt time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
