package domain

import "time"

// PinAttempt is an audit row recorded for every validation call, successful
// or not. AttemptsLeft captures the remaining budget reported to the caller.
type PinAttempt struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	ClientKey    string    `gorm:"size:128;index;not null" json:"client_key"`
	IP           string    `gorm:"size:64" json:"ip"`
	Success      bool      `gorm:"index" json:"success"`
	AttemptsLeft int       `json:"attempts_left"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
