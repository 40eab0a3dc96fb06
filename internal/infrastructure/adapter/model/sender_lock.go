package model

import (
	"time"
)

// SenderLock marks a user whose payment is being processed
type SenderLock struct {
	UserID    string    `gorm:"primaryKey;type:varchar(36)"`
	LockedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for SenderLock
func (SenderLock) TableName() string {
	return "sender_locks"
}
