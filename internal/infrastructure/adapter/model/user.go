package model

import (
	"time"
)

// User represents the database model for wallet holders
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	FullName  string    `gorm:"not null;size:255"`
	Email     string    `gorm:"not null;size:255;uniqueIndex:idx_users_email"` // stored lower-case
	Phone     string    `gorm:"not null;size:11;index"`
	Network   string    `gorm:"size:16"`
	Password  string    `gorm:"not null;size:255"`
	PIN       string    `gorm:"column:pin;not null;size:255"`
	Balance   int64     `gorm:"not null;check:chk_users_balance_non_negative,balance >= 0"` // minor units
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Accounts []Account `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
