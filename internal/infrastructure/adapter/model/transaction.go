package model

import (
	"time"
)

// Transaction represents the database model for ledger records.
// SenderID and ReceiverID are set for transfers and bills, UserID for airtime.
type Transaction struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	SenderID    *string   `gorm:"type:varchar(36);index"`
	ReceiverID  *string   `gorm:"type:varchar(36);index"`
	UserID      *string   `gorm:"type:varchar(36);index"`
	Amount      int64     `gorm:"not null;check:chk_transactions_amount_positive,amount > 0"`
	Type        string    `gorm:"not null;size:20"`
	Description string    `gorm:"type:text"`
	Status      string    `gorm:"not null;size:20"`
	Date        time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}
