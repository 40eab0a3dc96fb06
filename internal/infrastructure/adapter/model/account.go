package model

// Account is a bank account attached to a user. Position keeps the signup
// order so the first account stays primary.
type Account struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	UserID        string `gorm:"not null;type:varchar(36);index"`
	BankCode      string `gorm:"not null;size:8;uniqueIndex:idx_accounts_bank_account,priority:1"`
	AccountNumber string `gorm:"not null;size:10;uniqueIndex:idx_accounts_bank_account,priority:2"`
	Position      int    `gorm:"not null;default:0"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}
