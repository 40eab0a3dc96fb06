package model

// Bank is seeded reference data
type Bank struct {
	Code string `gorm:"primaryKey;size:8"`
	Name string `gorm:"not null;size:100"`
}

// TableName specifies the table name for Bank
func (Bank) TableName() string {
	return "banks"
}
