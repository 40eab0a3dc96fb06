package migration

import (
	"context"

	"gorm.io/gorm"

	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

// CaseInsensitiveEmails lower-cases stored emails and enforces uniqueness on
// LOWER(email), so signup rejects "A@x.io" when "a@x.io" exists
type CaseInsensitiveEmails struct {
	db     *gorm.DB
	logger coreport.Logger
}

// NewCaseInsensitiveEmails creates a new migration instance
func NewCaseInsensitiveEmails(db *gorm.DB, logger coreport.Logger) *CaseInsensitiveEmails {
	return &CaseInsensitiveEmails{
		db:     db,
		logger: logger,
	}
}

// Run executes the migration
func (m *CaseInsensitiveEmails) Run(ctx context.Context) error {
	m.logger.Info("Enforcing case-insensitive email uniqueness", nil)

	db := m.db.WithContext(ctx)

	var duplicates int64
	if err := db.Raw(`
		SELECT COUNT(*) FROM (
			SELECT LOWER(email) FROM users GROUP BY LOWER(email) HAVING COUNT(*) > 1
		) d
	`).Scan(&duplicates).Error; err != nil {
		m.logger.Error("Failed to check duplicate emails", map[string]any{"error": err.Error()})
		return err
	}
	if duplicates > 0 {
		// leave the data alone; the index below would fail anyway
		m.logger.Warn("Users share an email that differs only by case, skipping", map[string]any{
			"duplicates": duplicates,
		})
		return nil
	}

	if err := db.Exec(`UPDATE users SET email = LOWER(email) WHERE email <> LOWER(email)`).Error; err != nil {
		m.logger.Error("Failed to lower-case emails", map[string]any{"error": err.Error()})
		return err
	}

	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))`).Error; err != nil {
		m.logger.Error("Failed to create idx_users_email_lower", map[string]any{"error": err.Error()})
		return err
	}

	return nil
}
