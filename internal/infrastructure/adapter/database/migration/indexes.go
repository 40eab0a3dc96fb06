package migration

import (
	"context"

	"gorm.io/gorm"

	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

// IndexManager manages PostgreSQL-specific indexes the models cannot declare
type IndexManager struct {
	db     *gorm.DB
	logger coreport.Logger
}

// NewIndexManager creates a new index manager
func NewIndexManager(db *gorm.DB, logger coreport.Logger) *IndexManager {
	return &IndexManager{
		db:     db,
		logger: logger,
	}
}

var ledgerIndexes = []struct {
	name string
	sql  string
}{
	{
		// history of a sender, newest first
		name: "idx_transactions_sender_date",
		sql:  `CREATE INDEX IF NOT EXISTS idx_transactions_sender_date ON transactions (sender_id, date DESC) WHERE sender_id IS NOT NULL`,
	},
	{
		name: "idx_transactions_receiver_date",
		sql:  `CREATE INDEX IF NOT EXISTS idx_transactions_receiver_date ON transactions (receiver_id, date DESC) WHERE receiver_id IS NOT NULL`,
	},
	{
		name: "idx_transactions_airtime_date",
		sql:  `CREATE INDEX IF NOT EXISTS idx_transactions_airtime_date ON transactions (user_id, date DESC) WHERE user_id IS NOT NULL`,
	},
	{
		name: "idx_transactions_date_brin",
		sql:  `CREATE INDEX IF NOT EXISTS idx_transactions_date_brin ON transactions USING BRIN (date) WITH (pages_per_range = 32)`,
	},
}

// CreateIndexes creates the ledger history indexes
func (m *IndexManager) CreateIndexes(ctx context.Context) error {
	m.logger.Info("Creating ledger indexes", nil)

	for _, idx := range ledgerIndexes {
		if err := m.db.WithContext(ctx).Exec(idx.sql).Error; err != nil {
			m.logger.Error("Failed to create index", map[string]any{
				"index": idx.name,
				"error": err.Error(),
			})
			return err
		}
	}

	return nil
}

// ApplyPerformanceTweaks applies PostgreSQL storage settings; failures are not fatal
func (m *IndexManager) ApplyPerformanceTweaks(ctx context.Context) {
	// balances are updated in place
	if err := m.db.WithContext(ctx).Exec(`ALTER TABLE users SET (fillfactor = 90)`).Error; err != nil {
		m.logger.Warn("Failed to set fillfactor for users table", map[string]any{
			"error": err.Error(),
		})
	}

	// the ledger is append-only
	if err := m.db.WithContext(ctx).Exec(`ALTER TABLE transactions SET (fillfactor = 100)`).Error; err != nil {
		m.logger.Warn("Failed to set fillfactor for transactions table", map[string]any{
			"error": err.Error(),
		})
	}
}
