package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&ShareLink{},
	); err != nil {
		return err
	}

	// Tenant listings are always newest-first.
	return db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_share_links_tenant_created " +
			"ON share_links (tenant_id, created_at DESC)",
	).Error
}
