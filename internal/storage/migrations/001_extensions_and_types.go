package migrations

import "gorm.io/gorm"

// migration001Up enables pgcrypto, used by the ballot guard to fill missing receipts
func migration001Up(db *gorm.DB) error {
	if !isPostgres(db) {
		return nil
	}
	return db.Exec("CREATE EXTENSION IF NOT EXISTS pgcrypto").Error
}

// migration001Down keeps the extension; other schemas may depend on it
func migration001Down(db *gorm.DB) error {
	return nil
}
