package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/reelforge/reelforge/internal/repository"
	"gorm.io/gorm"
)

func createGenerationAttemptsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_generation_attempts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.GenerationAttemptModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_generation_attempts_item_id ON generation_attempts (item_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.GenerationAttemptModel{})
		},
	}
}
