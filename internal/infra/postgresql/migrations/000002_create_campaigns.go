package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/reelforge/reelforge/internal/repository"
	"gorm.io/gorm"
)

func createCampaignsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_campaigns",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.CampaignModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.CampaignModel{})
		},
	}
}
