package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/reelforge/reelforge/internal/repository"
	"gorm.io/gorm"
)

func createCampaignItemsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_campaign_items",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.CampaignItemModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_campaign_items_campaign_index ON campaign_items (campaign_id, item_index)`,
				`CREATE INDEX IF NOT EXISTS idx_campaign_items_retry ON campaign_items (next_retry_at) WHERE status = 'PENDING' AND next_retry_at IS NOT NULL`,
				`CREATE INDEX IF NOT EXISTS idx_campaign_items_publish_due ON campaign_items (scheduled_date) WHERE status = 'COMPLETED' AND published_at IS NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.CampaignItemModel{})
		},
	}
}
