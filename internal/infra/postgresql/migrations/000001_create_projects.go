package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/reelforge/reelforge/internal/repository"
	"gorm.io/gorm"
)

func createProjectsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_projects",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ProjectModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_projects_mode_created ON projects (mode, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_projects_campaign_item_id ON projects (campaign_item_id) WHERE campaign_item_id IS NOT NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ProjectModel{})
		},
	}
}
