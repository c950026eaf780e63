package m20261019

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

//
// First migration, creates the settings snapshot cache table. The type is
// snapshot here so later migrations can roll back to this exact schema.
//

const ID = "20261019"

type Snapshot struct {
	Key       string         `gorm:"column:key;primaryKey;size:191"`
	Data      datatypes.JSON `gorm:"column:data;type:text"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (Snapshot) TableName() string {
	return "settings_snapshots"
}

func Migrate(tx *gorm.DB) error {
	return tx.AutoMigrate(&Snapshot{})
}

func Rollback(tx *gorm.DB) error {
	return tx.Migrator().DropTable(&Snapshot{})
}
