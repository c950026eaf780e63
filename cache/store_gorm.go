package cache

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm (SQL) store for snapshots
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// keyEq matches the key column exactly, empty keys included. The column name
// is quoted since KEY is reserved in MySQL.
func keyEq(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

func (s *GormStore) Get(key string) (*Snapshot, error) {
	snapshot := &Snapshot{}
	err := s.db.Where(keyEq(key)).First(snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error while reading snapshot %q: %w", key, err)
	}
	return snapshot, nil
}

func (s *GormStore) Put(key string, data datatypes.JSON) error {
	now := time.Now()
	// replace data if the key exists or create a new row
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&Snapshot{Key: key, Data: data, CreatedAt: now, UpdatedAt: now}).Error

	if err != nil {
		return fmt.Errorf("error while saving snapshot %q: %w", key, err)
	}

	return nil
}

func (s *GormStore) Delete(key string) error {
	if err := s.db.Where(keyEq(key)).Delete(&Snapshot{}).Error; err != nil {
		return fmt.Errorf("error while deleting snapshot %q: %w", key, err)
	}
	return nil
}
