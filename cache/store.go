// Package cache keeps a serialized copy of the last fetched server settings.
package cache

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

// SettingsKey is the well-known key the bootstrap snapshot is stored under.
const SettingsKey = "serverSettings"

var ErrNotFound = errors.New("snapshot not found")

type StoreType int

const (
	StoreTypeLocal StoreType = iota
	StoreTypeShared
	StoreTypeRedis
)

func (st StoreType) String() string {
	return [...]string{"local", "shared", "redis"}[st]
}

// Store persists whole snapshots. A Put always replaces any previous value.
type Store interface {
	Get(key string) (*Snapshot, error) // Returns ErrNotFound if the key has no snapshot
	Put(key string, data datatypes.JSON) error
	Delete(key string) error
}

// Snapshot database model
type Snapshot struct {
	Key       string         `json:"key" gorm:"column:key;primaryKey;size:191"`
	Data      datatypes.JSON `json:"data" gorm:"column:data;type:text"` // text, JSON columns would reformat the document
	CreatedAt time.Time      `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"column:updated_at"`
}

func (Snapshot) TableName() string {
	return "settings_snapshots"
}
