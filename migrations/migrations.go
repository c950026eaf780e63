package migrations

import (
	"github.com/flow-hydraulics/settings-client/migrations/internal/m20261019"
	"github.com/go-gormigrate/gormigrate/v2"
)

func List() []*gormigrate.Migration {
	ms := []*gormigrate.Migration{
		{
			ID:       m20261019.ID,
			Migrate:  m20261019.Migrate,
			Rollback: m20261019.Rollback,
		},
	}
	return ms
}
