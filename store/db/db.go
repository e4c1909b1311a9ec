// Package db provides the database driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/strangecodee/SHL-TASK/internal/profile"
	"github.com/strangecodee/SHL-TASK/store"
	"github.com/strangecodee/SHL-TASK/store/db/postgres"
	"github.com/strangecodee/SHL-TASK/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported database driver %q", profile.Driver)
	}
}
