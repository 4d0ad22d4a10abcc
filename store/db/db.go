package db

import (
	"github.com/pkg/errors"

	"github.com/eduloop/eduloop/internal/profile"
	"github.com/eduloop/eduloop/store"
	"github.com/eduloop/eduloop/store/db/postgres"
	"github.com/eduloop/eduloop/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// SQLite is the default driver and covers everything except vector search
// over chunk embeddings. PostgreSQL (with pgvector) is the full-featured
// production driver.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
