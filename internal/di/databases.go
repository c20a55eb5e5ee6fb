package di

import (
	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/config"
	"github.com/signalist/signalist/internal/database"
)

// InitializeDatabase creates the lazy handle for signalist.db. Nothing is opened until
// the first query; the schema is applied on connect.
func InitializeDatabase(cfg *config.Config, log zerolog.Logger) *Container {
	return &Container{
		DB: database.NewSQLiteConnector(database.Config{
			Path:    cfg.DatabasePath,
			Profile: database.ProfileStandard,
			Name:    "signalist",
		}, log),
	}
}
