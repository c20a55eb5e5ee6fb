package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/clientdata"
	"github.com/signalist/signalist/internal/functions"
	"github.com/signalist/signalist/internal/modules/auth"
	"github.com/signalist/signalist/internal/modules/users"
	"github.com/signalist/signalist/internal/modules/watchlist"
)

// InitializeRepositories creates all repositories over the shared handle
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container has no database")
	}

	container.UserRepo = users.NewRepository(container.DB, log)
	container.SessionRepo = auth.NewSessionRepository(container.DB, log)
	container.WatchlistRepo = watchlist.NewRepository(container.DB, log)
	container.ClientDataRepo = clientdata.NewRepository(container.DB)
	container.RunStore = functions.NewRunStore(container.DB, log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
