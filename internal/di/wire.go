package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Database handle (lazy)
// 2. Repositories
// 3. Clients and services
// 4. Functions and scheduled jobs
//
// The scheduler is not started; the caller starts it once the server is up.
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := InitializeDatabase(cfg, log)

	if err := InitializeRepositories(container, log); err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := InitializeServices(ctx, container, cfg, log); err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := RegisterFunctions(container, cfg, log); err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("failed to register functions: %w", err)
	}

	if err := RegisterJobs(container, cfg, log); err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, nil
}
