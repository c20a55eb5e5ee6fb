package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/clientdata"
	"github.com/signalist/signalist/internal/config"
	"github.com/signalist/signalist/internal/events"
	"github.com/signalist/signalist/internal/functions"
	"github.com/signalist/signalist/internal/modules/watchlist"
	"github.com/signalist/signalist/internal/reliability"
)

// Schedules (seconds field first)
const (
	clientDataCleanupSchedule = "0 0 3 * * *"
	maintenanceSchedule       = "0 0 2 * * *"
	metricsRefreshSchedule    = "0 15 */6 * * *"
)

// RegisterFunctions registers the event and cron driven functions and starts the runtime
func RegisterFunctions(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.WelcomeJob == nil || container.DigestJob == nil {
		return fmt.Errorf("services must be initialized before functions")
	}

	registry := functions.NewRegistry()

	welcome := container.WelcomeJob
	registry.Register(&functions.Function{
		ID:     welcome.Name(),
		Events: []events.EventType{events.UserCreated},
		Run: func(ctx context.Context, event *events.Event) (string, error) {
			if err := welcome.Run(ctx, event); err != nil {
				return "", err
			}
			return "Welcome email sent", nil
		},
	})

	digest := container.DigestJob
	registry.Register(&functions.Function{
		ID:     digest.Name(),
		Events: []events.EventType{events.SendDailyNews},
		Cron:   cfg.DigestCron,
		Run: func(ctx context.Context, _ *events.Event) (string, error) {
			result, err := digest.Run(ctx)
			if err != nil {
				return "", err
			}
			return result.Message(), nil
		},
	})

	container.FunctionSigner = functions.NewRequestSigner(cfg.FunctionsSigningKey)
	if !container.FunctionSigner.Enabled() {
		log.Warn().Msg("FUNCTIONS_SIGNING_KEY not set, /api/functions rejects every request")
	}

	container.Functions = functions.NewRuntime(registry, container.RunStore, container.EventManager, container.Scheduler, log)
	if err := container.Functions.Start(); err != nil {
		return fmt.Errorf("failed to start function runtime: %w", err)
	}

	return nil
}

// RegisterJobs adds housekeeping jobs to the scheduler
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.Scheduler == nil {
		return fmt.Errorf("scheduler cannot be nil")
	}

	cleanup := clientdata.NewCleanupJob(container.ClientDataRepo, log)
	if err := container.Scheduler.AddJob(clientDataCleanupSchedule, cleanup); err != nil {
		return fmt.Errorf("failed to register %s: %w", cleanup.Name(), err)
	}

	metrics := watchlist.NewMetricsRefreshJob(container.WatchlistRepo, container.MarketGateway, log)
	if err := container.Scheduler.AddJob(metricsRefreshSchedule, metrics); err != nil {
		return fmt.Errorf("failed to register %s: %w", metrics.Name(), err)
	}

	maintenance := reliability.NewDailyMaintenanceJob(
		container.DB,
		container.SessionRepo,
		container.RunStore,
		cfg.DataDir,
		log,
	)
	if err := container.Scheduler.AddJob(maintenanceSchedule, maintenance); err != nil {
		return fmt.Errorf("failed to register %s: %w", maintenance.Name(), err)
	}

	if container.Backup != nil {
		backup := reliability.NewBackupJob(container.Backup)
		if err := container.Scheduler.AddJob(cfg.Backup.Schedule, backup); err != nil {
			return fmt.Errorf("failed to register %s: %w", backup.Name(), err)
		}
	}

	log.Info().Int("jobs", len(container.Scheduler.Entries())).Msg("Jobs registered")
	return nil
}
