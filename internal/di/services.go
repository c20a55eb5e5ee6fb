package di

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/clients/finnhub"
	"github.com/signalist/signalist/internal/clients/gemini"
	"github.com/signalist/signalist/internal/clients/mailer"
	"github.com/signalist/signalist/internal/config"
	"github.com/signalist/signalist/internal/events"
	"github.com/signalist/signalist/internal/modules/auth"
	"github.com/signalist/signalist/internal/modules/market"
	"github.com/signalist/signalist/internal/modules/notifications"
	"github.com/signalist/signalist/internal/modules/watchlist"
	"github.com/signalist/signalist/internal/reliability"
	"github.com/signalist/signalist/internal/scheduler"
)

// InitializeServices creates clients and services. Repositories must exist already.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container.UserRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	// Events
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	// Clients
	container.FinnhubClient = finnhub.NewClient(cfg.FinnhubBaseURL, cfg.FinnhubAPIKey, container.ClientDataRepo, log)

	if cfg.GeminiAPIKey != "" {
		ai, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}, log)
		if err != nil {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}
		container.AI = ai
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, emails use default copy")
	}

	if cfg.MailEnabled() {
		container.Mailer = mailer.NewSMTPSender(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.FromEmail,
		}, log)
	} else {
		log.Warn().Msg("SMTP credentials not set, emails are logged only")
		container.Mailer = mailer.NewLogSender(log)
	}

	// Auth
	container.CookieSigner = auth.NewCookieSigner(cfg.SessionSecret, strings.HasPrefix(cfg.BaseURL, "https://"))
	container.AuthService = auth.NewService(container.UserRepo, container.SessionRepo, container.EventManager, log)
	container.AuthMiddleware = auth.NewMiddleware(container.CookieSigner, container.AuthService, log)

	// Watchlist and market
	container.WatchlistService = watchlist.NewService(container.WatchlistRepo, container.UserRepo, log)
	container.MarketGateway = market.NewGateway(container.FinnhubClient, log)

	// Notifications
	renderer, err := notifications.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to parse email templates: %w", err)
	}
	container.EmailRenderer = renderer
	container.Unsubscribe = notifications.NewUnsubscribeSigner(cfg.EmailUnsubSecret, cfg.BaseURL)

	container.WelcomeJob = notifications.NewWelcomeJob(
		container.AI,
		container.Mailer,
		container.Unsubscribe,
		renderer,
		cfg.BaseURL,
		log,
	)
	container.DigestJob = notifications.NewDigestJob(notifications.DigestDeps{
		Users:     container.UserRepo,
		Watchlist: container.WatchlistService,
		News:      container.MarketGateway,
		AI:        container.AI,
		Sender:    container.Mailer,
		Signer:    container.Unsubscribe,
		Renderer:  renderer,
		BaseURL:   cfg.BaseURL,
	}, log)

	// Background work
	container.Scheduler = scheduler.New(log)

	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Client(ctx, reliability.S3Config{
			Bucket:          cfg.Backup.Bucket,
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}
		container.Backup = reliability.NewBackupService(store, container.DB, cfg.DataDir, cfg.Backup.Keep, log)
	}

	log.Debug().Msg("Services initialized")
	return nil
}
