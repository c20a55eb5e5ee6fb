// Package di provides dependency injection wiring and initialization.
//
// The Container holds every long-lived instance and is the single source of truth
// for the server and the command-line tools.
package di

import (
	"github.com/signalist/signalist/internal/clientdata"
	"github.com/signalist/signalist/internal/clients/finnhub"
	"github.com/signalist/signalist/internal/clients/mailer"
	"github.com/signalist/signalist/internal/database"
	"github.com/signalist/signalist/internal/domain"
	"github.com/signalist/signalist/internal/events"
	"github.com/signalist/signalist/internal/functions"
	"github.com/signalist/signalist/internal/modules/auth"
	"github.com/signalist/signalist/internal/modules/market"
	"github.com/signalist/signalist/internal/modules/notifications"
	"github.com/signalist/signalist/internal/modules/users"
	"github.com/signalist/signalist/internal/modules/watchlist"
	"github.com/signalist/signalist/internal/reliability"
	"github.com/signalist/signalist/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Database (opened lazily on first use)
	DB *database.Connector

	// Repositories
	UserRepo       *users.Repository
	SessionRepo    *auth.SessionRepository
	WatchlistRepo  *watchlist.Repository
	ClientDataRepo *clientdata.Repository
	RunStore       *functions.RunStore

	// Clients
	FinnhubClient *finnhub.Client
	// AI is nil when GEMINI_API_KEY is not set
	AI     domain.TextGenerator
	Mailer mailer.Sender

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	AuthService      *auth.Service
	CookieSigner     *auth.CookieSigner
	AuthMiddleware   *auth.Middleware
	WatchlistService *watchlist.Service
	MarketGateway    *market.Gateway
	Unsubscribe      *notifications.UnsubscribeSigner
	EmailRenderer    *notifications.Renderer
	WelcomeJob       *notifications.WelcomeJob
	DigestJob        *notifications.DigestJob

	// Background work
	Scheduler *scheduler.Scheduler
	Functions *functions.Runtime
	// FunctionSigner guards /api/functions
	FunctionSigner *functions.RequestSigner
	// Backup is nil unless BACKUP_BUCKET is set
	Backup *reliability.BackupService
}

// Close releases the database handle
func (c *Container) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
