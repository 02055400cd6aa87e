package app

import (
	"context"
	"database/sql"
	"fmt"

	"tenantry-backend/internal/config"
	"tenantry-backend/internal/dispatch"
	"tenantry-backend/internal/logger"
	"tenantry-backend/internal/repository"
	"tenantry-backend/internal/repository/memory"
	"tenantry-backend/internal/repository/postgres"
	"tenantry-backend/internal/service"
	"tenantry-backend/internal/verifier"
)

// Repos is the set of repositories the credit check service runs on.
type Repos struct {
	Users        repository.UserRepository
	Applications repository.ApplicationRepository
	CreditChecks repository.CreditCheckRepository
}

// App holds the wired credit check stack shared by the server and cronjob binaries.
type App struct {
	Cfg         *config.Config
	DB          *sql.DB // nil on the memory driver
	Repos       Repos
	Verifier    verifier.Verifier
	Dispatcher  *dispatch.Dispatcher
	CreditCheck service.CreditCheckService
	cancel      context.CancelFunc
}

// New opens the configured store and wires the verifier, dispatcher and service.
// The dispatcher is not started; call Start for processes that accept requests.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Cfg: cfg}

	if err := a.wireRepos(ctx); err != nil {
		return nil, err
	}

	a.Verifier = wireVerifier(cfg)
	timeout := cfg.Verifier.Timeout()
	if a.Verifier.Name() == "simulated" {
		timeout += cfg.Simulation.Delay()
	}
	a.Dispatcher = dispatch.New(a.Verifier, cfg.CreditCheck.Workers, cfg.CreditCheck.QueueSize, timeout)

	a.CreditCheck = service.NewCreditCheckService(
		a.Repos.CreditChecks,
		a.Repos.Users,
		a.Repos.Applications,
		a.Dispatcher,
		wireEmail(cfg),
		service.CreditCheckOptions{
			SingleFlight:   cfg.CreditCheck.SingleFlight,
			PendingTimeout: cfg.CreditCheck.PendingTimeout(),
		},
	)
	return a, nil
}

func (a *App) wireRepos(ctx context.Context) error {
	if a.Cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		store := memory.NewStore()
		a.Repos = Repos{Users: store, Applications: store.Applications, CreditChecks: store.CreditChecks}
		return nil
	}

	logger.Info("Connecting to database...", "host", a.Cfg.Database.Host, "port", a.Cfg.Database.Port, "database", a.Cfg.Database.Database)
	db, err := postgres.Open(ctx, a.Cfg.GetDatabaseConnectionString(), a.Cfg.Database.MaxOpenConns)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	logger.Info("Database connection established")

	if a.Cfg.Database.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return err
		}
		logger.Info("Database migrations applied")
	}

	store := postgres.NewStore(db)
	a.DB = db
	a.Repos = Repos{
		Users:        store.UserRepository,
		Applications: store.ApplicationRepository,
		CreditChecks: store.CreditCheckRepository,
	}
	return nil
}

func wireVerifier(cfg *config.Config) verifier.Verifier {
	if cfg.Verifier.HasLiveVerifier() {
		logger.Info("Using live credit bureau", "base_url", cfg.Verifier.BaseURL)
		return verifier.NewLive(verifier.LiveConfig{
			BaseURL:      cfg.Verifier.BaseURL,
			TokenURL:     cfg.Verifier.TokenURL,
			APIKey:       cfg.Verifier.APIKey,
			ClientID:     cfg.Verifier.ClientID,
			ClientSecret: cfg.Verifier.ClientSecret,
			Scopes:       cfg.Verifier.Scopes,
			Timeout:      cfg.Verifier.Timeout(),
		})
	}
	logger.Warn("Credit bureau credentials not configured; using simulated verifier",
		"seed", cfg.Simulation.Seed, "delay", cfg.Simulation.Delay())
	return verifier.NewSimulated(cfg.Simulation.Seed, cfg.Simulation.Delay())
}

func wireEmail(cfg *config.Config) service.EmailService {
	if cfg.Email.SendGridAPIKey == "" {
		logger.Info("SendGrid not configured; notifications are logged only")
		return service.NewLogEmailService()
	}
	return service.NewSendGridEmailService(cfg.Email.SendGridAPIKey, cfg.Email.SendGridHost, cfg.Email.FromEmail, cfg.Email.FromName)
}

// Start launches the verification workers.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.Dispatcher.Start(ctx, a.CreditCheck)
	logger.Info("Verification dispatcher started",
		"verifier", a.Verifier.Name(), "workers", a.Cfg.CreditCheck.Workers, "queue_size", a.Cfg.CreditCheck.QueueSize)
}

// Close stops the workers and closes the database.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.Dispatcher.Stop()
		a.cancel = nil
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}
}
