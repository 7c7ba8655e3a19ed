package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/studyolle/studyolle/internal/config"
	"github.com/studyolle/studyolle/internal/db"
	"github.com/studyolle/studyolle/internal/repository"
	"github.com/studyolle/studyolle/internal/service"
	"github.com/studyolle/studyolle/internal/storage"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	AccountService    *service.AccountService
	AvatarService     *service.AvatarService
	SessionService    *service.SessionService
	RememberMeService *service.RememberMeService
	EmailService      *service.EmailService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	accountRepository := repository.NewAccountRepository(database)
	persistentLoginRepository := repository.NewPersistentLoginRepository(database)

	// Storage
	imageStorage, err := storage.New(cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Services
	emailService := service.NewEmailService(cfg.ResendAPIKey, cfg.EmailFrom, cfg.IsDevelopment())
	sessionService := service.NewSessionService(cfg.JWTSecret, cfg.IsProduction())
	rememberMeService := service.NewRememberMeService(persistentLoginRepository, cfg.RememberMeValidity, cfg.IsProduction())
	avatarService := service.NewAvatarService(imageStorage)
	accountService := service.NewAccountService(
		accountRepository,
		service.NewBcryptEncoder(cfg.BcryptCost),
		emailService,
		sessionService,
		cfg.SessionExpiry,
		cfg.ConfirmEmailResendInterval,
	)

	return &App{
		Cfg:               cfg,
		DB:                database,
		AccountService:    accountService,
		AvatarService:     avatarService,
		SessionService:    sessionService,
		RememberMeService: rememberMeService,
		EmailService:      emailService,
	}, nil
}

func (a *App) Close() error {
	return db.Close(a.DB)
}
