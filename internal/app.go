// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	router "zpexk-rewards/internal/api"
	"zpexk-rewards/internal/api/handler"
	"zpexk-rewards/internal/config"
	"zpexk-rewards/internal/repository"
	"zpexk-rewards/internal/repository/postgres"
	"zpexk-rewards/internal/service"
	"zpexk-rewards/internal/util"
	"zpexk-rewards/pkg/db"
	"zpexk-rewards/pkg/lock"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	// Repositories
	AccountRepository repository.AccountRepository
	LedgerRepository  repository.LedgerRepository
	MarketRepository  repository.MarketRepository

	// Services
	AccountService  service.AccountService
	SecurityService service.SecurityService
	MarketService   service.MarketService
	TransferService service.TransferService
	RewardService   service.RewardService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Initialize Logger
	util.InitLogger()
	app.Logger = util.GetLogger()

	// 2. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	// 4. Optional Redis-backed trade lock
	var locker lock.Locker = lock.NopLocker{}
	if app.Config.RedisAddr != "" {
		app.Redis = redis.NewClient(&redis.Options{
			Addr:     app.Config.RedisAddr,
			Password: app.Config.RedisPassword,
			DB:       app.Config.RedisDB,
		})
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		locker = lock.NewRedisLocker(app.Redis)
		app.Logger.Info("Redis trade lock enabled.", "addr", app.Config.RedisAddr)
	}

	// 5. Load Task and Promo Catalogs
	catalog, err := config.LoadTaskCatalog(app.Config.TasksFile)
	if err != nil {
		return fmt.Errorf("failed to load task catalog: %w", err)
	}
	promos, err := config.LoadPromoCatalog(app.Config.PromosFile)
	if err != nil {
		return fmt.Errorf("failed to load promo catalog: %w", err)
	}
	app.Logger.Info("Task and promo catalogs loaded.", "tasks", len(catalog), "promos", len(promos))

	// 6. Initialize Repositories
	app.AccountRepository = postgres.NewAccountRepository(app.DB)
	app.LedgerRepository = postgres.NewLedgerRepository(app.DB)
	app.MarketRepository = postgres.NewMarketRepository(app.DB)
	app.Logger.Info("Repositories initialized.")

	// 7. Initialize Services
	// Pass the concrete db.BeginTx, db.CommitTx, db.RollbackTx functions from pkg/db
	app.SecurityService = service.NewSecurityService(
		app.DB,
		app.AccountRepository,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		time.Now,
	)
	app.AccountService = service.NewAccountService(
		app.DB, // This is the DBTxBeginner
		app.DB, // This is the DBExecutor
		app.AccountRepository,
		app.LedgerRepository,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
	)
	app.MarketService = service.NewMarketService(
		app.DB,
		app.DB,
		app.AccountRepository,
		app.LedgerRepository,
		app.MarketRepository,
		app.SecurityService,
		locker,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		time.Now,
	)
	app.TransferService = service.NewTransferService(
		app.DB,
		app.DB,
		app.AccountRepository,
		app.LedgerRepository,
		app.SecurityService,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		time.Now,
	)
	app.RewardService = service.NewRewardService(
		app.DB,
		app.DB,
		app.AccountRepository,
		app.LedgerRepository,
		catalog,
		promos,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		time.Now,
	)
	app.Logger.Info("Services initialized.")

	// 8. Initialize HTTP Handlers and Router
	accountHandler := handler.NewAccountHandler(app.AccountService, app.SecurityService, app.RewardService, app.Logger)
	marketHandler := handler.NewMarketHandler(app.MarketService, app.Logger)
	transferHandler := handler.NewTransferHandler(app.TransferService, app.Logger)
	app.HTTPHandler = router.NewRouter(accountHandler, marketHandler, transferHandler, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			app.Logger.Error("Failed to close Redis connection", "error", err)
		} else {
			app.Logger.Info("Redis connection closed.")
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
