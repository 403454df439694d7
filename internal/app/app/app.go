package app

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/go-redis/redis/v8"

	"paybridge/internal/app/config"
	"paybridge/internal/app/ipn"
	"paybridge/internal/app/logger"
	"paybridge/internal/app/notify"
	"paybridge/internal/app/service/poller"
	"paybridge/internal/app/service/reconcile"
	"paybridge/internal/app/storage"
	"paybridge/internal/app/storage/memory"
	"paybridge/internal/app/storage/postgres"
	"paybridge/pkg/gateway"
)

type App struct {
	config       config.Config
	logger       logger.Logger
	db           *sql.DB
	transactions storage.TransactionRepository
	gateway      *gateway.Service
	verifier     *ipn.Verifier
	engine       *reconcile.Service
	dispatcher   *notify.Dispatcher
	poller       *poller.Service
	stopCh       chan struct{}
}

func New(cfg config.Config, l logger.Logger, e embed.FS) (*App, error) {
	gs, err := gateway.NewService(cfg.Gateway.RemoteURL,
		gateway.WithAPIKey(cfg.Gateway.APIKey),
		gateway.WithLogger(l.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("gateway init: %w", err)
	}

	a := &App{
		config:  cfg,
		logger:  l,
		stopCh:  make(chan struct{}),
		gateway: gs,
	}

	if cfg.Database.Store == "memory" {
		l.Warn().Msg("Using in-memory transaction store")
		a.transactions = memory.NewTransactionRepository()
	} else {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("db ping: %w", err)
		}

		if err := applyMigrations(e, db); err != nil {
			return nil, fmt.Errorf("db migrate: %w", err)
		}

		transactions, err := postgres.NewTransactionRepository(db)
		if err != nil {
			return nil, fmt.Errorf("transaction repository init: %w", err)
		}

		a.db = db
		a.transactions = transactions
	}

	var sink notify.Sink = notify.NewLogSink(l)
	if cfg.Redis.Enabled {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sink = notify.NewRedisSink(rc, cfg.Redis.Channel)
	}

	a.verifier = ipn.NewVerifier(cfg.IPN.Secret, l)
	a.dispatcher = notify.NewDispatcher(sink, cfg.Notify.AdminRef, l)
	a.engine = reconcile.New(a.transactions, reconcile.WithLogger(l))
	a.poller = poller.New(a.transactions, gs, a.engine, a.dispatcher, cfg.Poller.Interval, cfg.Poller.Workers)
	a.poller.Start()

	go func() {
		<-a.stopCh
		a.logger.Info().Msg("Shutting down application")
	}()

	return a, nil
}

// Stop drains the poller and in-flight reconciles.
func (a *App) Stop() {
	close(a.stopCh)
	a.poller.Stop()
	a.engine.Stop()
	if a.db != nil {
		_ = a.db.Close()
	}
}
