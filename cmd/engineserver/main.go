package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/brightledger/matchengine/internal/applog"
	"github.com/brightledger/matchengine/internal/config"
	"github.com/brightledger/matchengine/internal/engine"
	pgmirror "github.com/brightledger/matchengine/internal/storage/postgres"
	redismirror "github.com/brightledger/matchengine/internal/storage/redis"

	"github.com/brightledger/matchengine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	applog.SetLevel(applog.ParseLevel(cfg.Logger.Level))

	applog.Info("starting matching engine", applog.Fields{"data_dir": cfg.Storage.DataDir})

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		applog.Error("failed to create data directory", applog.Fields{"error": err.Error()})
		os.Exit(1)
	}

	dataPath := func(name string) string { return filepath.Join(cfg.Storage.DataDir, name) }

	orderStore, err := storage.OpenOrderStore(dataPath("orders.dat"), dataPath("orders.idx"))
	mustOpen(err, "orders")
	userStore, err := storage.OpenUserStore(dataPath("users.dat"), dataPath("users.idx"))
	mustOpen(err, "users")
	tradeStore, err := storage.OpenTradeStore(dataPath("trades.dat"), dataPath("trades.idx"))
	mustOpen(err, "trades")
	symbolStore, err := storage.OpenSymbolStore(dataPath("symbols.dat"))
	mustOpen(err, "symbols")
	metadataStore, err := storage.OpenMetadataStore(dataPath("metadata.dat"))
	mustOpen(err, "metadata")

	var orderUserStore storage.OrderStore = orderStore
	var userUserStore storage.UserStore = userStore
	var tradeUserStore storage.TradeStore = tradeStore

	if cfg.Redis.Enabled {
		client, err := redismirror.NewClient(redismirror.Config{
			Host: cfg.Redis.Host, Port: cfg.Redis.Port, Password: cfg.Redis.Password,
			DB: cfg.Redis.DB, MaxRetries: cfg.Redis.MaxRetries, PoolSize: cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns, OrderTTL: cfg.Redis.OrderTTL,
		})
		if err != nil {
			applog.Warn("redis mirror unavailable, continuing without it", applog.Fields{"error": err.Error()})
		} else {
			mirror := redismirror.NewOrderMirror(client, cfg.Redis.OrderTTL)
			orderUserStore = storage.NewCompositeOrderStore(orderStore, mirror)
			userUserStore = storage.NewCompositeUserStore(userStore, mirror)
		}
	}

	if cfg.Database.Enabled {
		pool, err := pgmirror.NewPool(context.Background(), pgmirror.Config{
			Host: cfg.Database.Host, Port: cfg.Database.Port, User: cfg.Database.User,
			Password: cfg.Database.Password, Database: cfg.Database.Name,
			SSLMode: cfg.Database.SSLMode, MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			applog.Warn("postgres mirror unavailable, continuing without it", applog.Fields{"error": err.Error()})
		} else {
			mirror := pgmirror.NewTradeMirror(pool)
			if err := mirror.Migrate(context.Background()); err != nil {
				applog.Warn("postgres trade blotter migration failed", applog.Fields{"error": err.Error()})
			} else {
				tradeUserStore = storage.NewCompositeTradeStore(tradeStore, mirror)
			}
		}
	}

	eng := engine.New(cfg.Engine.AdminUserID, cfg.Storage.MetadataFlushEvery, engine.Stores{
		Order: orderUserStore, User: userUserStore, Trade: tradeUserStore,
		Symbol: symbolStore, Metadata: metadataStore,
	})

	if err := eng.Recover(); err != nil {
		applog.Error("engine recovery failed", applog.Fields{"error": err.Error()})
		os.Exit(1)
	}

	code := run(cfg, eng)

	for _, closer := range []interface{ Close() error }{orderStore, userStore, tradeStore, symbolStore, metadataStore} {
		if err := closer.Close(); err != nil {
			applog.Warn("error closing store", applog.Fields{"error": err.Error()})
		}
	}

	os.Exit(code)
}

func mustOpen(err error, what string) {
	if err != nil {
		applog.Error("failed to open store", applog.Fields{"store": what, "error": err.Error()})
		os.Exit(1)
	}
}
