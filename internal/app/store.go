package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-auth/internal/platform/db"
	"github.com/odyssey-erp/odyssey-auth/internal/store"
	"github.com/odyssey-erp/odyssey-auth/internal/store/memstore"
	"github.com/odyssey-erp/odyssey-auth/internal/store/mongostore"
	"github.com/odyssey-erp/odyssey-auth/internal/store/pgstore"
)

// OpenStore builds the role store selected by cfg.StoreDriver. The returned
// close function releases driver resources and is safe to call exactly once.
// The memory driver seeds itself so a fresh process serves the local app
// without operator action.
func OpenStore(ctx context.Context, cfg *Config, logger *slog.Logger) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case DriverMemory:
		st := memstore.New()
		if _, err := store.Seed(ctx, st); err != nil {
			return nil, nil, fmt.Errorf("seed memory store: %w", err)
		}
		logger.Info("using in-memory store", slog.String("app", cfg.AppName))
		return st, func() {}, nil

	case DriverMongo:
		clientName := cfg.MongoClientName
		if clientName == "" {
			clientName = "authd-" + uuid.NewString()[:8]
		}
		st, err := mongostore.Connect(ctx, mongostore.Config{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			ClientName: clientName,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to mongodb", slog.String("database", cfg.MongoDatabase), slog.String("client", clientName))
		return st, func() {
			if err := st.Close(context.Background()); err != nil {
				logger.Warn("mongo close", slog.Any("error", err))
			}
		}, nil

	case DriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		st := pgstore.New(pool)
		if err := st.Setup(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("connected to postgres")
		return st, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
