package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/odyssey-erp/odyssey-auth/internal/app"
	"github.com/odyssey-erp/odyssey-auth/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.StoreDriver == app.DriverMemory {
		log.Fatalf("store driver %q keeps no state between processes; set AUTH_STORE_DRIVER to mongo or postgres", cfg.StoreDriver)
	}

	logger := app.NewLogger(cfg)

	st, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	fmt.Println("→ Seeding local application and default role...")
	appID, err := store.Seed(ctx, st)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339), "app", appID)
}
