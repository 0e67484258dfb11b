package main

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-auth/internal/app"
	"github.com/odyssey-erp/odyssey-auth/jobs"
)

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		log.Fatalf("queue client: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	fmt.Printf("→ Enqueuing template migration for app %q...\n", cfg.AppName)
	info, err := client.EnqueueTemplateMigrate(ctx, cfg.AppName)
	if err != nil {
		log.Fatalf("enqueue: %v", err)
	}

	fmt.Println("✓ Enqueued task", info.ID, "on queue", info.Queue)
}
