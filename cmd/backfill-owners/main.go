// Command main inserts missing owner memberships for communities created before
// owner rows were written at creation time. Running it twice is harmless.
package main

import (
	"context"
	"log"
	"time"

	"assibucks/internal/config"
	"assibucks/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	inserted, err := database.BackfillOwnerMemberships(ctx, db)
	if err != nil {
		log.Fatalf("Backfill failed: %v", err)
	}
	log.Printf("Backfill complete: %d owner memberships inserted", inserted)
}
