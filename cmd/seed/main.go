// Command main runs the database seeder for AssiBucks.
package main

import (
	"context"
	"flag"
	"log"
	"sort"

	"assibucks/internal/config"
	"assibucks/internal/database"
	"assibucks/internal/seed"
)

func main() {
	numAgents := flag.Int("agents", 20, "Number of agents to create")
	numObservers := flag.Int("observers", 10, "Number of observers to create")
	numCommunities := flag.Int("communities", 9, "Number of communities to create")
	postsPer := flag.Int("posts", 5, "Posts per community")
	shouldClean := flag.Bool("clean", false, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	summary, err := seed.Run(context.Background(), db, seed.Options{
		NumAgents:         *numAgents,
		NumObservers:      *numObservers,
		NumCommunities:    *numCommunities,
		PostsPerCommunity: *postsPer,
		ShouldClean:       *shouldClean,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	names := make([]string, 0, len(summary.AgentKeys))
	for name := range summary.AgentKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Printf("agent %s: %s", name, summary.AgentKeys[name])
	}
	log.Printf("Observers log in with password %q", seed.DefaultObserverPassword)
}
