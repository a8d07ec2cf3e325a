package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"sort"

	"github.com/joho/godotenv"

	"github.com/coreybb/newsfeeds/config"
	"github.com/coreybb/newsfeeds/datastore"
)

func main() {
	configPath := flag.String("config", "companies.json", "JSON file mapping company names to source lists")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found, relying on environment variables.")
	}

	cfg := config.Load()

	companies, err := loadSeedConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load seed config: %v", err)
	}

	db, err := datastore.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := datastore.InitSchema(ctx, db); err != nil {
		log.Fatalf("Schema initialization failed: %v", err)
	}

	companyRepo := datastore.NewCompanyRepository(db)

	names := make([]string, 0, len(companies))
	for name := range companies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sources := companies[name]
		if err := companyRepo.UpsertCompanyWithSources(ctx, name, sources); err != nil {
			log.Fatalf("Failed to seed company %q: %v", name, err)
		}
		log.Printf("INFO: Seeded company %q with %d sources", name, len(sources))
	}

	log.Printf("Seeding complete: %d companies", len(names))
}

func loadSeedConfig(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var companies map[string][]string
	if err := json.Unmarshal(data, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}
