package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/coreybb/newsfeeds/config"
	"github.com/coreybb/newsfeeds/enqueue"
	"github.com/coreybb/newsfeeds/models"
	"github.com/coreybb/newsfeeds/queue"
)

const brokerInitTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "JSON file mapping company names to source lists")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [-config companies.json] [Company:Source ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found, relying on environment variables.")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	items, parseFailures := collectItems(*configPath, flag.Args())
	if len(items) == 0 && parseFailures == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancelBroker := context.WithTimeout(context.Background(), brokerInitTimeout)
	defer cancelBroker()
	client, err := queue.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Redis setup failed: %v", err)
	}
	defer client.Close()

	jobQueue := queue.NewRedisQueue(client, cfg.QueueName, queue.Options{
		VisibilityTimeout: cfg.VisibilityTimeout,
	})

	enqueued, failed := enqueue.Run(context.Background(), jobQueue, items)
	failed += parseFailures

	log.Printf("Done: %d enqueued, %d failed", enqueued, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// collectItems gathers work items from the config file (if given) and any
// positional Company:Source arguments. Unparseable arguments count as
// failures rather than aborting the whole run.
func collectItems(configPath string, args []string) ([]models.WorkItem, int) {
	var items []models.WorkItem
	var failures int

	if configPath != "" {
		loaded, err := enqueue.LoadConfigPairs(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		items = append(items, loaded...)
	}

	for _, arg := range args {
		item, err := enqueue.ParsePair(arg)
		if err != nil {
			log.Printf("WARNING (Enqueue): %v", err)
			failures++
			continue
		}
		items = append(items, item)
	}
	return items, failures
}
