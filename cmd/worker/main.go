package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/coreybb/newsfeeds/config"
	"github.com/coreybb/newsfeeds/deadletter"
	"github.com/coreybb/newsfeeds/ingestion"
	"github.com/coreybb/newsfeeds/queue"
	"github.com/coreybb/newsfeeds/search"
	"github.com/coreybb/newsfeeds/storage"
	"github.com/coreybb/newsfeeds/worker"
)

const (
	brokerInitTimeout = 10 * time.Second
	storeInitTimeout  = 10 * time.Second
	jobTimeout        = 60 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found, relying on environment variables.")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("Worker starting: %s", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	brokerCtx, cancelBroker := context.WithTimeout(ctx, brokerInitTimeout)
	defer cancelBroker()
	client, err := queue.NewRedisClient(brokerCtx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Redis setup failed: %v", err)
	}
	defer client.Close()

	storeCtx, cancelStore := context.WithTimeout(ctx, storeInitTimeout)
	defer cancelStore()
	store, err := newArticleStore(storeCtx, cfg)
	if err != nil {
		log.Fatalf("Object store setup failed: %v", err)
	}

	jobQueue := queue.NewRedisQueue(client, cfg.QueueName, queue.Options{
		VisibilityTimeout: cfg.VisibilityTimeout,
	})
	provider := search.NewHTTPProvider(cfg.SearchBaseURL, 0)
	fetcher := ingestion.NewArticleFetcher(provider, store, cfg.SearchResultLimit)
	recorder := deadletter.NewRedisRecorder(client, cfg.DeadLetterKey)

	pool := worker.NewPool(jobQueue, fetcher, recorder, cfg.Retry, cfg.WorkerPoolSize, jobTimeout)

	log.Printf("Worker pool running with %d workers on queue %q", cfg.WorkerPoolSize, cfg.QueueName)
	pool.Run(ctx)
	log.Println("Worker pool stopped")
}

// newArticleStore selects the configured storage backend: the
// S3-compatible store, or the local filesystem for offline runs.
func newArticleStore(ctx context.Context, cfg config.Config) (storage.ArticleStore, error) {
	if cfg.StorageBackend == config.StorageBackendLocal {
		log.Printf("INFO: Using local article storage at %s", cfg.LocalStoragePath)
		return storage.NewLocalArticleStore(cfg.LocalStoragePath), nil
	}
	return storage.NewMinioArticleStore(ctx, storage.ObjectStoreConfig{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
		Bucket:    cfg.S3Bucket,
	})
}
