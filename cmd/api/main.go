package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/coreybb/newsfeeds/api"
	"github.com/coreybb/newsfeeds/config"
	"github.com/coreybb/newsfeeds/datastore"
	rh "github.com/coreybb/newsfeeds/route-handlers"
	"github.com/coreybb/newsfeeds/storage"
)

const (
	schemaInitTimeout = 10 * time.Second
	storeInitTimeout  = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found, relying on environment variables.")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := datastore.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	defer db.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), schemaInitTimeout)
	defer cancelSchema()
	if err := datastore.InitSchema(schemaCtx, db); err != nil {
		log.Fatalf("Schema initialization failed: %v", err)
	}

	storeCtx, cancelStore := context.WithTimeout(context.Background(), storeInitTimeout)
	defer cancelStore()
	store, err := newArticleStore(storeCtx, cfg)
	if err != nil {
		log.Fatalf("Object store setup failed: %v", err)
	}

	companyRepo := datastore.NewCompanyRepository(db)
	sourceRepo := datastore.NewSourceRepository(db)

	companyHandler := rh.NewCompanyHandler(companyRepo)
	sourceHandler := rh.NewSourceHandler(sourceRepo)
	newsHandler := rh.NewNewsHandler(store)

	router := api.SetupRoutes(companyHandler, sourceHandler, newsHandler)

	startServer(cfg.Port, router)
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

func startServer(port string, router http.Handler) {
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownSignal
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
