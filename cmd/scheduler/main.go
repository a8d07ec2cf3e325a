package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/coreybb/newsfeeds/config"
	"github.com/coreybb/newsfeeds/datastore"
	"github.com/coreybb/newsfeeds/queue"
	"github.com/coreybb/newsfeeds/scheduler"
)

const brokerInitTimeout = 10 * time.Second

func main() {
	once := flag.Bool("once", false, "run a single scheduling cycle and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found, relying on environment variables.")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := datastore.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	defer db.Close()

	brokerCtx, cancelBroker := context.WithTimeout(ctx, brokerInitTimeout)
	defer cancelBroker()
	client, err := queue.NewRedisClient(brokerCtx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Redis setup failed: %v", err)
	}
	defer client.Close()

	companyRepo := datastore.NewCompanyRepository(db)
	jobQueue := queue.NewRedisQueue(client, cfg.QueueName, queue.Options{
		VisibilityTimeout: cfg.VisibilityTimeout,
	})

	sched := scheduler.New(companyRepo, jobQueue, cfg.ScheduleInterval)

	if *once {
		enqueued, err := sched.RunOnce(ctx)
		if err != nil {
			log.Fatalf("Scheduling cycle failed: %v", err)
		}
		log.Printf("Scheduling cycle complete: %d jobs enqueued", enqueued)
		return
	}

	log.Printf("Scheduler running every %s", cfg.ScheduleInterval)
	sched.Run(ctx)
	log.Println("Scheduler stopped")
}
