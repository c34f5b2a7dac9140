package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/carebook/appointment-booking/internal/booking"
	"github.com/carebook/appointment-booking/internal/config"
	"github.com/carebook/appointment-booking/internal/db"
	"github.com/carebook/appointment-booking/internal/notify"
	redisclient "github.com/carebook/appointment-booking/internal/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running reminder worker in env=%s interval=%s window=%s",
		cfg.Env, cfg.WorkerInterval, cfg.ReminderWindow)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.Connect(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.New(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	directory := booking.NewPgDirectory(pgPool)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.SendGridAPIKey != "" {
		emailNotifier, err := notify.NewEmailNotifier(notify.EmailConfig{
			APIKey: cfg.SendGridAPIKey,
			From:   cfg.SendGridFrom,
			To:     cfg.ClinicEmail,
		})
		if err != nil {
			log.Fatalf("email notifier config error: %v", err)
		}
		notifier = emailNotifier
		log.Println("email reminders enabled")
	}

	reminder := notify.NewReminder(repo, directory, rdb, notifier, cfg.ReminderWindow, nil)

	// Run once at startup
	runOnce(rootCtx, reminder)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, reminder)
		}
	}
}

func runOnce(ctx context.Context, reminder *notify.Reminder) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := reminder.RunOnce(runCtx); err != nil {
		log.Printf("reminder run error: %v", err)
		return
	}
	log.Printf("reminder run complete in %s", time.Since(start))
}
