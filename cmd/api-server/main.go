package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebook/appointment-booking/internal/api"
	"github.com/carebook/appointment-booking/internal/auth"
	"github.com/carebook/appointment-booking/internal/booking"
	"github.com/carebook/appointment-booking/internal/config"
	"github.com/carebook/appointment-booking/internal/db"
	redisclient "github.com/carebook/appointment-booking/internal/redis"
)

const version = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s store=%s http_port=%s", cfg.Env, cfg.Store, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Redis (slot locks + OTP codes)
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

	var (
		pgPool    *pgxpool.Pool
		repo      booking.Repository
		directory booking.Directory
	)

	if cfg.Store == "postgres" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.Connect(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		log.Println("connected to Postgres")

		repo = booking.NewPgRepository(pgPool)
		directory = booking.NewPgDirectory(pgPool)
	} else {
		repo = booking.NewMemoryRepository(nil)
		directory = booking.NewMemoryDirectory()
		log.Println("using in-memory store")
	}

	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, directory, locker)
	queries := booking.NewQueries(repo)
	calendar := booking.NewCalendar(repo)
	otp := auth.NewOTPService(rdb, cfg.JWTSecret, cfg.OTPTTL, 24*time.Hour)

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		Queries:   queries,
		Calendar:  calendar,
		Directory: directory,
		OTP:       otp,
		JWTSecret: cfg.JWTSecret,
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	case <-rootCtx.Done():
	}

	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
