package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/concert-seat-selection/internal/broadcast"
	"github.com/iliyamo/concert-seat-selection/internal/config"
	"github.com/iliyamo/concert-seat-selection/internal/handler"
	"github.com/iliyamo/concert-seat-selection/internal/hold"
	"github.com/iliyamo/concert-seat-selection/internal/loader"
	"github.com/iliyamo/concert-seat-selection/internal/lock"
	"github.com/iliyamo/concert-seat-selection/internal/middleware"
	"github.com/iliyamo/concert-seat-selection/internal/queue"
	"github.com/iliyamo/concert-seat-selection/internal/router"
	"github.com/iliyamo/concert-seat-selection/internal/store"
)

func main() {
	_ = godotenv.Load() // optional .env, real env vars win
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Lock backend: in-process by default, Redis when enabled and reachable.
	var backend lock.Backend = lock.NewMemory()
	rdb := config.NewRedisClient()
	if cfg.EnableRedis {
		if rdb != nil {
			backend = lock.NewRedis(rdb)
			log.Printf("lock backend: redis")
		} else {
			log.Printf("lock backend: redis requested but unreachable, using in-process")
		}
	}

	// Durable store is optional; without it the catalog lives in memory only.
	var st *store.SeatStore
	if cfg.DBEnabled() {
		db, err := store.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
		st = store.NewSeatStore(db)
		if err := st.EnsureSchema(ctx); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
	}

	cat, err := loader.Bootstrap(ctx, cfg.SeatsJSONPath, st, backend)
	if err != nil {
		log.Fatalf("bootstrap catalog: %v", err)
	}

	events := broadcast.New()
	opts := []hold.Option{}
	if st != nil {
		opts = append(opts, hold.WithStore(st))
	}
	coord := hold.NewCoordinator(cat, backend, events, cfg.HoldTTL, opts...)
	proc := hold.NewProcessor(coord)
	if st != nil {
		records, err := st.LoadPurchasesSince(ctx, time.Now().UTC().Add(-2*cfg.HoldTTL))
		if err != nil {
			log.Fatalf("load purchases: %v", err)
		}
		proc.Seed(records)
	}
	mutator := hold.NewMutator(coord, cfg.PriceForTier)

	reaper := hold.NewReaper(coord, proc, cfg.CleanupInterval)
	go reaper.Run(ctx)

	holds := handler.NewHoldHandler(coord, proc, cat)
	if os.Getenv("RABBITMQ_URL") != "" || os.Getenv("AMQP_URL") != "" {
		holds.PublishSale = queue.PublishSaleRecorded
		go queue.StartSaleConsumer()
	}

	e := echo.New()
	e.HideBanner = true
	limiter := handlerRateLimiter(rdb)
	router.RegisterRoutes(e, handler.NewSeatHandler(cat), holds, handler.NewWSHandler(events), limiter)
	router.RegisterAdmin(e, cfg, handler.NewAdminHandler(mutator))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, ttl=%s, reap=%s)", addr, cfg.Env, cfg.HoldTTL, cfg.CleanupInterval)
	go func() {
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// handlerRateLimiter builds the token-bucket middleware; a nil Redis client
// yields a pass-through.
func handlerRateLimiter(rdb *redis.Client) echo.MiddlewareFunc {
	return middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
}
