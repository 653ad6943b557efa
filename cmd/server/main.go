package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/team-presence/internal/config"
	"github.com/iliyamo/team-presence/internal/database"
	"github.com/iliyamo/team-presence/internal/handler"
	"github.com/iliyamo/team-presence/internal/middleware"
	"github.com/iliyamo/team-presence/internal/queue"
	"github.com/iliyamo/team-presence/internal/realtime"
	"github.com/iliyamo/team-presence/internal/repository"
	"github.com/iliyamo/team-presence/internal/router"
	"github.com/iliyamo/team-presence/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: .env not loaded: %v", err)
	}
	cfg := config.Load() // Load environment config

	db, err := openDB(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	if rdb == nil {
		log.Printf("redis: unavailable, cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	go hub.Run(ctx)

	// Every change event, local or from another instance, invalidates
	// cached reads and tells connected clients to re-fetch.
	onChange := func(ev queue.ChangeEvent) {
		hub.Broadcast(ev)
		bctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := middleware.BumpCacheGeneration(bctx, rdb, cacheCfg.Prefix); err != nil {
			log.Printf("cache: bump generation failed: %v", err)
		}
	}
	notifier := newNotifier(ctx, cfg, onChange)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	locations := repository.NewLocationRepo(db)
	checkins := repository.NewCheckinRepo(db)

	clock := service.NewClock(cfg.Location())
	policy := service.NewPolicy(service.ParseGroups(cfg.ElevatedGroups)...)
	ledger := service.NewLedger(locations, users, notifier)
	machine := service.NewMachine(checkins, policy, notifier, clock)
	presence := service.NewPresence(ledger, checkins, policy, clock)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Logger(), echomw.Recover())
	if cfg.Env == "prod" {
		e.Logger.SetLevel(glog.INFO)
	} else {
		e.Logger.SetLevel(glog.DEBUG)
	}

	limiter := middleware.NewTokenBucket(rateCfg, rdb)
	cache := middleware.NewRedisCache(cacheCfg, rdb)
	presenceHandler := handler.NewPresenceHandler(users, presence)

	router.RegisterRoutes(e, handler.Health(db, rdb))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret, limiter)
	router.RegisterEmployee(e, router.EmployeeHandlers{
		Locations: handler.NewLocationHandler(users, ledger, clock),
		Checkins:  handler.NewCheckinHandler(users, machine),
		Presence:  presenceHandler,
		Stream:    handler.NewWSHandler(users, hub),
	}, cfg.JWTSecret, limiter, cache)
	router.RegisterAdmin(e, handler.NewAdminHandler(users), presenceHandler, cfg.JWTSecret, limiter)

	addr := ":" + cfg.Port // Address string with port
	log.Printf("listening on %s (env=%s, db=%s, tz=%s)", addr, cfg.Env, cfg.DBDriver, cfg.Timezone) // Print startup info

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) { // Start HTTP server
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func openDB(cfg config.Config) (*sql.DB, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return database.OpenSQLite(cfg.SQLitePath)
	default:
		return database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
}

// newNotifier fans change events out through RabbitMQ when a broker is
// configured, and delivers them in-process otherwise.  With a broker the
// writing instance still applies its own events before the request
// returns; the consumer handles events from the other instances.
func newNotifier(ctx context.Context, cfg config.Config, onChange func(queue.ChangeEvent)) service.Notifier {
	if cfg.AMQPURL == "" {
		log.Printf("rabbitmq: no broker configured, using in-process notifications")
		return queue.NewLocalNotifier(onChange)
	}
	consumer := queue.NewConsumer(cfg.AMQPURL, onChange)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("checkin-consumer: stopped: %v", err)
		}
	}()
	pub := queue.NewPublisher(cfg.AMQPURL)
	go func() {
		<-ctx.Done()
		_ = pub.Close()
	}()
	return queue.NewRelay(consumer.ID(), onChange, pub)
}
