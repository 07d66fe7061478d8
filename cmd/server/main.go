package main // Entry point package

import (
    "context" // lifecycle context for background jobs
    "log"     // Logging library
    "time"    // sweep cadence

    "github.com/joho/godotenv"      // .env loading for local development
    "github.com/jonboulle/clockwork" // real clock injected into the hold controller
    "github.com/labstack/echo/v4"   // Echo web framework

    "github.com/kateri/camp-registration/internal/config"       // environment config loader
    "github.com/kateri/camp-registration/internal/database"     // MySQL connection setup
    "github.com/kateri/camp-registration/internal/handler"      // HTTP handlers
    "github.com/kateri/camp-registration/internal/queue"        // RabbitMQ publisher/consumer
    "github.com/kateri/camp-registration/internal/registration" // hold controller and sweeper
    "github.com/kateri/camp-registration/internal/repository"   // DB repositories
    "github.com/kateri/camp-registration/internal/router"       // route registration
)

func main() {
    // Load .env if present; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis is optional: without it the rate limiter fails open and the
    // public session listing skips its cache.
    rdb := config.NewRedisClient()

    users := repository.NewUserRepo(db)
    sessions := repository.NewSessionRepo(db)
    holds := repository.NewHoldRepo(db)
    regs := repository.NewRegistrationRepo(db)
    campers := repository.NewCamperRepo(db)
    payments := repository.NewPaymentRepo(db)

    clock := clockwork.NewRealClock()
    ctrl := registration.NewController(db, sessions, holds, regs, campers, payments, clock, uint32(cfg.DepositCents))
    sweeper := registration.NewSweeper(db, sessions, holds, regs, clock, time.Duration(cfg.SweepEveryMin)*time.Minute)

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    go sweeper.Run(ctx)

    // Consumer appends confirmed-registration events to the audit log.
    // It reconnects on broker failures and never takes the API down.
    go func() {
        if err := queue.StartRegistrationConsumer(); err != nil {
            log.Printf("queue consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(users, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost), cfg.JWTSecret)
    router.RegisterPublic(e, handler.NewPublicHandler(sessions, rdb))
    router.RegisterRegistration(e, handler.NewRegistrationHandler(ctrl, regs, campers, uint32(cfg.DepositCents)), cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)
    router.RegisterAdmin(e, handler.NewAdminHandler(sessions, sweeper), cfg.JWTSecret)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
