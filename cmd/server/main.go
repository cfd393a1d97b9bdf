package main

import (
    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/course-slot-booking/internal/booking"
    "github.com/iliyamo/course-slot-booking/internal/config"
    "github.com/iliyamo/course-slot-booking/internal/database"
    "github.com/iliyamo/course-slot-booking/internal/handler"
    "github.com/iliyamo/course-slot-booking/internal/ledger"
    "github.com/iliyamo/course-slot-booking/internal/logger"
    "github.com/iliyamo/course-slot-booking/internal/middleware"
    "github.com/iliyamo/course-slot-booking/internal/queue"
    "github.com/iliyamo/course-slot-booking/internal/repository"
    "github.com/iliyamo/course-slot-booking/internal/router"
    queue_publisher "github.com/iliyamo/course-slot-booking/internal/service"
)

func main() {
    // Load .env for local development; real deployments set the
    // environment directly.
    _ = godotenv.Load()

    cfg := config.Load()
    log := logger.New(cfg.Env)

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.StoreTimezone)
    if err != nil {
        log.WithError(err).Fatal("database connection failed")
    }
    defer db.Close()

    // Redis is optional: without it the response cache and the rate
    // limiter degrade to pass-through.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Warn("redis unavailable; response cache and rate limiting disabled")
    }

    slotRepo := repository.NewSlotRepo(db)
    orderRepo := repository.NewOrderRepo(db)
    productRepo := repository.NewProductRepo(db)
    userRepo := repository.NewUserRepo(db)
    tokenRepo := repository.NewTokenRepo(db)

    led := ledger.New(slotRepo, cfg.Location(), cfg.LeadTimeDays, log)
    svc := booking.NewService(led, orderRepo, productRepo, queue_publisher.PublishBookingEvent, log)

    e := echo.New()
    e.HideBanner = true

    cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    rateMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo, tokenRepo), cfg.JWTSecret)
    router.RegisterPublic(e, handler.NewPublicHandler(led, productRepo), cacheMW)
    router.RegisterCustomer(e, handler.NewCustomerHandler(svc), rateMW)
    router.RegisterAdmin(e, handler.NewAdminHandler(slotRepo, productRepo, led), handler.NewAdminBookingHandler(svc), cfg.JWTSecret)
    router.RegisterHooks(e, handler.NewHookHandler(svc), cfg.JWTSecret)

    // Background consumer mirrors booking events into logs/booking.log.
    go func() {
        if err := queue.StartBookingConsumer(); err != nil {
            log.WithError(err).Warn("booking event consumer stopped")
        }
    }()

    addr := ":" + cfg.Port
    log.Infof("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.WithError(err).Fatal("server stopped")
    }
}
