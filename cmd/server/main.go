package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/voluntree/voluntree-api/internal/config"
	"github.com/voluntree/voluntree-api/internal/database"
	"github.com/voluntree/voluntree-api/internal/handler"
	"github.com/voluntree/voluntree-api/internal/jobs"
	"github.com/voluntree/voluntree-api/internal/lifecycle"
	"github.com/voluntree/voluntree-api/internal/middleware"
	"github.com/voluntree/voluntree-api/internal/notifier"
	"github.com/voluntree/voluntree-api/internal/repository"
	"github.com/voluntree/voluntree-api/internal/router"
	"github.com/voluntree/voluntree-api/internal/storage"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the browse cache and the rate limiter; both degrade to
	// no-ops when it is unreachable.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	workshops := repository.NewWorkshopRepo(db)
	slots := repository.NewSlotRepo(db)
	bookings := repository.NewBookingRepo(db)

	var avatars *storage.AvatarStore
	if cfg.CloudinaryURL != "" {
		avatars, err = storage.NewAvatarStore(cfg.CloudinaryURL)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
	} else {
		log.Println("CLOUDINARY_URL not set; avatar uploads disabled")
	}

	manager := lifecycle.New(db, profiles, workshops, slots, bookings, lifecycle.AMQPPublisher{}, cfg.EnforceCapacity)

	gateway, err := notifier.New(cfg.GatewayBaseURL)
	if err != nil {
		log.Fatalf("notifier: %v", err)
	}
	notifier.StartConsumers(gateway)

	cron := jobs.StartTokenCleanup(tokens)
	defer cron.Stop()

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, &handler.PublicHandler{Workshops: workshops, Slots: slots}, config.LoadCacheConfig(), rdb)
	router.RegisterProfile(e, handler.NewProfileHandler(profiles, avatars), cfg.JWTSecret)
	router.RegisterHost(e, handler.NewHostHandler(workshops, slots, bookings, manager), cfg.JWTSecret)
	router.RegisterAttendee(e, handler.NewAttendeeHandler(slots, bookings, manager), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
