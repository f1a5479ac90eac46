package server

import (
	"github.com/AutoMind-2527/Backend/internal/auth"
	"github.com/AutoMind-2527/Backend/internal/config"
	"github.com/AutoMind-2527/Backend/internal/lock"
	"github.com/AutoMind-2527/Backend/internal/stream"
	"github.com/AutoMind-2527/Backend/internal/tracking"
	"github.com/AutoMind-2527/Backend/internal/trip"
	"github.com/AutoMind-2527/Backend/internal/vehicle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Tracking *tracking.Service
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}
	s.Tracking = tracking.NewService(
		tracking.NewPostgresRepository(db),
		vehicleLocker(cfg, redisClient),
		s.Stream,
		tracking.Options{
			InactivityThreshold: cfg.InactivityThreshold,
			DefaultConsumption:  cfg.DefaultConsumption,
			FuelPricePerLiter:   cfg.FuelPricePerLiter,
		},
	)

	registerRoutes(s)
	return s
}

// vehicleLocker shares the per-vehicle lock across instances when redis is
// configured and falls back to an in-process lock otherwise.
func vehicleLocker(cfg config.Config, redisClient *redis.Client) lock.Locker {
	if redisClient != nil {
		return lock.NewRedis(redisClient, cfg.VehicleLockTTL)
	}
	return lock.NewLocal()
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	var users *auth.Directory
	if s.DB != nil {
		users = auth.NewDirectory(s.DB)
	}
	jwtMiddleware := auth.JWTMiddleware(auth.Options{
		Secret:   s.Cfg.JWTSecret,
		Issuer:   s.Cfg.JWTIssuer,
		Audience: s.Cfg.JWTAudience,
	}, users)

	auth.RegisterRoutes(s.App.Group("/auth"), jwtMiddleware)
	tracking.RegisterRoutes(s.App.Group("/gps"), s.Tracking, jwtMiddleware)
	trip.RegisterRoutes(s.App.Group("/trips"), trip.NewService(s.DB), jwtMiddleware)
	vehicle.RegisterRoutes(s.App.Group("/vehicles"),
		vehicle.NewService(s.DB, s.Cfg.ServiceIntervalKm, s.Cfg.ServiceWindowKm), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
