package main

import (
	"github.com/cicotti/reportfy-api/internal/handler"
	"github.com/cicotti/reportfy-api/internal/middleware"
	"github.com/cicotti/reportfy-api/internal/model"
	"github.com/cicotti/reportfy-api/internal/realtime"
	"github.com/cicotti/reportfy-api/internal/repository"
	"github.com/cicotti/reportfy-api/internal/service"
	"github.com/cicotti/reportfy-api/internal/storage"
	"github.com/cicotti/reportfy-api/pkg/config"
	"github.com/cicotti/reportfy-api/pkg/database"
	"github.com/cicotti/reportfy-api/pkg/jwtutil"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/cicotti/reportfy-api/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load("reportfy-api")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting reportfy API...", cfg.LogConfig()...)

	// Initialize database and run migrations
	db, err := database.Init(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db,
		&model.Company{},
		&model.Profile{},
		&model.UserRole{},
		&model.UserSettings{},
		&model.Client{},
		&model.Project{},
		&model.ProjectTask{},
		&model.ProjectWeather{},
		&model.ProjectPhoto{},
		&model.InformativeType{},
		&model.ProjectInformative{},
	); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed")

	// Shared infrastructure
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})
	blobs := storage.NewClient(&cfg.Storage)
	hub := realtime.NewHub()

	// Services wired onto their repositories
	tenants := service.NewTenantService(db)
	auth := service.NewAuthService(db, jwt, tenants)
	tasks := service.NewTaskService(repository.NewTaskRepository(db))
	weather := service.NewWeatherService(
		repository.NewWeatherRepository(db),
		service.NewOpenMeteoProvider(&cfg.Weather),
	)
	photos := service.NewPhotoService(
		repository.NewPhotoRepository(db),
		repository.NewProfileAvatarRepository(db),
		blobs,
		cfg.Storage.PhotoBucket,
		cfg.Storage.AvatarBucket,
	)

	// Handlers
	authHandler := handler.NewAuthHandler(auth)
	userHandler := handler.NewUserHandler(db, auth, photos)
	companyHandler := handler.NewCompanyHandler(db)
	clientHandler := handler.NewClientHandler(repository.NewClientRepository(db))
	projectHandler := handler.NewProjectHandler(db, hub)
	taskHandler := handler.NewTaskHandler(tasks, hub)
	weatherHandler := handler.NewWeatherHandler(weather, hub)
	photoHandler := handler.NewPhotoHandler(photos, hub)
	infoTypeHandler := handler.NewInformativeTypeHandler(db)
	infoHandler := handler.NewInformativeHandler(db, hub)
	realtimeHandler := handler.NewRealtimeHandler(hub)

	authGuard := middleware.NewAuth(jwt, tenants)

	// Initialize Echo framework
	e := echo.New()
	e.HideBanner = true

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/signup", authHandler.Signup)
	e.POST("/auth/reset-password", authHandler.ResetPassword)

	// Protected routes: token plus per-request tenant gate
	api := e.Group("", authGuard.Authenticate, authGuard.RequireActiveTenant)

	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)

	// Password update also accepts the reset-purpose token
	e.PUT("/auth/password", authHandler.UpdatePassword,
		authGuard.AuthenticateWithReset, authGuard.RequireActiveTenant)

	users := api.Group("/users")
	users.GET("", userHandler.List)
	users.PUT("", userHandler.UpdateProfile)
	users.DELETE("", userHandler.DeleteIdentity)
	users.PUT("/role", userHandler.SetRole)
	users.GET("/settings", userHandler.GetSettings)
	users.PUT("/settings", userHandler.UpdateSettings)
	users.POST("/avatar", userHandler.UploadAvatar)

	companies := api.Group("/companies")
	companies.GET("", companyHandler.List)
	companies.POST("", companyHandler.Create)
	companies.PUT("", companyHandler.Update)
	companies.DELETE("", companyHandler.Delete)

	clients := api.Group("/clients")
	clients.GET("", clientHandler.List)
	clients.POST("", clientHandler.Create)
	clients.PUT("", clientHandler.Update)
	clients.DELETE("", clientHandler.Delete)

	projects := api.Group("/projects")
	projects.GET("", projectHandler.List)
	projects.POST("", projectHandler.Create)
	projects.PUT("", projectHandler.Update)
	projects.DELETE("", projectHandler.Delete)

	tasksGroup := api.Group("/project-tasks")
	tasksGroup.GET("/:projectId", taskHandler.List)
	tasksGroup.POST("", taskHandler.Create)
	tasksGroup.PUT("", taskHandler.Update)
	tasksGroup.DELETE("", taskHandler.Delete)

	weatherGroup := api.Group("/project-weather")
	weatherGroup.GET("", weatherHandler.List)
	weatherGroup.POST("/sync", weatherHandler.Sync)

	photosGroup := api.Group("/project-photos")
	photosGroup.GET("/:projectId", photoHandler.List)
	photosGroup.POST("/:projectId", photoHandler.Upload)
	photosGroup.DELETE("", photoHandler.Delete)

	infoTypes := api.Group("/informative-types")
	infoTypes.GET("", infoTypeHandler.List)
	infoTypes.POST("", infoTypeHandler.Create)
	infoTypes.PUT("", infoTypeHandler.Update)
	infoTypes.DELETE("", infoTypeHandler.Delete)

	informatives := api.Group("/informatives")
	informatives.GET("/:projectId", infoHandler.List)
	informatives.POST("", infoHandler.Create)
	informatives.PUT("", infoHandler.Update)
	informatives.DELETE("", infoHandler.Delete)

	// SSE clients cannot set headers, so the stream routes take the
	// token from the query string
	rt := e.Group("/realtime", authGuard.AuthenticateSSE, authGuard.RequireActiveTenant)
	rt.GET("/subscribe/:table", realtimeHandler.Subscribe)
	rt.GET("/auth-state", realtimeHandler.AuthState)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
