package router

import (
	analysissvc "pisotrack-backend/internal/application/analysis"
	authsvc "pisotrack-backend/internal/application/auth"
	listsvc "pisotrack-backend/internal/application/listings"
	migrationsvc "pisotrack-backend/internal/application/migration"
	"pisotrack-backend/internal/config"
	"pisotrack-backend/internal/infrastructure/database"
	analysishandler "pisotrack-backend/internal/interfaces/handlers/analysis"
	authhandler "pisotrack-backend/internal/interfaces/handlers/auth"
	healthhandler "pisotrack-backend/internal/interfaces/handlers/health"
	migrationhandler "pisotrack-backend/internal/interfaces/handlers/migration"
	propertyhandler "pisotrack-backend/internal/interfaces/handlers/properties"
	"pisotrack-backend/internal/middleware"
	"pisotrack-backend/internal/scrape"
	"pisotrack-backend/internal/store"
	"pisotrack-backend/internal/store/gormstore"
	"pisotrack-backend/internal/store/localstore"
	"pisotrack-backend/internal/vision"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// localOwner is the implicit owner for single-device deployments, where there
// is no account system and one active session is assumed.
var localOwner = uuid.NewSHA1(uuid.NameSpaceURL, []byte("pisotrack:local-owner"))

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app with all middleware and routes. The listing
// store backend is chosen here, once: DATABASE_URL set means the shared GORM
// store, otherwise the single-device file store. Nothing downstream branches
// on the choice.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/health/json", hh.JSON)
	app.Get("/reset", hh.Reset)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		hh.DB = &gormDBPinger{db: db}
	}

	scraper := &scrape.ApifyClient{
		Token:   cfg.ApifyAPIToken,
		ActorID: cfg.ApifyActorID,
	}

	var listingStore store.ListingStore
	var local *localstore.Store
	var shared *gormstore.Store
	if db != nil {
		shared = gormstore.New(db)
		listingStore = shared
	} else {
		local = localstore.New(cfg.LocalStorePath)
		listingStore = local
	}

	propertyService := &listsvc.Service{Store: listingStore, Scraper: scraper}
	propertyHandlers := &propertyhandler.Handlers{Service: propertyService}

	// Shared deployments authenticate; single-device deployments run as one
	// implicit local owner with no account routes.
	requireOwner := middleware.RequireAuth()
	if db != nil {
		userStore := &authsvc.GormUserStore{DB: db}
		authHandlers := &authhandler.Handlers{
			UserFinder:  userStore,
			UserCreator: userStore,
			Rdb:         rdb,
			Config:      sessionCfg,
		}
		authGroup := app.Group("/api/v1/auth")
		authGroup.Post("/register", authHandlers.Register)
		authGroup.Post("/login", authHandlers.Login)
		authGroup.Get("/me", authHandlers.Me)
		authGroup.Delete("/logout", authHandlers.Logout)
	} else {
		requireOwner = func(c *fiber.Ctx) error {
			c.Locals("user", map[string]interface{}{
				"user_id":  localOwner.String(),
				"fullname": "Local user",
				"email":    "",
			})
			return c.Next()
		}
	}

	propGroup := app.Group("/api/v1/properties", requireOwner)
	propGroup.Post("/create-property", propertyHandlers.CreateProperty)
	propGroup.Get("/get-properties", propertyHandlers.GetProperties)
	propGroup.Get("/get-property/:property_id", propertyHandlers.GetProperty)
	propGroup.Patch("/update-property/:property_id", propertyHandlers.UpdateProperty)
	propGroup.Delete("/delete-property/:property_id", propertyHandlers.DeleteProperty)
	propGroup.Post("/schedule-visit", propertyHandlers.StageAction("schedule"))
	propGroup.Post("/reschedule-visit", propertyHandlers.StageAction("reschedule"))
	propGroup.Post("/cancel-visit", propertyHandlers.StageAction("cancelVisit"))
	propGroup.Post("/mark-visited", propertyHandlers.StageAction("markVisited"))
	propGroup.Post("/archive-property", propertyHandlers.StageAction("archive"))
	propGroup.Post("/restore-property", propertyHandlers.StageAction("restore"))

	if db != nil {
		analyzer := &vision.GeminiClient{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		}
		analysisService := &analysissvc.Service{
			Listings:        shared,
			Analyses:        shared,
			Analyzer:        analyzer,
			DefaultLocation: cfg.AnalysisLocation,
		}
		analysisHandlers := &analysishandler.Handlers{Service: analysisService}
		analysisGroup := app.Group("/api/v1/analysis", middleware.RequireAuth())
		analysisGroup.Post("/analyze-windows", analysisHandlers.AnalyzeWindows)
		analysisGroup.Get("/get-analyses/:property_id", analysisHandlers.GetAnalyses)

		// Migration reads whatever local file a previous single-device run
		// left behind on this host.
		migLocal := localstore.New(cfg.LocalStorePath)
		migrationService := &migrationsvc.Service{Local: migLocal, Shared: shared}
		migrationHandlers := &migrationhandler.Handlers{Service: migrationService, Local: migLocal}
		migrationGroup := app.Group("/api/v1/migration", middleware.RequireAuth())
		migrationGroup.Post("/migrate-local", migrationHandlers.MigrateLocal)
		migrationGroup.Get("/local-status", migrationHandlers.LocalStatus)
	}

	return app, db, rdb, nil
}
