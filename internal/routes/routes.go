package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"clinic-app-server/internal/agenda"
	"clinic-app-server/internal/booking"
	"clinic-app-server/internal/config"
	"clinic-app-server/internal/handlers"
	"clinic-app-server/internal/identity"
	"clinic-app-server/internal/metrics"
	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/notes"
	"clinic-app-server/internal/notify"
	"clinic-app-server/internal/storage"
	"clinic-app-server/internal/store"
)

// Deps are the long-lived collaborators the route table wires together.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Redis    *redis.Client
	Storage  storage.Storage
	Mailer   notify.EmailSender
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// crud is the handler set of one generic resource.
type crud interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// SetupRoutes configures the application routes. The returned dispatcher
// owns the in-flight notification goroutines; wait on it at shutdown.
func SetupRoutes(router *gin.Engine, deps Deps) *notify.Dispatcher {
	db, cfg, logger := deps.DB, deps.Config, deps.Logger

	users := store.NewUsers(db)
	refs := store.NewReferences(db)
	appointments := store.NewAppointments(db)
	resolver := identity.NewResolver(users, cfg.Registration.PatientGroupID, cfg.Registration.AtlasIDPrefix)
	dispatcher := notify.NewDispatcher(deps.Mailer, users, deps.Metrics, logger)

	gateway := booking.NewHTTPGateway(cfg.Payment, cfg.Booking.FeeMinor, &http.Client{Timeout: 15 * time.Second})
	bookingService := booking.NewService(resolver, refs, booking.NewRedisCache(deps.Redis), gateway,
		cfg.Booking.CacheTTL, deps.Metrics, logger)
	noteService := notes.NewService(store.NewNoteRepository(db), deps.Storage, cfg.Storage.MaxUploadBytes,
		deps.Metrics, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg, logger)
	userHandler := handlers.NewUserHandler(users, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	noteHandler := handlers.NewNoteHandler(noteService, logger)
	appointmentHandler := handlers.NewAppointmentHandler(appointments, agenda.NewService(db, users),
		resolver, refs, dispatcher, deps.Storage, cfg.Storage.MaxUploadBytes, logger)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
		// Patients book without an account; they are matched by contact details.
		public.POST("/appointments/book", bookingHandler.Book)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		private.GET("/doctors", userHandler.GetDoctors)
		private.POST("/notes", noteHandler.SaveNote)

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("/all", appointmentHandler.All)
			appointmentRoutes.GET("/upcoming", appointmentHandler.Upcoming)
			appointmentRoutes.GET("/doctor-stats", appointmentHandler.DoctorStats)
			appointmentRoutes.GET("/mine", appointmentHandler.Mine)
			appointmentRoutes.POST("/create", appointmentHandler.CreateForPatient)
		}
		mount(appointmentRoutes, appointmentHandler)

		mount(private.Group("/patient-directories"),
			handlers.NewResource("Notes", store.NewPatientDirectories(db), logger))
		mount(private.Group("/files"),
			handlers.NewResource("Files", store.NewFiles(db), logger))
		mount(private.Group("/patient-directory-exercises"),
			handlers.NewResource("Note exercises", store.NewPatientDirectoryExercises(db), logger))

		// Catalogue entries are maintained by admins and front-desk staff.
		catalogue := middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff)
		mount(private.Group("/procedures"),
			handlers.NewResource("Procedures", store.NewProcedures(db), logger), catalogue)
		mount(private.Group("/taxes"),
			handlers.NewResource("Taxes", store.NewTaxes(db), logger), catalogue)
		mount(private.Group("/categories"),
			handlers.NewResource("Categories", store.NewCategories(db), logger), catalogue)
		mount(private.Group("/note-categories"),
			handlers.NewResource("Note categories", store.NewNoteCategories(db), logger), catalogue)
		mount(private.Group("/exercises"),
			handlers.NewResource("Exercises", store.NewExercises(db), logger), catalogue)
	}

	if cfg.Storage.Backend != "s3" && strings.HasPrefix(cfg.Storage.UploadsURL, "/") {
		router.Static(cfg.Storage.UploadsURL, cfg.Storage.UploadsRoot)
	}

	router.GET("/health", health(db, deps.Redis))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	return dispatcher
}

// mount registers list/create/retrieve/update/delete for one resource.
// write guards the mutating routes when given.
func mount(group *gin.RouterGroup, h crud, write ...gin.HandlerFunc) {
	with := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, write...), fn)
	}
	group.GET("", h.List)
	group.POST("", with(h.Create)...)
	group.GET("/:id", h.Get)
	group.PUT("/:id", with(h.Update)...)
	group.PATCH("/:id", with(h.Update)...)
	group.DELETE("/:id", with(h.Delete)...)
}

func health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{"database": "UP", "cache": "UP"}
		status := http.StatusOK

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			checks["database"] = "DOWN"
			status = http.StatusServiceUnavailable
		}
		if rdb != nil {
			if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
				checks["cache"] = "DOWN"
				status = http.StatusServiceUnavailable
			}
		}

		state := "UP"
		if status != http.StatusOK {
			state = "DOWN"
		}
		c.JSON(status, gin.H{"status": state, "checks": checks})
	}
}
