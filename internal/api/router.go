package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/app"
	iauth "github.com/pennlabs/clubs/internal/auth"
	"github.com/pennlabs/clubs/internal/cache"
	"github.com/pennlabs/clubs/internal/handlers"
	"github.com/pennlabs/clubs/internal/middleware"
	"github.com/pennlabs/clubs/internal/notifications"
	"github.com/pennlabs/clubs/internal/permissions"
	"github.com/pennlabs/clubs/internal/services"
	"github.com/pennlabs/clubs/pkg/logger"
	"github.com/pennlabs/clubs/pkg/mail"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, mailer mail.Mailer) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	checker, err := permissions.NewChecker(db)
	if err != nil {
		return nil, err
	}

	dispatcher, err := notifications.NewDispatcher(db, mailer, cfg.Server.FrontendURL, logger.WithModule("notifications"))
	if err != nil {
		return nil, err
	}

	store := cache.NewDatabaseStore(db)

	// Services
	userSvc, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	clubSvc, err := services.NewClubService(db, checker, dispatcher)
	if err != nil {
		return nil, err
	}
	memberSvc, err := services.NewMembershipService(db, checker)
	if err != nil {
		return nil, err
	}
	inviteSvc, err := services.NewInviteService(db, dispatcher)
	if err != nil {
		return nil, err
	}
	requestSvc, err := services.NewRequestService(db, dispatcher)
	if err != nil {
		return nil, err
	}
	eventSvc, err := services.NewEventService(db, store, checker)
	if err != nil {
		return nil, err
	}
	questionSvc, err := services.NewQuestionService(db, dispatcher)
	if err != nil {
		return nil, err
	}
	noteSvc, err := services.NewNoteService(db, checker)
	if err != nil {
		return nil, err
	}
	engageSvc, err := services.NewEngagementService(db)
	if err != nil {
		return nil, err
	}
	analyticsSvc, err := services.NewAnalyticsService(db)
	if err != nil {
		return nil, err
	}
	assetSvc, err := services.NewAssetService(db, cfg.Assets.Dir)
	if err != nil {
		return nil, err
	}
	itemSvc, err := services.NewClubItemService(db)
	if err != nil {
		return nil, err
	}
	lookupSvc, err := services.NewLookupService(db)
	if err != nil {
		return nil, err
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(userSvc, jwt)
	clubHandler := handlers.NewClubHandler(clubSvc, checker, assetSvc, analyticsSvc, engageSvc, noteSvc, cfg.Server.FrontendURL)
	memberHandler := handlers.NewMemberHandler(clubSvc, memberSvc, checker)
	inviteHandler := handlers.NewInviteHandler(clubSvc, inviteSvc, userSvc, checker)
	requestHandler := handlers.NewRequestHandler(clubSvc, requestSvc, userSvc, checker)
	eventHandler := handlers.NewEventHandler(clubSvc, eventSvc, assetSvc, checker)
	questionHandler := handlers.NewQuestionHandler(clubSvc, questionSvc, checker)
	noteHandler := handlers.NewNoteHandler(clubSvc, noteSvc, checker)
	itemHandler := handlers.NewClubItemHandler(clubSvc, itemSvc, checker)
	assetHandler := handlers.NewAssetHandler(clubSvc, assetSvc, checker)
	engageHandler := handlers.NewEngagementHandler(clubSvc, engageSvc, checker)
	lookupHandler := handlers.NewLookupHandler(lookupSvc, checker)
	userHandler := handlers.NewUserHandler(userSvc, memberSvc, checker)

	requireAuth := middleware.Auth(jwt)

	// Every API route resolves the caller when a token is present; handlers
	// decide how much an anonymous viewer may see.
	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(jwt))

	// Auth
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", requireAuth, authHandler.Me)

	// Clubs
	clubs := api.Group("/clubs")
	{
		clubs.GET("", clubHandler.List)
		clubs.POST("", requireAuth, clubHandler.Create)
		clubs.GET("/directory", clubHandler.Directory)

		club := clubs.Group("/:code")
		{
			club.GET("", clubHandler.Retrieve)
			club.PATCH("", requireAuth, clubHandler.Update)
			club.DELETE("", requireAuth, clubHandler.Delete)
			club.GET("/children", clubHandler.Children)
			club.GET("/parents", clubHandler.Parents)
			club.GET("/qr", clubHandler.QR)
			club.GET("/analytics", requireAuth, clubHandler.Analytics)
			club.GET("/analytics/pie", requireAuth, clubHandler.AnalyticsPieCharts)
			club.GET("/subscription", requireAuth, clubHandler.Subscription)
			club.POST("/upload", requireAuth, clubHandler.UploadLogo)
			club.POST("/upload_file", requireAuth, clubHandler.UploadFile)

			club.GET("/members", memberHandler.List)
			club.GET("/members/:username", memberHandler.Retrieve)
			club.PATCH("/members/:username", requireAuth, memberHandler.Update)
			club.DELETE("/members/:username", requireAuth, memberHandler.Delete)

			club.GET("/invites", requireAuth, inviteHandler.List)
			club.POST("/invites", requireAuth, inviteHandler.Create)
			club.POST("/invites/mass", requireAuth, inviteHandler.MassInvite)
			club.POST("/invites/:invite/resend", requireAuth, inviteHandler.Resend)
			club.POST("/invites/:invite/claim", requireAuth, inviteHandler.Claim)
			club.PUT("/invites/:invite", requireAuth, inviteHandler.Claim)
			club.PATCH("/invites/:invite", requireAuth, inviteHandler.Claim)
			club.DELETE("/invites/:invite", requireAuth, inviteHandler.Delete)

			club.GET("/requests", requireAuth, requestHandler.ListForClub)
			club.POST("/requests", requireAuth, requestHandler.Create)
			club.DELETE("/requests", requireAuth, requestHandler.Withdraw)
			club.POST("/requests/:username/accept", requireAuth, requestHandler.Accept)

			club.GET("/events", eventHandler.ListForClub)
			club.POST("/events", requireAuth, eventHandler.Create)
			club.PATCH("/events/:event", requireAuth, eventHandler.Update)
			club.DELETE("/events/:event", requireAuth, eventHandler.Delete)
			club.POST("/events/:event/upload", requireAuth, eventHandler.Upload)

			club.GET("/questions", questionHandler.List)
			club.POST("/questions", requireAuth, questionHandler.Create)
			club.PATCH("/questions/:question", requireAuth, questionHandler.Update)
			club.DELETE("/questions/:question", requireAuth, questionHandler.Delete)

			club.GET("/notes", noteHandler.List)
			club.POST("/notes", requireAuth, noteHandler.Create)
			club.DELETE("/notes/:note", requireAuth, noteHandler.Delete)
			club.GET("/notes_about", clubHandler.NotesAbout)

			club.GET("/testimonials", itemHandler.ListTestimonials)
			club.POST("/testimonials", requireAuth, itemHandler.CreateTestimonial)
			club.DELETE("/testimonials/:testimonial", requireAuth, itemHandler.DeleteTestimonial)

			club.GET("/advisors", itemHandler.ListAdvisors)
			club.POST("/advisors", requireAuth, itemHandler.CreateAdvisor)
			club.PATCH("/advisors/:advisor", requireAuth, itemHandler.UpdateAdvisor)
			club.DELETE("/advisors/:advisor", requireAuth, itemHandler.DeleteAdvisor)

			club.GET("/assets", requireAuth, assetHandler.List)
			club.GET("/assets/:asset", requireAuth, assetHandler.Download)
			club.DELETE("/assets/:asset", requireAuth, assetHandler.Delete)

			club.POST("/favorite", requireAuth, engageHandler.Favorite)
			club.DELETE("/favorite", requireAuth, engageHandler.Unfavorite)
			club.POST("/subscribe", requireAuth, engageHandler.Subscribe)
			club.DELETE("/subscribe", requireAuth, engageHandler.Unsubscribe)
			club.POST("/visit", requireAuth, engageHandler.Visit)
		}
	}

	// Global event listings
	events := api.Group("/events")
	{
		events.GET("", eventHandler.ListGlobal)
		events.GET("/fair", eventHandler.Fair)
		events.GET("/live", eventHandler.Live)
		events.GET("/upcoming", eventHandler.Upcoming)
		events.GET("/ended", eventHandler.Ended)
		events.GET("/owned", requireAuth, eventHandler.Owned)
	}

	// Vocabulary tables
	api.GET("/tags", lookupHandler.Tags)
	api.GET("/badges", lookupHandler.Badges)
	api.GET("/schools", lookupHandler.Schools)
	api.POST("/schools", requireAuth, lookupHandler.CreateSchool)
	api.GET("/majors", lookupHandler.Majors)
	api.POST("/majors", requireAuth, lookupHandler.CreateMajor)
	api.GET("/years", lookupHandler.Years)
	api.POST("/years", requireAuth, lookupHandler.CreateYear)
	api.GET("/note_tags", lookupHandler.NoteTags)

	// Per-user listings
	api.GET("/favorites", requireAuth, engageHandler.ListFavorites)
	api.GET("/subscriptions", requireAuth, engageHandler.ListSubscriptions)
	api.GET("/memberships", requireAuth, userHandler.Memberships)
	api.GET("/requests", requireAuth, requestHandler.ListOwn)

	// Profile and accounts
	api.GET("/settings", requireAuth, userHandler.Settings)
	api.PATCH("/settings", requireAuth, userHandler.UpdateSettings)
	api.GET("/users/:username", requireAuth, userHandler.Retrieve)
	api.GET("/permissions", requireAuth, userHandler.Permissions)

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
