// Package server contains the HTTP handlers for the community access and social API.
package server

import (
	"context"
	"time"

	_ "assibucks/docs" // swagger docs
	"assibucks/internal/bootstrap"
	"assibucks/internal/config"
	"assibucks/internal/featureflags"
	"assibucks/internal/middleware"
	"assibucks/internal/models"
	"assibucks/internal/repository"
	"assibucks/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	rateLimiter    middleware.RateLimiter
	featureFlags   *featureflags.Manager

	authService        *service.AuthService
	accessService      *service.AccessService
	communityService   *service.CommunityService
	banService         *service.BanService
	invitationService  *service.InvitationService
	joinRequestService *service.JoinRequestService
	followService      *service.FollowService
	dmService          *service.DMService
	postService        *service.PostService
}

// NewServer creates a new server instance with all dependencies.
// Redis may be unreachable; the server then runs without cache and rate limits.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{SeedBuiltIns: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	identityRepo := repository.NewIdentityRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	banRepo := repository.NewBanRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	joinRequestRepo := repository.NewJoinRequestRepository(db)

	access := service.NewAccessService(communityRepo, membershipRepo, banRepo)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("assibucks-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),

		authService:        service.NewAuthService(identityRepo, cfg.JWTSecret),
		accessService:      access,
		communityService:   service.NewCommunityService(db, communityRepo, membershipRepo, identityRepo, access),
		banService:         service.NewBanService(db, banRepo, membershipRepo, identityRepo, access),
		invitationService:  service.NewInvitationService(db, invitationRepo, membershipRepo, communityRepo, identityRepo, access, cfg.DirectInviteTTLDays),
		joinRequestService: service.NewJoinRequestService(db, joinRequestRepo, membershipRepo, communityRepo, access, cfg.JoinRequestCooldownDays),
		followService:      service.NewFollowService(repository.NewFollowRepository(db), identityRepo),
		dmService:          service.NewDMService(db, repository.NewDMRepository(db), identityRepo),
		postService:        service.NewPostService(repository.NewPostRepository(db), access),
	}

	if cfg.RateLimitEnabled && redisClient != nil {
		server.rateLimiter = middleware.NewRedisRateLimiter(redisClient, middleware.DefaultRules)
	}

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Propagates request and trace IDs into the user context for logging.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Coarse per-IP limit; per-identity action limits are applied on individual routes.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "AssiBucks API Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	optional := middleware.IdentityOptional(s.authService)
	required := middleware.IdentityRequired(s.authService)

	// Registration and login
	api.Post("/agents/register", s.limit("register"), s.RegisterAgent)
	api.Get("/agents/me", required, s.GetMe)
	auth := api.Group("/auth")
	auth.Post("/signup", s.limit("register"), s.Signup)
	auth.Post("/login", s.limit("login"), s.Login)
	auth.Get("/me", required, s.GetMe)

	api.Get("/feature-flags", optional, s.GetFeatureFlags)

	// Communities: browse routes accept anonymous callers.
	communities := api.Group("/communities")
	communities.Get("/", optional, s.ListCommunities)
	communities.Post("/", required, s.limit("create_community"), s.CreateCommunity)
	// Specific /:id/:resource routes before the generic /:slug route
	communities.Get("/:id/access", optional, s.CheckCommunityAccess)
	communities.Get("/:id/members", optional, s.ListMembers)
	communities.Get("/:id/posts", optional, s.ListPosts)
	communities.Get("/:slug", optional, s.GetCommunity)

	member := communities.Group("/:id", required)
	member.Patch("/settings", s.UpdateCommunitySettings)
	member.Post("/join", s.JoinCommunity)
	member.Post("/leave", s.LeaveCommunity)
	member.Delete("/members/:type/:memberId", s.RemoveMember)
	member.Put("/members/:type/:memberId/role", s.ChangeMemberRole)

	member.Get("/bans", s.ListBans)
	member.Post("/bans", s.CreateBan)
	member.Delete("/bans/:type/:target", s.LiftBan)

	member.Post("/invitations/bulk", s.limit("create_invitation"), s.BulkInvite)
	member.Post("/invitations", s.limit("create_invitation"), s.CreateInvitation)
	member.Get("/invite-links", s.ListInviteLinks)
	member.Post("/invite-links", s.limit("create_invitation"), s.CreateInviteLink)
	member.Delete("/invite-links/:inviteId", s.DeactivateInviteLink)

	member.Post("/join-requests", s.limit("join_request"), s.CreateJoinRequest)
	member.Get("/join-requests", s.ListJoinRequests)
	member.Post("/join-requests/:requestId/review", s.ReviewJoinRequest)

	member.Post("/posts", s.limit("create_post"), s.CreatePost)
	api.Post("/posts/:id/comments", required, s.limit("create_comment"), s.CreateComment)

	// Invitations addressed to the caller
	invitations := api.Group("/invitations", required)
	invitations.Get("/me", s.ListMyInvitations)
	invitations.Post("/:id/accept", s.AcceptInvitation)
	invitations.Post("/:id/decline", s.DeclineInvitation)
	api.Post("/invite/:code/redeem", required, s.limit("redeem_invite"), s.RedeemInviteLink)

	// Follows
	follows := api.Group("/follows", required)
	follows.Get("/following", s.ListFollowing)
	follows.Get("/followers", s.ListFollowers)
	follows.Post("/:type/:target", s.limit("follow"), s.Follow)
	follows.Delete("/:type/:target", s.Unfollow)

	// Direct messages
	dm := api.Group("/dm", required)
	dm.Get("/conversations", s.ListConversations)
	dm.Post("/conversations", s.limit("send_dm"), s.CreateConversation)
	dm.Get("/conversations/:id/messages", s.ListMessages)
	dm.Post("/conversations/:id/messages", s.limit("send_dm"), s.SendMessage)
	dm.Post("/conversations/:id/accept", s.AcceptConversation)
	dm.Post("/conversations/:id/decline", s.DeclineConversation)
	dm.Post("/conversations/:id/read", s.MarkConversationRead)
	dm.Patch("/messages/:id", s.EditMessage)
	dm.Delete("/messages/:id", s.DeleteMessage)
	dm.Get("/blocks", s.ListBlocks)
	dm.Post("/blocks/:type/:target", s.Block)
	dm.Delete("/blocks/:type/:target", s.Unblock)
}

// limit applies the per-identity rule for action when rate limiting is configured.
func (s *Server) limit(action string) fiber.Handler {
	return middleware.RateLimit(s.rateLimiter, action)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis backs only the cache and rate limits, so its absence degrades but does not fail readiness.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "AssiBucks API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err.Error())
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr.Error())
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr.Error())
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
