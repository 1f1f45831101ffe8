package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/urna-api/internal/auth"
	"github.com/gravadigital/urna-api/internal/config"
	"github.com/gravadigital/urna-api/internal/handlers"
	"github.com/gravadigital/urna-api/internal/logger"
	"github.com/gravadigital/urna-api/internal/metrics"
	"github.com/gravadigital/urna-api/internal/middleware/events"
	"github.com/gravadigital/urna-api/internal/middleware/identity"
	"github.com/gravadigital/urna-api/internal/notify"
	"github.com/gravadigital/urna-api/internal/services"
	"github.com/gravadigital/urna-api/internal/storage/repository"
)

// Dependencies are the collaborators the router is built from
type Dependencies struct {
	Store    *repository.Container
	Services *services.Services
	Events   notify.Subscriber
	Metrics  *metrics.MetricService
	Verifier identity.TokenVerifier
	Keys     identity.KeyChecker
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	deps       Dependencies
}

// New creates a new server instance
func New(cfg *config.Config, deps Dependencies) *Server {
	if deps.Verifier == nil {
		deps.Verifier = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	}
	if deps.Keys == nil {
		deps.Keys = auth.NewServiceKeyChecker(cfg.Auth.ServiceKeyHash)
	}
	return &Server{
		config: cfg,
		deps:   deps,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	router := s.Router()

	s.httpServer = &http.Server{
		Addr:    ":" + s.config.Server.Port,
		Handler: router,

		// Timeouts seguros según estándares de Go. No WriteTimeout: the
		// event stream keeps its response open.
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Get().Info("Starting HTTP server", "port", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Router configures the HTTP router with middleware and routes
func (s *Server) Router() *gin.Engine {
	// Configurar Gin
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if s.config.Server.GinMode != "" {
		gin.SetMode(s.config.Server.GinMode)
	}

	router := gin.New()

	// Middleware básico
	router.Use(gin.Recovery())
	router.Use(events.CreateEvent())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	origins := s.config.AllowedOrigins()
	if len(origins) == 1 && origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = s.config.AllowedMethods()
	corsConfig.AllowHeaders = s.config.AllowedHeaders()
	corsConfig.ExposeHeaders = []string{events.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	router.Use(identity.Authenticate(s.deps.Verifier, s.deps.Keys))

	// Health check
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Urna API is running",
			"status":  "healthy",
		})
	})
	router.GET("/health", s.health)
	if s.deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	s.setupAPIRoutes(router)

	return router
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.deps.Store.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": s.deps.Store.Info(),
	})
}

// setupAPIRoutes configures all API routes
func (s *Server) setupAPIRoutes(router *gin.Engine) {
	electionHandler := handlers.NewElectionHandler(s.deps.Services)
	voteHandler := handlers.NewVoteHandler(s.deps.Services)
	tallyHandler := handlers.NewTallyHandler(s.deps.Services)
	streamHandler := handlers.NewStreamHandler(s.deps.Services, s.deps.Events, s.config.Notify.SSEPingInterval)

	api := router.Group("/api")
	{
		// public
		api.GET("/receipts/:receipt", voteHandler.VerifyReceipt)

		elections := api.Group("/elections", identity.RequireSession())
		{
			elections.GET("", electionHandler.ListElections)
			elections.GET("/:id", electionHandler.GetElection)
			elections.GET("/:id/results", electionHandler.GetResults)
			elections.GET("/:id/stream", streamHandler.Stream)
			elections.POST("/:id/votes", voteHandler.CastVote)
			elections.GET("/:id/my-ballot", voteHandler.GetMyBallot)
			elections.GET("/:id/has-voted", voteHandler.HasVoted)
		}

		// role checks happen in the policy evaluator
		admin := api.Group("/admin", identity.RequireSession())
		{
			admin.POST("/elections", electionHandler.CreateElection)
			admin.PATCH("/elections/:id", electionHandler.UpdateElection)
			admin.POST("/elections/:id/status", electionHandler.ChangeStatus)
			admin.POST("/elections/:id/lists", electionHandler.CreateList)
			admin.GET("/elections/:id/audit", tallyHandler.Audit)
			admin.POST("/elections/:id/simulate", tallyHandler.Simulate)
			admin.POST("/elections/:id/reset", tallyHandler.Reset)

			admin.PATCH("/lists/:id", electionHandler.UpdateList)
			admin.DELETE("/lists/:id", electionHandler.DeleteList)
			admin.POST("/lists/:id/candidates", electionHandler.CreateCandidate)

			admin.PATCH("/candidates/:id", electionHandler.UpdateCandidate)
			admin.DELETE("/candidates/:id", electionHandler.DeleteCandidate)
		}
	}
}
