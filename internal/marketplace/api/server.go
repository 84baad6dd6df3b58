package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/api/handlers"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/config"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/metrics"
	"github.com/bountyhive/bountyhive-backend/pkg/logging"
)

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
}

func NewServer(deps handlers.Dependencies, logger logging.Logger) *Server {
	if !config.IsDevMode() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	srv := &Server{
		router: router,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", config.GetAPIPort()),
			Handler: router,
		},
	}

	srv.setupRoutes(deps)
	return srv
}

func (s *Server) setupRoutes(deps handlers.Dependencies) {
	handler := handlers.NewHandler(deps)
	collector := metrics.NewCollector()
	collector.Start()

	s.router.Use(gin.Recovery())
	s.router.Use(CORSMiddleware())
	s.router.Use(LoggingMiddleware(s.logger))

	s.router.GET("/status", handler.HandleStatus)
	s.router.GET("/metrics", gin.WrapH(collector.Handler()))

	api := s.router.Group("/api")
	{
		api.POST("/tasks", handler.CreateTask)
		api.GET("/tasks/:id", handler.GetTask)
		api.GET("/tasks/:id/submissions", handler.ListSubmissions)
		api.POST("/tasks/:id/submissions", handler.CreateSubmission)
		api.GET("/tasks/:id/challenges", handler.ListChallenges)
		api.POST("/tasks/:id/challenges", handler.FileChallenge)
		api.GET("/tasks/:id/ballots", handler.GetBallots)
		api.GET("/tasks/:id/settlement", handler.GetSettlement)

		api.POST("/submissions/:id/gate", handler.RecordGateResult)
		api.POST("/submissions/:id/score", handler.RecordScore)

		api.POST("/ballots/:id/cast", handler.CastBallot)

		api.POST("/users/:id/register", handler.RegisterUser)
		api.GET("/users/:id/trust", handler.GetUserTrust)
		api.GET("/users/:id/trust/events", handler.GetTrustEvents)
	}
}

// Start begins serving requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("Marketplace API listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
