package server

import (
	"github.com/nulzo/model-relay/internal/server/middleware"
	v1 "github.com/nulzo/model-relay/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	if s.config.Tracing.Enabled {
		s.router.Use(middleware.Tracing(s.config.Tracing.ServiceName))
	}
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.ErrorHandler(s.logger))

	health := v1.NewHealthHandler(s.deps.Tables)
	s.router.GET("/health", health.Health)

	s.router.GET("/", v1.Root)
	s.router.GET("/v1", v1.Index)

	api := s.router.Group("/v1")
	{
		models := v1.NewModelHandler(s.deps.Tables)
		api.GET("/models", models.ListModels)

		chat := v1.NewChatHandler(s.deps.Engine, s.deps.Journal, s.logger)
		api.POST("/chat/completions", chat.CreateCompletion)
	}

	if s.deps.Analytics != nil {
		usage := v1.NewAnalyticsHandler(s.deps.Analytics)
		admin := s.router.Group("/admin")
		admin.GET("/usage", usage.GetUsage)
		admin.GET("/requests", usage.GetRecent)
	}
}
