package server

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-relay/internal/analytics"
	"github.com/nulzo/model-relay/internal/config"
	"github.com/nulzo/model-relay/internal/relay"
	"github.com/nulzo/model-relay/internal/server/validator"
	"go.uber.org/zap"
)

// Deps are the components the HTTP surface serves. Journal and Analytics
// are nil when the request journal is disabled.
type Deps struct {
	Engine    *relay.Engine
	Tables    relay.TableSource
	Journal   analytics.Ingestor
	Analytics analytics.Service
}

type Server struct {
	router *gin.Engine
	config *config.Config
	logger *zap.Logger
	deps   Deps
}

func New(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	if cfg.Server.Env == "production" && !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.InitValidator()

	engine := gin.New()
	engine.Use(ginzap.RecoveryWithZap(logger, true))

	s := &Server{
		router: engine,
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
