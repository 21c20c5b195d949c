package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"tourgate/internal/chat"
	"tourgate/internal/config"
	"tourgate/internal/fetch"
	"tourgate/internal/logging"
	"tourgate/internal/mcp"
	"tourgate/internal/metrics"
	"tourgate/internal/quota"
)

// Server hosts both gateway transports plus the operator endpoints.
type Server struct {
	cfg        *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	chatEngine *chat.Engine
	fetcher    *fetch.Client
	mcpHandler *mcp.Handler
	quota      *quota.Lazy
	version    string
	logger     logging.Logger
}

// New wires the router. Both transports share one executor underneath, so the
// tool catalog cannot drift between them.
func New(cfg *config.Config, chatEngine *chat.Engine, fetcher *fetch.Client, mcpHandler *mcp.Handler, quotaLazy *quota.Lazy, version string) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:        cfg,
		chatEngine: chatEngine,
		fetcher:    fetcher,
		mcpHandler: mcpHandler,
		quota:      quotaLazy,
		version:    version,
		logger:     logging.NewComponentLogger("Server"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.AllowedOrigins) == 1 && cfg.Server.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept-Language"}
	corsMW := cors.New(corsConfig)

	engine.POST("/api/chat", corsMW, s.handleChat)
	engine.OPTIONS("/api/chat", corsMW)

	// The protocol transport manages its own CORS and method handling.
	engine.Any("/api/mcp", gin.WrapH(mcpHandler))
	engine.GET("/api/mcp/health", s.handleMCPHealth)

	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.engine = engine
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully and closes
// every open protocol session.
func (s *Server) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		s.logger.Info("Listening on %s (mcp=%s)", s.cfg.Server.Addr(), s.mcpHandler.TransportMode())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.mcpHandler.CloseAll()
		if err := s.quota.Close(shutdownCtx); err != nil {
			s.logger.Warn("Quota store close failed: %v", err)
		}
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": mcp.ServerName,
		"version": s.version,
	})
}

func (s *Server) handleMCPHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.mcpHandler.Health())
}
