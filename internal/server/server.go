package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/GriffinCanCode/apcore/internal/infrastructure/config"
	"github.com/GriffinCanCode/apcore/internal/infrastructure/logging"
	"github.com/GriffinCanCode/apcore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/apcore/internal/installer"
	"github.com/GriffinCanCode/apcore/internal/providers/system"
	"github.com/GriffinCanCode/apcore/internal/shell"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Sessions is the session manager surface the API needs.
type Sessions interface {
	Get() *shell.Session
	Refresh(ctx context.Context) *shell.Session
}

// Modules lists and toggles modules.
type Modules interface {
	List() string
	Toggle(id string, enable bool) bool
	Uninstall(id string) bool
}

// System runs capability checks and device actions.
type System interface {
	GlobalNamespaceEnabled() bool
	SetGlobalNamespaceEnabled(enabled bool)
	Check() system.Capabilities
	RestartApp(pkg string) bool
	Reboot(reason string) bool
	Info() system.HostInfo
}

// Installer installs packages.
type Installer interface {
	Install(ctx context.Context, src io.Reader, kind installer.Kind, obs installer.Observer) bool
}

// Deps are the components served by the API.
type Deps struct {
	Sessions  Sessions
	Modules   Modules
	System    System
	Installer Installer
}

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	deps    Deps
	cfg     config.ServerConfig
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New builds the router.
func New(deps Deps, cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("api")

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(CORS(DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(RateLimit(RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	s := &Server{
		router:  router,
		deps:    deps,
		cfg:     cfg.Server,
		logger:  logger,
		metrics: metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)

	api := s.router.Group("/")
	if s.cfg.Token != "" {
		api.Use(BearerAuth(s.cfg.Token))
	}

	// Session
	api.GET("/status", s.status)
	api.POST("/session/refresh", s.refreshSession)

	// Modules
	api.GET("/modules", s.listModules)
	api.POST("/modules/:id/enable", s.toggleModule(true))
	api.POST("/modules/:id/disable", s.toggleModule(false))
	api.DELETE("/modules/:id", s.uninstallModule)
	api.GET("/ws/install", s.installModule)

	// Device
	api.GET("/namespace", s.getNamespace)
	api.PUT("/namespace", s.setNamespace)
	api.GET("/capabilities", s.capabilities)
	api.POST("/apps/:package/restart", s.restartApp)
	api.POST("/reboot", s.reboot)

	api.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
