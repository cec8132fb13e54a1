package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/aitrace/internal/api"
	"github.com/jackzampolin/aitrace/internal/classify"
	"github.com/jackzampolin/aitrace/internal/config"
	"github.com/jackzampolin/aitrace/internal/gateway"
	"github.com/jackzampolin/aitrace/internal/llmcall"
	"github.com/jackzampolin/aitrace/internal/providers"
	"github.com/jackzampolin/aitrace/internal/server/endpoints"
	"github.com/jackzampolin/aitrace/internal/svcctx"
	"github.com/jackzampolin/aitrace/internal/traces"
)

// Server is the main aitrace HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	registry   *providers.Registry
	gateway    *gateway.ProviderGateway
	detector   *classify.Detector
	store      *llmcall.Store
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: server.host from config)
	Host string
	// Port is the port to listen on (default: server.port from config)
	Port string
	// ConfigManager provides configuration with hot-reload support.
	// Defaults apply when nil.
	ConfigManager *config.Manager
	// Registry overrides the provider registry built from config.
	Registry *providers.Registry
	// SwaggerSpecPath serves a swagger.json from disk instead of the registered doc
	SwaggerSpecPath string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	appCfg := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		appCfg = cfg.ConfigManager.Get()
	}
	if cfg.Host == "" {
		cfg.Host = appCfg.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = appCfg.Server.Port
	}

	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistry()
		registry.SetLogger(cfg.Logger)
		registry.Reload(appCfg.ToProviderRegistryConfig())
	}

	store := llmcall.NewStore(appCfg.LLMCalls.Capacity)
	gw := gateway.New(gateway.Config{
		Registry: registry,
		Recorder: llmcall.NewRecorder(store, cfg.Logger),
		Logger:   cfg.Logger,
		Provider: appCfg.Defaults.LLMProvider,
	})
	if !gw.Ready() {
		cfg.Logger.Warn("default model provider not registered; detection disabled until configured",
			"provider", appCfg.Defaults.LLMProvider, "registered", registry.ListLLM())
	}

	s := &Server{
		registry:  registry,
		gateway:   gw,
		detector:  classify.NewDetector(gw, appCfg.DetectorConfig()),
		store:     store,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	s.services = &svcctx.Services{
		Registry:      s.registry,
		Gateway:       s.gateway,
		Detector:      s.detector,
		Annotator:     traces.New(traces.Options{LongLineThreshold: appCfg.Annotate.LongLineThreshold}),
		LLMCallStore:  s.store,
		ConfigManager: cfg.ConfigManager,
		Logger:        s.logger,
	}

	// Watch for config changes
	if cfg.ConfigManager != nil {
		threshold := appCfg.Annotate.LongLineThreshold
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			if cfg.Registry == nil {
				registry.Reload(c.ToProviderRegistryConfig())
			}
			gw.SetProvider(c.Defaults.LLMProvider)
			s.detector.SetConfig(c.DetectorConfig())
			store.SetCapacity(c.LLMCalls.Capacity)
			if c.Annotate.LongLineThreshold != threshold {
				cfg.Logger.Warn("annotate.long_line_threshold changes apply after restart")
			}
			cfg.Logger.Info("configuration reloaded", "provider", c.Defaults.LLMProvider, "ready", gw.Ready())
		})
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{SwaggerSpecPath: cfg.SwaggerSpecPath}) {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux)
	s.handler = s.recoverer(s.logRequests(s.cors(s.withServices(mux))))

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()
	defer s.setNotRunning()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String(), "provider", s.gateway.Provider())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			s.logger.Info("shutdown signal received")
		}
		return s.shutdown()
	})

	return g.Wait()
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Gateway returns the model gateway.
func (s *Server) Gateway() *gateway.ProviderGateway {
	return s.gateway
}

// LLMCalls returns the call history store.
func (s *Server) LLMCalls() *llmcall.Store {
	return s.store
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
