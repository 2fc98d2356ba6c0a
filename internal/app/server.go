// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"voucher-portal/internal/config"
	"voucher-portal/internal/db"
	authHandler "voucher-portal/internal/handlers/auth"
	navHandler "voucher-portal/internal/handlers/navigation"
	portalHandler "voucher-portal/internal/handlers/portal"
	wsHandler "voucher-portal/internal/handlers/websocket"
	"voucher-portal/internal/middleware"
	xerrors "voucher-portal/internal/pkg/errors"
	"voucher-portal/internal/pkg/permission"
	"voucher-portal/internal/pkg/session"
	"voucher-portal/internal/pkg/storage"
	"voucher-portal/internal/websocket"
	wsHandlers "voucher-portal/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg        config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	httpServer *http.Server

	manager *session.Manager
	hub     *websocket.Hub

	stopHub context.CancelFunc
	closers []func()
}

// NewServer opens the configured session storage, loads the access tables
// and wires the gateway. The websocket hub starts running immediately.
func NewServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	// ----- Session storage -----
	store, err := s.openStore(ctx)
	if err != nil {
		s.close()
		return nil, err
	}
	logger.Info("session storage ready", zap.String("driver", cfg.StorageDriver))

	// ----- Access tables -----
	tables, err := loadTables(cfg.AccessTablePath)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to load access tables: %w", err)
	}
	resolver := permission.NewResolver(tables)

	// ----- Session Manager -----
	s.manager = session.NewManager(store, logger)

	// ----- WebSocket Hub -----
	s.hub = websocket.NewHub(s.manager, logger)
	s.hub.RegisterHandler(wsHandlers.NewSessionHandler(resolver))

	hubCtx, stopHub := context.WithCancel(context.Background())
	s.stopHub = stopHub
	go s.hub.Run(hubCtx)

	// ----- Router -----
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	s.engine = gin.New()
	SetupRouter(s.engine, logger, cfg.AllowedOrigins, &Handlers{
		AuthHandler:    authHandler.NewAuthHandler(logger),
		NavHandler:     navHandler.NewNavigationHandler(),
		PortalHandler:  portalHandler.NewPortalHandler(cfg.PortalStaticDir),
		WSHandler:      wsHandler.NewWebSocketHandler(s.hub, cfg.AllowedOrigins, logger),
		Scope:          middleware.Scope(s.manager, cfg.CookieSecure),
		AuthMiddleware: middleware.NewAuthMiddleware(resolver, logger),
	})

	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server starting", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP requests, stops the hub and closes storage.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) close() {
	if s.stopHub != nil {
		s.stopHub()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func (s *Server) openStore(ctx context.Context) (storage.Store, error) {
	switch s.cfg.StorageDriver {
	case "memory", "":
		return storage.NewMemoryStore(s.cfg.SessionIdleTTL), nil

	case "redis":
		client, err := db.NewRedisClient(db.RedisConfig{
			ClusterMode: s.cfg.RedisCluster,
			Addresses:   s.cfg.RedisAddrs,
			Password:    s.cfg.RedisPass,
			PoolSize:    10,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		return storage.NewRedisStore(client, s.cfg.SessionIdleTTL), nil

	case "postgres":
		pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		s.closers = append(s.closers, pool.Close)

		store := storage.NewPostgresStore(pool, s.cfg.StorageTable)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare storage table: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: %q", xerrors.ErrUnknownDriver, s.cfg.StorageDriver)
	}
}

func loadTables(path string) (*permission.Tables, error) {
	if path == "" {
		return permission.DefaultTables()
	}
	return permission.LoadTables(path)
}
