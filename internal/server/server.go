package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/boyl/lighteddjango/internal/config"
	"github.com/boyl/lighteddjango/internal/redis"
	"github.com/boyl/lighteddjango/internal/relay"
	"github.com/boyl/lighteddjango/internal/signing"
)

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	router      *relay.Router
	registry    *relay.Registry
	verifier    *signing.WebhookVerifier
	upgrader    websocket.Upgrader
	limiter     *GlobalConnectionLimiter
	rateLimiter *ConnectionRateLimiter
	rdb         *goredis.Client
	instances   *redis.InstanceRegistry
	startTime   time.Time
}

func NewServer(
	cfg *config.Config,
	router *relay.Router,
	registry *relay.Registry,
	verifier *signing.WebhookVerifier,
	rdb *goredis.Client,
	instances *redis.InstanceRegistry,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:     e,
		config:   cfg,
		router:   router,
		registry: registry,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     NewCheckOrigin(cfg.AllowedHostList(), cfg.Debug),
		},
		limiter:     NewGlobalConnectionLimiter(cfg.MaxConnections),
		rateLimiter: NewConnectionRateLimiter(cfg.ConnectsPerIP, cfg.ConnectsPerIPCap),
		rdb:         rdb,
		instances:   instances,
		startTime:   time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
