package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-chat/config"
	"market-chat/internal/handler"
	"market-chat/internal/metrics"
	"market-chat/internal/middleware"
	"market-chat/internal/redis"
	"market-chat/internal/services"
	"market-chat/internal/transport/httpdto"
	"market-chat/internal/websocket"
	"market-chat/pkg/database"
	"market-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	health     func(ctx context.Context) error
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Service *handler.ServiceHandler
	Chat    *handler.ChatHandler
	Socket  *websocket.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           corsHandler(engine),
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
		health: database.HealthCheck,
	}
}

// Handler is the full HTTP stack including CORS.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// SetHealthCheck replaces the database ping used by /health.
func (s *Server) SetHealthCheck(fn func(ctx context.Context) error) {
	s.health = fn
}

// SetupRoutes mounts every endpoint. limiter may be nil when Redis is off.
func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, limiter *redis.RateLimiter) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(metrics.GinMiddleware())
	s.engine.Use(middleware.ErrorHandler(s.logger))
	s.engine.Use(middleware.AuthRateLimitMiddleware(limiter))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	requireAuth := middleware.AuthMiddleware(authService)
	api := s.engine.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/refresh", handlers.Auth.Refresh)
		auth.POST("/logout", requireAuth, handlers.Auth.Logout)
	}

	users := api.Group("/users", requireAuth)
	{
		users.GET("/me", handlers.User.Me)
		users.PATCH("/me", handlers.User.UpdateMe)
	}

	svc := api.Group("/services")
	{
		svc.GET("", handlers.Service.List)
		svc.GET("/:id", handlers.Service.Get)
		svc.POST("", requireAuth, handlers.Service.Create)
		svc.PUT("/:id", requireAuth, handlers.Service.Update)
		svc.DELETE("/:id", requireAuth, handlers.Service.Delete)
		svc.POST("/:id/complete", requireAuth, handlers.Service.Complete)
		svc.POST("/:id/image", requireAuth, handlers.Service.PresignImage)
	}

	// The socket authenticates from its own query token.
	api.GET("/chats/socketio", handlers.Socket.Connect)

	chats := api.Group("/chats", requireAuth)
	{
		chats.GET("", handlers.Chat.ListRooms)
		chats.POST("/room", handlers.Chat.OpenRoom)
		chats.DELETE("/room", handlers.Chat.ExitRoom)
		chats.POST("/room/accept", handlers.Chat.AcceptRoom)
		chats.POST("/room/decline", handlers.Chat.DeclineRoom)
		chats.POST("/room/block", handlers.Chat.BlockUser)
		chats.GET("/:id", handlers.Chat.History)
		chats.GET("/:id/presence", handlers.Chat.Presence)
	}
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
