package main

import (
	"context"
	"log"
	"time"

	"market-chat/config"
	"market-chat/internal/handler"
	"market-chat/internal/jobs"
	"market-chat/internal/redis"
	"market-chat/internal/repository"
	"market-chat/internal/server"
	"market-chat/internal/services"
	"market-chat/internal/storage"
	"market-chat/internal/websocket"
	"market-chat/pkg/database"
	"market-chat/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	switch cfg.AppMode {
	case server.ReleaseMode:
		mode = logger.ProductionMode
	case server.TestMode:
		mode = logger.TestMode
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	// Connect to Database
	database.Connect(cfg)
	defer database.Close()

	// Run Raw Migrations (Extensions, Procedures), then GORM schema
	if err := database.ApplyRawMigrations("migrations"); err != nil {
		log.Fatalf("Failed to apply raw migrations: %v", err)
	}
	if err := repository.InitSchema(database.DB); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userRepo := repository.NewUserRepository(database.DB)
	serviceRepo := repository.NewServiceRepository(database.DB)
	roomRepo := repository.NewRoomRepository(database.DB)
	chatRepo := repository.NewChatRepository(database.DB)

	// Optional collaborators stay as untyped nil interfaces when disabled.
	var (
		cache       services.ServiceCache
		presence    services.PresenceReader
		sendLimiter services.SendLimiter
		tracker     websocket.PresenceTracker
		imageStore  services.ImageStorage
		authLimiter *redis.RateLimiter
		redisClient *goredis.Client
		cacheStore  *redis.CacheStore
	)

	if cfg.RedisEnabled {
		client, err := redis.Connect(ctx, redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()

		cacheStore = redis.NewCacheStore(client, redis.DefaultCacheConfig())
		cache = cacheStore
		presenceStore := redis.NewPresenceStore(client, 0)
		presence = presenceStore
		tracker = presenceStore
		authLimiter = redis.NewRateLimiter(client, redis.DefaultRateLimitConfig())
		sendLimiter = authLimiter
		redisClient = client
	}

	hub := websocket.NewHub(tracker)
	if presence == nil {
		// Single instance: the hub itself knows who joined.
		presence = hub
	}
	var bridge *websocket.RedisBridge
	if redisClient != nil {
		bridge = websocket.NewRedisBridge(redis.NewPublisher(redisClient), redis.NewSubscriber(redisClient), hub)
		hub.SetBroadcaster(bridge)
	}

	if cfg.StorageEnabled() {
		s3Client, err := storage.NewClient(ctx, storage.S3ConfigFrom(cfg))
		if err != nil {
			log.Fatalf("Failed to init storage: %v", err)
		}
		imageStore = s3Client
	}

	authService := services.NewAuthService(userRepo, cfg)
	userService := services.NewUserService(userRepo)
	marketService := services.NewMarketplaceService(serviceRepo, roomRepo, cache, hub, imageStore)
	roomService := services.NewRoomService(roomRepo, serviceRepo, chatRepo, userRepo, presence)
	roomService.SetNotifier(hub)
	chatService := services.NewChatService(chatRepo, roomRepo, userRepo, sendLimiter, cfg.ChatPageSize)

	if bridge != nil {
		go bridge.Serve(ctx)
	}

	scheduler := jobs.NewScheduler(authService)
	if err := scheduler.Start(cfg.SessionCleanupSpec); err != nil {
		log.Fatalf("Failed to schedule session cleanup: %v", err)
	}

	srv := server.New(cfg, l)
	srv.SetHealthCheck(func(ctx context.Context) error {
		if err := database.HealthCheck(ctx); err != nil {
			return err
		}
		if cacheStore != nil {
			return cacheStore.Ping(ctx)
		}
		return nil
	})
	authHandler := handler.NewAuthHandler(authService)
	if authLimiter != nil {
		authHandler.SetAttemptResetter(authLimiter)
	}
	srv.SetupRoutes(&server.Handlers{
		Auth:    authHandler,
		User:    handler.NewUserHandler(userService),
		Service: handler.NewServiceHandler(marketService),
		Chat:    handler.NewChatHandler(roomService, chatService),
		Socket:  websocket.NewHandler(authService, roomService, chatService, hub),
	}, authService, authLimiter)

	if err := srv.Start(); err != nil {
		l.Errorf("Server shutdown error: %v", err)
	}

	hub.Close()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	scheduler.Stop(stopCtx)
}
