package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"chatrelay/internal/blobstore"
	"chatrelay/internal/blobsweep"
	"chatrelay/internal/config"
	"chatrelay/internal/database/db_client"
	"chatrelay/internal/http/chathandler"
	"chatrelay/internal/http/http_server"
	"chatrelay/internal/redis/redis_client"
	"chatrelay/internal/services/chat"
	"chatrelay/internal/ws"

	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Media blob store: redis with key TTL, or postgres plus the sweeper
	var blobs blobstore.Store
	switch cfg.BlobBackend {
	case config.BlobBackendPostgres:
		pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
		if err != nil {
			Log.Fatal("pg-open", zap.Error(err))
		}
		defer pgDb.Close()

		pgStore := blobstore.NewPostgresStore(pgDb, cfg.PublicBaseURL, cfg.BlobTTL)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			Log.Fatal("pg-schema", zap.Error(err))
		}
		blobsweep.Run(ctx, pgDb, cfg.BlobTTL, cfg.BlobSweepInterval)
		blobs = pgStore
	default:
		redisClient, err := redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort), cfg.RedisPassword, cfg.RedisDb)
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		blobs = blobstore.NewRedisStore(redisClient, cfg.PublicBaseURL, cfg.BlobTTL)
	}
	Log.Debug("Blob store ready", zap.String("backend", cfg.BlobBackend))

	// 4. WebSockets hub + chat engine; the hub is the engine's emitter
	hub := ws.NewHub()
	engine := chat.NewEngine(chat.Options{
		HistoryLimit: cfg.MessageHistoryLimit,
		DefaultRoom:  cfg.DefaultRoom,
		Emitter:      hub,
	})

	// 5. Initialize the WS server
	wsSrv := ws.NewWsServer(hub, engine, ws.Options{
		SendBuffer: cfg.WsSendBuffer,
		ReadLimit:  cfg.WsReadLimit,
		PingPeriod: cfg.WsPingPeriod,
		PongWait:   cfg.WsPongWait,
	})

	// 6. HTTP + WS server
	handler := chathandler.New(engine, blobs, cfg.BlobMaxBytes)
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv.Handle, handler)

	disposed := make(chan struct{})
	go func() {
		defer close(disposed)
		<-ctx.Done()
		Log.Info("Shutting down")
		wsSrv.Shutdown()
		_ = httpServer.Dispose()
	}()

	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
	<-disposed
}
