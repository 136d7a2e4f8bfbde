// Package main runs the participant directory HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benasque-conf/participants/config"
	"github.com/benasque-conf/participants/internal/arxiv"
	"github.com/benasque-conf/participants/internal/directory"
	"github.com/benasque-conf/participants/internal/middleware"
	"github.com/benasque-conf/participants/internal/participants"
	"github.com/benasque-conf/participants/internal/photos"
	"github.com/benasque-conf/participants/internal/realtime"
	"github.com/benasque-conf/participants/internal/registrations"
	"github.com/benasque-conf/participants/internal/talks"
	"github.com/benasque-conf/participants/internal/worker"
	"github.com/benasque-conf/participants/pkg/database"
	"github.com/benasque-conf/participants/pkg/queue"
	"github.com/benasque-conf/participants/pkg/redis"
	"github.com/benasque-conf/participants/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is optional: without it the hub is local, titles are cached in memory and
	// photo cleanup is synchronous.
	var (
		rdb        *redis.Client
		redisPub   realtime.RedisPublisher
		redisSub   realtime.RedisSubscriber
		titleCache arxiv.Cache = arxiv.NewMemoryCache(cfg.Arxiv.CacheTTL)
		enqueuer   photos.Enqueuer
		jobQueue   *queue.Queue
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		redisPub, redisSub = pubsub, pubsub
		titleCache = arxiv.NewRedisCache(rdb.Client, cfg.Arxiv.CacheTTL)
		jobQueue = queue.NewQueue(rdb.Client, logger)
		enqueuer = jobQueue
	}
	hub := realtime.NewHub(logger, redisPub, redisSub)

	photoStore, err := photos.Open(ctx, cfg.Photos, cfg.AWS, logger)
	if err != nil {
		logger.Fatal("photo store", zap.Error(err))
	}
	uploader := photos.NewUploader(photoStore, cfg.Photos.AllowedTypes, cfg.Photos.MaxBytes)
	janitor := photos.NewJanitor(photoStore, enqueuer, logger)

	var titles participants.TitleResolver
	if !cfg.Arxiv.Disabled {
		titles = arxiv.NewClient(arxiv.Config{
			APIURL:       cfg.Arxiv.APIURL,
			RequestDelay: cfg.Arxiv.RequestDelay,
			Timeout:      cfg.Arxiv.Timeout,
		}, titleCache, logger)
	}

	calendar := directory.NewCalendar(cfg.Conference.Start, cfg.Conference.End)

	// Participants
	participantRepo := participants.NewRepository(db, cfg.Conference.MaxArxivLinks)
	participantHandler := participants.NewHandler(participantRepo, calendar, titles, uploader, janitor, logger)

	// Talks
	talkRepo := talks.NewRepository(db)
	talkHandler := talks.NewHandler(talkRepo, hub, logger)

	// Registrations
	registrationRepo := registrations.NewRepository(db)
	registrationHandler := registrations.NewHandler(registrationRepo, logger)

	router := gin.New()
	router.MaxMultipartMemory = cfg.Photos.MaxBytes + 1<<20
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			response.BadRequest(c, "database unavailable")
			return
		}
		if !rdb.Healthy(c.Request.Context()) {
			response.BadRequest(c, "redis unavailable")
			return
		}
		response.OK(c, "", gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/conference", func(c *gin.Context) {
			response.OK(c, "", gin.H{
				"name":            cfg.Conference.Name,
				"start":           cfg.Conference.Start.Format("2006-01-02"),
				"end":             cfg.Conference.End.Format("2006-01-02"),
				"blackboard_url":  cfg.Conference.BlackboardURL,
				"max_arxiv_links": cfg.Conference.MaxArxivLinks,
			})
		})

		// Participants
		api.GET("/participants", participantHandler.List)
		api.GET("/participants/:email", participantHandler.Get)
		api.POST("/participants", participantHandler.Save)
		api.POST("/participants/delete", participantHandler.Delete)
		api.GET("/interests", participantHandler.Interests)

		// Talks
		api.GET("/talks", talkHandler.List)
		api.GET("/talks/export.csv", talkHandler.ExportCSV)
		api.POST("/talks/status", talkHandler.UpdateStatus)

		// Registrations
		api.GET("/registrations", registrationHandler.List)
		api.POST("/registrations/import", registrationHandler.Import)
	}

	// WebSocket (admin pages subscribe to talk status changes)
	router.GET("/ws", realtime.ServeWs(hub, logger, realtime.TopicTalks))

	if cfg.Photos.Backend == "local" {
		router.Static("/"+filepath.Base(filepath.Clean(cfg.Photos.UploadDir)), cfg.Photos.UploadDir)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (queued photo deletions)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if jobQueue != nil {
		go worker.NewPhotoCleanupProcessor(photoStore, jobQueue, logger).Run(workerCtx)
		logger.Info("photo cleanup worker started")
	}

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Server.Port),
			zap.String("db_driver", cfg.Database.Driver),
			zap.String("photo_backend", cfg.Photos.Backend),
			zap.Bool("redis", rdb != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
