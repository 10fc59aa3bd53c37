package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/config"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/models"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/images"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/openai"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/publisher"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/publisher/wordpress"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/sheets"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	SheetsService   *sheets.Service
	Pipeline        *service.Pipeline
	Scheduler       *service.Scheduler
	StatsUpdater    *service.StatsUpdater
	RecoveryService *service.RecoveryService
	AuthService     *service.AuthService

	runCtx context.Context
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	monitoring := service.NewMonitoringService(db, logger)
	recovery := service.NewRecoveryService(db, logger)
	notify := service.NewNotifyService(&cfg.Notify, logger)
	sheetsService := sheets.NewService(&cfg.Sheets, db, logger)
	openaiClient := openai.NewClient(&cfg.OpenAI, logger)

	resolver, err := buildResolver(cfg, logger, openaiClient)
	if err != nil {
		return nil, err
	}

	registry := publisher.NewRegistry(logger)
	for _, sc := range cfg.Sites {
		if !sc.Enabled {
			logger.Info("Site disabled, skipping registration", zap.String("site_id", sc.ID))
			continue
		}
		client := wordpress.NewClient(logger, sc.ID, sc.BaseURL, sc.Username, sc.AppPassword)
		if err := registry.Register(sc.ID, client); err != nil {
			logger.Error("Failed to register site", zap.String("site_id", sc.ID), zap.Error(err))
		}
	}

	executor, err := buildExecutor(cfg, logger, recovery, notify)
	if err != nil {
		return nil, err
	}

	pipeline := service.NewPipeline(cfg, service.NewPipelineStore(db), logger,
		sheetsService, openaiClient, resolver, registry, executor, notify, monitoring)

	scheduler := service.NewScheduler(&cfg.Scheduler, logger, pipeline)
	statsUpdater := service.NewStatsUpdater(monitoring, logger, time.Hour)
	authService := service.NewAuthService(logger, cfg.Auth.TOTPSecret)

	// Create router
	router := gin.New()

	srv := &Server{
		Config:          cfg,
		DB:              db,
		Router:          router,
		Logger:          logger,
		SheetsService:   sheetsService,
		Pipeline:        pipeline,
		Scheduler:       scheduler,
		StatsUpdater:    statsUpdater,
		RecoveryService: recovery,
		AuthService:     authService,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func buildResolver(cfg *config.Config, logger *zap.Logger, openaiClient *openai.Client) (*images.Resolver, error) {
	timeout, err := time.ParseDuration(cfg.Images.TimeoutPerSource)
	if err != nil {
		return nil, fmt.Errorf("invalid image source timeout: %w", err)
	}

	var providers []images.Provider
	if cfg.Images.PexelsAPIKey != "" {
		providers = append(providers, images.NewPexelsProvider(logger, cfg.Images.PexelsAPIKey))
	}
	if cfg.Images.UnsplashAccessKey != "" {
		providers = append(providers, images.NewUnsplashProvider(logger, cfg.Images.UnsplashAccessKey))
	}

	generator := images.NewGeneratedProvider(logger, openaiClient)
	return images.NewResolver(logger, timeout, generator, providers...), nil
}

func buildExecutor(cfg *config.Config, logger *zap.Logger, queue publisher.RecoveryQueue, notifier publisher.Notifier) (*publisher.Executor, error) {
	base, err := time.ParseDuration(cfg.Publish.BackoffBase)
	if err != nil {
		return nil, fmt.Errorf("invalid backoff base: %w", err)
	}
	max, err := time.ParseDuration(cfg.Publish.BackoffMax)
	if err != nil {
		return nil, fmt.Errorf("invalid backoff max: %w", err)
	}
	return publisher.NewExecutor(logger, cfg.Publish.MaxAttempts, base, max, queue, notifier), nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Auth-Code")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		api.GET("/topics", s.handleGetTopics)
		api.GET("/jobs", s.handleGetJobs)
		api.GET("/recovery", s.handleGetRecoveryItems)
		api.GET("/stats", s.handleGetStats)

		// Mutating endpoints sit behind TOTP auth when configured
		protected := api.Group("")
		protected.Use(s.AuthService.Middleware())
		{
			protected.POST("/topics/sync", s.handleSyncTopics)
			protected.POST("/run", s.handleRunBatch)
			protected.POST("/recovery/:id/requeue", s.handleRequeue)
		}
	}
}

func (s *Server) handleGetTopics(c *gin.Context) {
	topics, err := s.SheetsService.GetAllTopics()
	if err != nil {
		s.Logger.Error("Failed to get topics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get topics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

func (s *Server) handleSyncTopics(c *gin.Context) {
	if err := s.SheetsService.SyncTopics(c.Request.Context()); err != nil {
		s.Logger.Error("Failed to sync topics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync topics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sync completed successfully"})
}

func (s *Server) handleRunBatch(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	runCtx := s.runCtx
	if runCtx == nil {
		runCtx = context.Background()
	}

	go func() {
		if _, err := s.Pipeline.RunBatch(runCtx, limit); err != nil {
			s.Logger.Error("Batch run failed", zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "Batch started"})
}

func (s *Server) handleGetJobs(c *gin.Context) {
	var jobs []models.PublishJob
	if err := s.DB.Preload("Site").
		Order("created_at DESC").
		Limit(100).
		Find(&jobs).Error; err != nil {
		s.Logger.Error("Failed to get jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleGetRecoveryItems(c *gin.Context) {
	items, err := s.RecoveryService.HeldItems()
	if err != nil {
		s.Logger.Error("Failed to get recovery items", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recovery items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleRequeue(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	if err := s.RecoveryService.Requeue(c.Request.Context(), uint(id)); err != nil {
		s.Logger.Error("Failed to requeue recovery item", zap.Uint64("item_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item requeued"})
}

func (s *Server) handleGetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"last_batch": s.Pipeline.LastStats()})
}

func (s *Server) Start(ctx context.Context) error {
	s.runCtx = ctx

	// Start scheduler
	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	s.StatsUpdater.Start(ctx)

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop background workers first
	s.Scheduler.Stop()
	s.StatsUpdater.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
