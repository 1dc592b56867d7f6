package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/technohippies/scarlett-sub000/internal/ai"
	"github.com/technohippies/scarlett-sub000/internal/config"
	"github.com/technohippies/scarlett-sub000/internal/db"
	"github.com/technohippies/scarlett-sub000/internal/embedcache"
	"github.com/technohippies/scarlett-sub000/internal/handler"
	"github.com/technohippies/scarlett-sub000/internal/job"
	"github.com/technohippies/scarlett-sub000/internal/middleware"
	"github.com/technohippies/scarlett-sub000/internal/repo"
	"github.com/technohippies/scarlett-sub000/internal/schedule"
	"github.com/technohippies/scarlett-sub000/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "scarlett",
		Short: "content capture and retrieval server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildAIManager(cfg *config.Config, cacheRepo *repo.EmbeddingCacheRepo) (*ai.Manager, error) {
	var generator ai.IGenerator
	var embedder ai.IEmbedder

	if cfg.AI.Provider != "" {
		provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
		if err != nil {
			return nil, fmt.Errorf("init ai provider: %w", err)
		}
		generator = ai.NewGenerator(provider, cfg.AI.Model)
	}
	if cfg.AI.EmbedProvider != "" {
		provider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.Data)
		if err != nil {
			return nil, fmt.Errorf("init embed provider: %w", err)
		}
		embedder = ai.NewEmbedder(provider, cfg.AI.EmbedModel)
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
		embedder = embedcache.WrapLruCacheToEmbedder(
			embedder,
			cfg.Dedup.EmbedCacheSize,
			time.Duration(cfg.Dedup.EmbedCacheTTLMin)*time.Minute,
		)
	}
	return ai.NewManager(generator, embedder, ai.ManagerConfig{
		Timeout:       cfg.AI.Timeout,
		MaxInputChars: cfg.AI.MaxInputChars,
	}), nil
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("embed_provider", cfg.AI.EmbedProvider),
	)

	versionRepo := repo.NewVersionRepo(database)
	chatRepo := repo.NewChatMessageRepo(database)
	bookmarkRepo := repo.NewBookmarkRepo(database)
	learningRepo := repo.NewLearningRepo(database)
	cacheRepo := repo.NewEmbeddingCacheRepo(database)

	aiManager, err := buildAIManager(cfg, cacheRepo)
	if err != nil {
		return err
	}

	dedupService := service.NewDedupService(versionRepo, aiManager, service.DedupConfig{
		BatchLimit:          cfg.Dedup.BatchLimit,
		SimilarityThreshold: cfg.Dedup.SimilarityThreshold,
	})
	retrievalService := service.NewRetrievalService(aiManager, versionRepo, chatRepo, bookmarkRepo, learningRepo, service.RetrievalConfig{
		MaxResults:           cfg.Retrieval.MaxResults,
		MinRelevanceScore:    cfg.Retrieval.MinRelevanceScore,
		ReservedTokens:       cfg.Retrieval.ReservedTokens,
		DefaultContextWindow: cfg.Retrieval.DefaultContextWindow,
		ContextWindows:       cfg.Retrieval.ContextWindows,
	})
	captureService := service.NewCaptureService(versionRepo, chatRepo, bookmarkRepo, learningRepo, aiManager)

	deps := handler.RouterDeps{
		Ingest:    handler.NewIngestHandler(captureService),
		Retrieval: handler.NewRetrievalHandler(retrievalService),
		Dedup:     handler.NewDedupHandler(dedupService),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewDedupJob(dedupService), cfg.Dedup.CronSpec); err != nil {
		return fmt.Errorf("schedule dedup job: %w", err)
	}
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, 30), "13 4 * * *"); err != nil {
		return fmt.Errorf("schedule cache cleanup job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
