package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/config"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/server"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/openai"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/publisher/wordpress"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/sheets"
	"github.com/sirliboyev-uz/ai-blog-agent/pkg/logger"
)

var (
	configPath string
	batchLimit int
	version    = "0.1.0"
	gitCommit  = "unknown"
	buildTime  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "blog-agent",
	Short: "Blog Agent - Automated blog content generation and publishing",
	Long:  `Blog Agent pulls topics from a spreadsheet, generates SEO-ready posts with a featured image, and publishes them to WordPress sites with bounded retry.`,
	RunE:  runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Blog Agent %s\n", version)
		fmt.Printf("Git commit: %s\n", gitCommit)
		fmt.Printf("Build time: %s\n", buildTime)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one publish batch and exit",
	RunE:  runBatch,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify connectivity to all external services",
	RunE:  runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/server.yaml", "config file path")
	runCmd.Flags().IntVarP(&batchLimit, "limit", "n", 0, "maximum topics to process (0 = config default)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, appLogger, nil
}

func runServer(*cobra.Command, []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Blog Agent server", zap.String("version", version))

	// Create server
	srv, err := server.NewServer(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Start server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := srv.Start(ctx); err != nil {
			appLogger.Error("Server failed to start", zap.Error(err))
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down server...")
	case <-ctx.Done():
		appLogger.Info("Server context cancelled")
	}

	// In-flight publish attempts finish and flush before exit
	cancel()

	if err := srv.Shutdown(context.Background()); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	appLogger.Info("Server exited")
	return nil
}

func runBatch(*cobra.Command, []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	srv, err := server.NewServer(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create services: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Running one-shot batch", zap.Int("limit", batchLimit))

	stats, err := srv.Pipeline.RunBatch(ctx, batchLimit)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	appLogger.Info("Batch finished",
		zap.Int("processed", stats.Processed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("queued", stats.Queued))
	return nil
}

func runCheck(*cobra.Command, []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	allOK := true

	if err := openai.NewClient(&cfg.OpenAI, appLogger).Ping(ctx); err != nil {
		appLogger.Error("OpenAI connection failed", zap.Error(err))
		allOK = false
	} else {
		appLogger.Info("OpenAI connection OK")
	}

	if err := sheets.Ping(ctx, &cfg.Sheets); err != nil {
		appLogger.Error("Sheets connection failed", zap.Error(err))
		allOK = false
	} else {
		appLogger.Info("Sheets connection OK")
	}

	for _, sc := range cfg.Sites {
		if !sc.Enabled {
			continue
		}
		client := wordpress.NewClient(appLogger, sc.ID, sc.BaseURL, sc.Username, sc.AppPassword)
		if err := client.Ping(ctx); err != nil {
			appLogger.Error("WordPress connection failed", zap.String("site", sc.ID), zap.Error(err))
			allOK = false
		} else {
			appLogger.Info("WordPress connection OK", zap.String("site", sc.ID))
		}
	}

	if !allOK {
		return fmt.Errorf("some connections failed, check configuration")
	}
	appLogger.Info("All connections successful")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
