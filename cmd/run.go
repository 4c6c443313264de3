package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wayhost/wayhost/internal/config"
	"github.com/wayhost/wayhost/internal/display"
	"github.com/wayhost/wayhost/internal/logger"
)

var (
	configPath  string
	assetsPath  string
	enginePath  string
	icuDataPath string
	windowTitle string
	logLevel    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a Flutter application bundle",
	Long: `Run hosts the application bundle in a Wayland toplevel window.
The compositor must advertise wl_compositor and a shell (xdg_wm_base or
wl_shell); input devices are picked up from the seat as they appear.`,
	RunE: runEmbedder,
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path")
	runCmd.Flags().StringVarP(&assetsPath, "assets", "a", "", "Flutter asset bundle directory")
	runCmd.Flags().StringVarP(&enginePath, "engine", "e", "", "Engine shared library path")
	runCmd.Flags().StringVar(&icuDataPath, "icu-data", "", "ICU data file path")
	runCmd.Flags().StringVarP(&windowTitle, "title", "t", "", "Window title")
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func runEmbedder(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags win over config file values.
	if assetsPath != "" {
		cfg.Engine.AssetsPath = assetsPath
	}
	if enginePath != "" {
		cfg.Engine.LibraryPath = enginePath
	}
	if icuDataPath != "" {
		cfg.Engine.ICUDataPath = icuDataPath
	}
	if windowTitle != "" {
		cfg.Window.Title = windowTitle
	}
	if logLevel != "" {
		cfg.Logging.LogLevel = logLevel
	}
	if cfg.Logging.LogLevel != "" {
		logger.SetLevel(cfg.Logging.LogLevel)
	}

	if cfg.Engine.AssetsPath == "" {
		return fmt.Errorf("no asset bundle: set --assets or engine.assets_path")
	}
	if _, err := os.Stat(cfg.Engine.AssetsPath); err != nil {
		return fmt.Errorf("asset bundle not accessible: %w", err)
	}
	if _, err := os.Stat(cfg.Engine.ICUDataPath); err != nil {
		return fmt.Errorf("ICU data not accessible: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting wayhost",
		"version", Version,
		"assets", cfg.Engine.AssetsPath,
		"engine", cfg.Engine.LibraryPath)

	rt := display.New(cfg)
	if err := rt.Run(ctx); err != nil {
		return fmt.Errorf("embedder exited: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
