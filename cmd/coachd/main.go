// Coachd is a local workflow-coach daemon speaking MCP over stdio.
//
// It guides multi-phase workflows (test-first loops, systematic
// debugging, safe refactoring), tracks progress and streaks across
// sessions, and adapts its hints to the user over time. All state lives
// in JSON files under ~/.config/coachd.
//
// Usage:
//
//	# Serve MCP on stdio (what an MCP client launches)
//	coachd serve
//
//	# Seed editable workflow definitions
//	coachd install
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coachd/internal/config"
	"github.com/fyrsmithlabs/coachd/internal/coordinator"
	"github.com/fyrsmithlabs/coachd/internal/install"
	"github.com/fyrsmithlabs/coachd/internal/learning"
	"github.com/fyrsmithlabs/coachd/internal/logging"
	"github.com/fyrsmithlabs/coachd/internal/mcp"
	"github.com/fyrsmithlabs/coachd/internal/progress"
	"github.com/fyrsmithlabs/coachd/internal/session"
	"github.com/fyrsmithlabs/coachd/internal/state"
	"github.com/fyrsmithlabs/coachd/internal/workflow"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "coachd",
	Short: "Workflow coach daemon speaking MCP over stdio",
	Long: `coachd guides multi-phase development workflows, tracks progress
across sessions, and adapts its coaching to how you actually work.`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP on stdio until the client disconnects",
	RunE:  runServe,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Seed the workflow directory with the built-in definitions",
	RunE:  runInstall,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("coachd\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

var installForce bool

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/coachd/config.yaml)")
	installCmd.Flags().BoolVar(&installForce, "force", false, "overwrite existing workflow files")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("starting coachd",
		zap.String("version", version),
		zap.String("base_dir", cfg.BaseDir))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := workflow.NewCatalog(cfg.WorkflowsDir(), logger)
	if cfg.Workflows.Watch {
		go func() {
			if err := catalog.Watch(ctx); err != nil {
				logger.Warn("workflow watcher stopped", zap.Error(err))
			}
		}()
	}

	manager := state.NewManager(cfg.WorkflowStatePath(), logger)
	tracker := progress.NewTracker(cfg.ProgressPath(), logger)
	engine := learning.NewEngine(cfg.ProfilePath(), logger)
	if err := engine.LoadUserProfile(); err != nil {
		logger.Warn("profile load failed, starting from defaults", zap.Error(err))
	}

	coord := coordinator.New(manager, tracker, engine, logger)
	controller := session.NewController(catalog, coord, tracker, engine, logger)

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "coachd",
		Version: version,
		Logger:  logger,
	}, controller, catalog, tracker, engine, coord)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Warn("server close failed", zap.Error(err))
		}
	}()

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("coachd shutdown complete")
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	written, err := install.Seed(cfg.WorkflowsDir(), installForce, logger)
	if err != nil {
		return err
	}
	if len(written) == 0 {
		fmt.Println("Workflow directory already seeded; nothing to do.")
		return nil
	}
	fmt.Printf("Seeded %d workflow definitions into %s\n", len(written), cfg.WorkflowsDir())
	for _, name := range written {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
