package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kilatworks/omzet/pkg/api"
	"github.com/kilatworks/omzet/pkg/log"
	"github.com/kilatworks/omzet/pkg/manager"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "omzet",
	Short: "Omzet - lead orchestration and deposit attribution engine",
	Long: `Omzet coordinates record assignment, customer reservations and
deposit classification for a sales operation, and produces the daily
staff and product breakdowns.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Omzet version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(reportCmd)

	serveCmd.Flags().String("config", "", "Path to YAML config file")
	serveCmd.Flags().String("api-addr", "127.0.0.1:8080", "Address for the JSON API")
	serveCmd.Flags().String("data-dir", "./omzet-data", "Data directory for engine state")
	serveCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")

	repairCmd.Flags().String("data-dir", "./omzet-data", "Data directory for engine state")
	repairCmd.Flags().Bool("dry-run", false, "Diagnose only, apply nothing")

	reportCmd.Flags().String("data-dir", "./omzet-data", "Data directory for engine state")
	reportCmd.Flags().String("date", "", "Report date (YYYY-MM-DD, default yesterday)")
	reportCmd.Flags().String("product", "", "Restrict to one product")
}

// serverConfig is the YAML file layout for the serve command
type serverConfig struct {
	APIAddr  string `yaml:"api_addr"`
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
}

func loadConfig(cmd *cobra.Command) (*serverConfig, error) {
	cfg := &serverConfig{}
	cfg.APIAddr, _ = cmd.Flags().GetString("api-addr")
	cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	cfg.LogLevel, _ = cmd.Flags().GetString("log-level")

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %v", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}
	return cfg, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine and its JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: true})

		mgr, err := manager.NewManager(&manager.Config{DataDir: cfg.DataDir})
		if err != nil {
			return fmt.Errorf("failed to create manager: %v", err)
		}
		if err := mgr.Start(); err != nil {
			return fmt.Errorf("failed to start manager: %v", err)
		}

		server := api.NewServer(mgr)
		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.APIAddr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
		case err := <-errCh:
			log.Logger.Error().Err(err).Msg("api server stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Logger.Error().Err(err).Msg("api shutdown failed")
		}
		return mgr.Shutdown()
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Detect and heal cross-collection inconsistencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		log.Init(log.Config{Level: "warn"})

		mgr, err := manager.NewManager(&manager.Config{DataDir: dataDir})
		if err != nil {
			return fmt.Errorf("failed to create manager: %v", err)
		}
		defer mgr.Shutdown()

		if dryRun {
			findings, err := mgr.Diagnose()
			if err != nil {
				return err
			}
			return printJSON(findings)
		}
		summary, err := mgr.Repair()
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the daily staff and product breakdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		date, _ := cmd.Flags().GetString("date")
		product, _ := cmd.Flags().GetString("product")
		log.Init(log.Config{Level: "warn"})

		if date == "" {
			date = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
		}

		mgr, err := manager.NewManager(&manager.Config{DataDir: dataDir})
		if err != nil {
			return fmt.Errorf("failed to create manager: %v", err)
		}
		defer mgr.Shutdown()

		rep, err := mgr.DailyReport(date, product)
		if err != nil {
			return err
		}
		return printJSON(rep)
	},
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
