// Package cmd provides CLI commands for the Etsin harvester.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/csc-fi/etsin-harvester/config"
	"github.com/csc-fi/etsin-harvester/format"
	"github.com/csc-fi/etsin-harvester/lookup"
	"github.com/csc-fi/etsin-harvester/refine"
)

var configFile string

func setupLogger() {
	logLevel := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "INFO"
	}

	var level slog.Level
	switch logLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	logger := slog.New(handler)

	slog.SetDefault(logger)
}

var rootCmd = &cobra.Command{
	Use:   "etsin-harvester",
	Short: "Harvest research dataset metadata into the Metax catalog",
	Long: `etsin-harvester maps harvested metadata records (CMDI, DataCite, DDI 2.5,
ISO 19139) into research datasets, completes them with organization specific
rules and keeps the local package store and the remote catalog in step.

Examples:
  etsin-harvester map cmdi -i record.xml --pretty
  etsin-harvester refine kielipankki -i record.xml
  etsin-harvester harvest kielipankki ./records/
  etsin-harvester sync delete kielipankki --local-id 3f0c...
  etsin-harvester catalogs ensure syke`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	setupLogger()
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (YAML)")
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(refineCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(catalogsCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}

// dataCatalogs returns the bundled data catalogs with any configured
// overrides applied.
func dataCatalogs(cfg *config.Config) (*lookup.CatalogRegistry, error) {
	catalogs, err := lookup.NewCatalogRegistry()
	if err != nil {
		return nil, err
	}
	if cfg.DataCatalogDir != "" {
		if err := catalogs.LoadFromDirectory(cfg.DataCatalogDir); err != nil {
			return nil, err
		}
	}
	return catalogs, nil
}

func refiners(cfg *config.Config, catalogs *lookup.CatalogRegistry) (*refine.Registry, error) {
	return refine.NewDefaultRegistry(catalogs, cfg.RefineOptions())
}

// parseDialectFlag returns zero for an empty name so the dialect is
// detected from content.
func parseDialectFlag(name string) (format.Dialect, error) {
	if name == "" {
		return 0, nil
	}
	return format.ParseDialect(name)
}

// readInput reads path, or stdin when path is empty.
func readInput(path string) ([]byte, string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		return data, "stdin", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening input file: %w", err)
	}
	return data, path, nil
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}
