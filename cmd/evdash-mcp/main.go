/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"evdash-mcp/internal/api"
	"evdash-mcp/internal/config"
	"evdash-mcp/internal/database"
	"evdash-mcp/internal/logging"
	"evdash-mcp/internal/mcp"
	"evdash-mcp/internal/prompts"
	"evdash-mcp/internal/relay"
	"evdash-mcp/internal/resources"
	"evdash-mcp/internal/tools"
)

var (
	configFile  string
	address     string
	databaseURL string
	logLevel    string
	watchConfig bool
)

var rootCmd = &cobra.Command{
	Use:   "evdash-mcp",
	Short: "MCP relay server for the EV registration dashboard",
	Long: `evdash-mcp serves the Model Context Protocol over Server-Sent Events
for the U.S. electric-vehicle registration database. Each client stream
gets its own session and inbound message path; the single "query" tool
executes read-only SQL through a guarded gateway. The dashboard's fixed
aggregation endpoints are served under /api/v1.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	rootCmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (overrides config)")
	rootCmd.Flags().StringVarP(&databaseURL, "database-url", "d", "", "Postgres connection URL (overrides config)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&watchConfig, "watch-config", false, "Reload the configuration file on change")
}

func run(_ *cobra.Command, _ []string) error {
	if configFile == "" {
		if execPath, err := os.Executable(); err == nil {
			configFile = config.GetDefaultConfigPath(execPath)
		}
	}

	cliFlags := config.CLIFlags{
		Address:     address,
		DatabaseURL: databaseURL,
		LogLevel:    logLevel,
	}

	cfg, err := config.LoadConfig(configFile, cliFlags)
	if err != nil {
		return err
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient := database.NewClient(&cfg.Database)
	if err := dbClient.Connect(ctx); err != nil {
		return err
	}
	// Released after Run returns, once every session is closed
	defer dbClient.Close()

	toolRegistry := tools.NewRegistry()
	toolRegistry.Register("query", tools.QueryTool(dbClient))

	promptRegistry := prompts.NewRegistry()
	promptRegistry.RegisterAssistant()

	mcpServer := mcp.NewServer(toolRegistry)
	mcpServer.SetResourceProvider(resources.NewProvider(dbClient))
	mcpServer.SetPromptProvider(promptRegistry)

	server := relay.NewServer(cfg, mcpServer)
	server.Mount("/api/v1", api.NewHandler(dbClient).Routes())

	if watchConfig {
		reloadable := config.NewReloadableConfig(cfg, configFile, cliFlags)
		// Address changes need a restart; only the log level takes
		// effect on reload
		reloadable.OnReload(func(c *config.Config) {
			logging.SetLevel(logging.ParseLevel(c.LogLevel))
		})
		stopWatch, err := reloadable.Watch()
		if err != nil {
			return err
		}
		defer stopWatch()
	}

	return server.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
