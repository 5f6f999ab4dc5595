package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rpggio/traceback/internal/app"
	"github.com/rpggio/traceback/internal/config"
)

var (
	version    = "dev"
	jsonOutput bool
)

// cli carries state shared by subcommands. It is filled in by the root
// command's pre-run hook.
type cli struct {
	cfg      config.Config
	logger   *slog.Logger
	app      *app.App
	closeLog func()
	out      io.Writer
}

func main() {
	c := &cli{out: os.Stdout}
	err := newRootCmd(c).Execute()
	c.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "traceback",
		Short: "Collect calendar, git and browser activity into one timeline",
		Long: `traceback syncs calendar events, git reference logs and browser history
into a local database, groups them into projects with rules, and serves
them to MCP clients.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.open(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			c.close()
		},
	}
	root.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print version info",
			Run: func(*cobra.Command, []string) {
				fmt.Fprintf(c.out, "traceback %s\n", version)
			},
		},
		newServeCmd(c),
		newSyncCmd(c),
		newStatusCmd(c),
		newEventsCmd(c),
		newProjectsCmd(c),
		newRulesCmd(c),
		newOrgsCmd(c),
		newDomainsCmd(c),
		newSettingsCmd(c),
		newResetCmd(c),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if cmd.Name() == "serve" {
		if mode, _ := cmd.Flags().GetString("transport"); mode != "" {
			cfg.Transport.Mode = mode
		}
	}
	c.cfg = cfg

	// Logs never go to stdout: it carries JSON-RPC in stdio mode and
	// command output otherwise.
	logger, closeLog := newLogger(cfg.Log, os.Stderr)
	c.logger, c.closeLog = logger, closeLog

	app.Version = version
	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *cli) close() {
	if c.app != nil {
		if err := c.app.Close(); err != nil {
			c.logger.Warn("closing database", "error", err)
		}
		c.app = nil
	}
	if c.closeLog != nil {
		c.closeLog()
		c.closeLog = nil
	}
}

func (c *cli) printJSON(v any) {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
