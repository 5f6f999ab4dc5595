package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpggio/traceback/internal/ingest"
)

func newSyncCmd(c *cli) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass and print its progress",
		Long: `Run one sync pass over calendar, git and browser history.

Progress is printed as it arrives. Ctrl-C cancels the pass; events
already written stay in the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			msgs, unsubscribe := c.app.Sync.Bus().Subscribe()
			printed := make(chan struct{})
			go func() {
				defer close(printed)
				for msg := range msgs {
					if !quiet && !jsonOutput {
						c.printProgress(msg)
					}
				}
			}()

			res := c.app.Sync.Sync(ctx)
			unsubscribe()
			<-printed

			if jsonOutput {
				c.printJSON(res)
			} else {
				c.printResult(res)
			}
			if res.State == ingest.PhaseFailed {
				return fmt.Errorf("sync failed: %s", res.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the final summary")
	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show when the last sync ran and what it covered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.Sync.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				c.printJSON(report)
				return nil
			}
			if report.LastSyncTime == nil {
				fmt.Fprintln(c.out, "Never synced.")
			} else {
				fmt.Fprintf(c.out, "Last sync:     %s\n", report.LastSyncTime.Local().Format(time.DateTime))
			}
			if report.Running {
				fmt.Fprintf(c.out, "Running:       %s\n", report.Phase)
			}
			if report.LastResult != nil {
				c.printResult(*report.LastResult)
			}
			return nil
		},
	}
}

func (c *cli) printProgress(msg ingest.Message) {
	ts := msg.Timestamp.Local().Format(time.TimeOnly)
	switch msg.Kind {
	case ingest.KindStarted:
		fmt.Fprintf(c.out, "%s  sync started\n", ts)
	case ingest.KindProgress:
		switch {
		case msg.Status == ingest.StatusFailed:
			fmt.Fprintf(c.out, "%s  %-16s failed: %s\n", ts, msg.Source, msg.Message)
		case msg.Message != "":
			fmt.Fprintf(c.out, "%s  %-16s %s\n", ts, msg.Source, msg.Message)
		default:
			fmt.Fprintf(c.out, "%s  %-16s %s\n", ts, msg.Source, msg.Status)
		}
	case ingest.KindCancelled:
		fmt.Fprintf(c.out, "%s  sync cancelled\n", ts)
	case ingest.KindFailed:
		fmt.Fprintf(c.out, "%s  sync failed: %s\n", ts, msg.Error)
	}
}

func (c *cli) printResult(res ingest.Result) {
	fmt.Fprintf(c.out, "\n%s in %s\n", res.State, res.Duration.Round(time.Millisecond))
	if !res.WindowStart.IsZero() {
		fmt.Fprintf(c.out, "Window: %s to %s", res.WindowStart.Local().Format(time.DateOnly), res.WindowEnd.Local().Format(time.DateOnly))
		if res.FirstSync {
			fmt.Fprint(c.out, " (first sync)")
		}
		fmt.Fprintln(c.out)
	}
	for _, s := range res.Sources {
		line := fmt.Sprintf("  %-16s %-10s %d new, %d updated", s.Source, s.Status, s.New, s.Updated)
		if s.Skipped > 0 {
			line += fmt.Sprintf(", %d skipped", s.Skipped)
		}
		if s.Errors > 0 {
			line += fmt.Sprintf(", %d errors", s.Errors)
		}
		if s.Error != "" {
			line += "  (" + s.Error + ")"
		}
		fmt.Fprintln(c.out, line)
	}
	fmt.Fprintf(c.out, "Total: %d new, %d updated, %d reclassified\n", res.TotalNew, res.TotalUpdated, res.RulesAffected)
}
