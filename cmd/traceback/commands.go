package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/domain/project"
	"github.com/rpggio/traceback/internal/ingest"
)

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
}

func newEventsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List and assign stored events",
	}

	var (
		from, to, projectID string
		types               []string
		limit, offset       int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List events in start order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := event.ListOptions{ProjectID: projectID, Limit: limit, Offset: offset}
			var err error
			if opts.From, err = parseDate(from); err != nil {
				return err
			}
			if opts.To, err = parseDate(to); err != nil {
				return err
			}
			for _, t := range types {
				typ := event.Type(t)
				if !typ.Valid() {
					return fmt.Errorf("unknown event type %q", t)
				}
				opts.Types = append(opts.Types, typ)
			}

			events, err := c.app.Events.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if jsonOutput {
				c.printJSON(events)
				return nil
			}
			if len(events) == 0 {
				fmt.Fprintln(c.out, "No events.")
				return nil
			}
			tw := c.table()
			fmt.Fprintln(tw, "ID\tSTART\tTYPE\tPROJECT\tTITLE")
			for _, ev := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					ev.ID,
					ev.StartDate.Local().Format("2006-01-02 15:04"),
					ev.Type,
					orDash(ev.ProjectID),
					truncate(ev.Title, 60),
				)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&from, "from", "", "Earliest start (YYYY-MM-DD or RFC3339)")
	list.Flags().StringVar(&to, "to", "", "Latest start (YYYY-MM-DD or RFC3339)")
	list.Flags().StringVar(&projectID, "project", "", "Only events assigned to this project")
	list.Flags().StringSliceVar(&types, "type", nil, "Event types: calendar, version_control, browser_history")
	list.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum events to list")
	list.Flags().IntVar(&offset, "offset", 0, "Events to skip")

	assign := &cobra.Command{
		Use:   "assign <event-id> <project-id|->",
		Short: "Assign an event to a project, or clear it with -",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var projectID *string
			if args[1] != "-" {
				projectID = &args[1]
			}
			if err := c.app.Events.AssignProject(cmd.Context(), args[0], projectID); err != nil {
				return err
			}
			ev, err := c.app.Events.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				c.printJSON(ev)
				return nil
			}
			fmt.Fprintf(c.out, "%s -> %s\n", ev.ID, orDash(ev.ProjectID))
			return nil
		},
	}

	cmd.AddCommand(list, assign)
	return cmd
}

func newProjectsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Manage projects",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects with event and rule counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects, err := c.app.Projects.List(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				c.printJSON(projects)
				return nil
			}
			tw := c.table()
			fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tEVENTS\tRULES")
			for _, p := range projects {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", p.ID, p.Name, orDash(p.Color), p.EventCount, p.RuleCount)
			}
			return tw.Flush()
		},
	}

	var color string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := project.CreateRequest{Name: args[0]}
			if color != "" {
				req.Color = &color
			}
			p, err := c.app.Projects.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			c.printProject(p)
			return nil
		},
	}
	create.Flags().StringVar(&color, "color", "", "Display color as #RRGGBB")

	var newName, newColor string
	update := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Rename or recolor a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := project.UpdateRequest{ID: args[0]}
			if cmd.Flags().Changed("name") {
				req.Name = &newName
			}
			if cmd.Flags().Changed("color") {
				req.Color = &newColor
			}
			p, err := c.app.Projects.Update(cmd.Context(), req)
			if err != nil {
				return err
			}
			c.printProject(p)
			return nil
		},
	}
	update.Flags().StringVar(&newName, "name", "", "New name")
	update.Flags().StringVar(&newColor, "color", "", "New color as #RRGGBB, empty to clear")

	del := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its rules; its events become unassigned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Projects.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.printDeleted(args[0])
			return nil
		},
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}

func (c *cli) printProject(p *project.Project) {
	if jsonOutput {
		c.printJSON(p)
		return
	}
	fmt.Fprintf(c.out, "%s  %s  %s\n", p.ID, p.Name, orDash(p.Color))
}

func newRulesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"rule"},
		Short:   "Manage classification rules",
		Long: `Manage classification rules.

Rule types: organizer, title_pattern, repository, url_pattern, domain.
Rules run after every sync in creation order; when several match the same
event, the most recently created one wins.`,
	}

	var projectID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List rules in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := c.app.Projects.ListRules(cmd.Context())
			if err != nil {
				return err
			}
			if projectID != "" {
				filtered := rules[:0]
				for _, r := range rules {
					if r.ProjectID == projectID {
						filtered = append(filtered, r)
					}
				}
				rules = filtered
			}
			if jsonOutput {
				c.printJSON(rules)
				return nil
			}
			tw := c.table()
			fmt.Fprintln(tw, "ID\tPROJECT\tTYPE\tMATCH")
			for _, r := range rules {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.ProjectID, r.RuleType, r.MatchValue)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&projectID, "project", "", "Only rules for this project")

	create := &cobra.Command{
		Use:   "create <project-id> <type> <match-value>",
		Short: "Add a rule",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.app.Projects.CreateRule(cmd.Context(), project.CreateRuleRequest{
				ProjectID:  args[0],
				RuleType:   project.RuleType(args[1]),
				MatchValue: args[2],
			})
			if err != nil {
				return err
			}
			c.printRule(r)
			return nil
		},
	}

	var ruleProject, ruleType, matchValue string
	update := &cobra.Command{
		Use:   "update <rule-id>",
		Short: "Change a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := project.UpdateRuleRequest{ID: args[0]}
			if cmd.Flags().Changed("project") {
				req.ProjectID = &ruleProject
			}
			if cmd.Flags().Changed("type") {
				t := project.RuleType(ruleType)
				req.RuleType = &t
			}
			if cmd.Flags().Changed("match") {
				req.MatchValue = &matchValue
			}
			r, err := c.app.Projects.UpdateRule(cmd.Context(), req)
			if err != nil {
				return err
			}
			c.printRule(r)
			return nil
		},
	}
	update.Flags().StringVar(&ruleProject, "project", "", "Project the rule assigns")
	update.Flags().StringVar(&ruleType, "type", "", "Rule type")
	update.Flags().StringVar(&matchValue, "match", "", "Match value")

	del := &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule; assignments it made stay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Projects.DeleteRule(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.printDeleted(args[0])
			return nil
		},
	}

	apply := &cobra.Command{
		Use:   "apply",
		Short: "Apply every rule to the stored events now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			affected, err := c.app.Rules.Apply(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				c.printJSON(map[string]int64{"affected": affected})
				return nil
			}
			fmt.Fprintf(c.out, "%d events assigned\n", affected)
			return nil
		},
	}

	cmd.AddCommand(list, create, update, del, apply)
	return cmd
}

func (c *cli) printRule(r *project.Rule) {
	if jsonOutput {
		c.printJSON(r)
		return
	}
	fmt.Fprintf(c.out, "%s  %s  %s=%s\n", r.ID, r.ProjectID, r.RuleType, r.MatchValue)
}

func newOrgsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "Manage the GitHub organizations used to filter repositories",
	}
	show := func(orgs []string) {
		if jsonOutput {
			c.printJSON(orgs)
			return
		}
		if len(orgs) == 0 {
			fmt.Fprintln(c.out, "No organizations; every repository is synced.")
			return
		}
		for _, o := range orgs {
			fmt.Fprintln(c.out, o)
		}
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List organizations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				orgs, err := c.app.Settings.Orgs(cmd.Context())
				if err != nil {
					return err
				}
				show(orgs)
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <org>",
			Short: "Add an organization",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				orgs, err := c.app.Settings.AddOrg(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				show(orgs)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <org>",
			Short: "Remove an organization",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				orgs, err := c.app.Settings.RemoveOrg(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				show(orgs)
				return nil
			},
		},
	)
	return cmd
}

func newDomainsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domains",
		Short: "Manage the work domains browser history is limited to",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List work domains",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				domains, err := c.app.Settings.WorkDomains(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					c.printJSON(domains)
					return nil
				}
				for _, d := range domains {
					fmt.Fprintln(c.out, d.Domain)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <domain>",
			Short: "Add a work domain",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := c.app.Settings.AddWorkDomain(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					c.printJSON(d)
					return nil
				}
				fmt.Fprintf(c.out, "Added %s\n", d.Domain)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <domain>",
			Short: "Remove a work domain",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.app.Settings.RemoveWorkDomain(cmd.Context(), args[0]); err != nil {
					return err
				}
				c.printDeleted(args[0])
				return nil
			},
		},
	)
	return cmd
}

func newSettingsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write stored settings",
	}
	get := &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				v, err := c.app.Settings.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					c.printJSON(map[string]string{args[0]: v})
					return nil
				}
				fmt.Fprintln(c.out, v)
				return nil
			}
			all, err := c.app.Settings.All(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				c.printJSON(all)
				return nil
			}
			tw := c.table()
			for _, k := range slices.Sorted(maps.Keys(all)) {
				fmt.Fprintf(tw, "%s\t%s\n", k, all[k])
			}
			return tw.Flush()
		},
	}
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Settings.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			if jsonOutput {
				c.printJSON(map[string]string{args[0]: args[1]})
				return nil
			}
			fmt.Fprintf(c.out, "%s = %s\n", args[0], args[1])
			return nil
		},
	}
	cmd.AddCommand(get, set)
	return cmd
}

func newResetCmd(c *cli) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every event, contact and the sync history",
		Long: `Delete every event, contact and the sync history. Projects, rules and
settings are kept. The next sync starts a fresh window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			if report, err := c.app.Sync.Status(cmd.Context()); err == nil && report.Running {
				return ingest.ErrSyncInProgress
			}
			if err := c.app.Events.Reset(cmd.Context()); err != nil {
				return err
			}
			if jsonOutput {
				c.printJSON(map[string]bool{"reset": true})
				return nil
			}
			fmt.Fprintln(c.out, "Database reset.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the reset")
	return cmd
}

func (c *cli) printDeleted(id string) {
	if jsonOutput {
		c.printJSON(map[string]string{"deleted": id})
		return
	}
	fmt.Fprintf(c.out, "Deleted %s\n", id)
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("cannot parse date %q, want YYYY-MM-DD or RFC3339", raw)
	}
	return &t, nil
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
