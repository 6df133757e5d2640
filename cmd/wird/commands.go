package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ldi/wird/internal/config"
	"github.com/ldi/wird/internal/db"
	"github.com/ldi/wird/internal/ledger"
	"github.com/ldi/wird/internal/mcp"
	"github.com/ldi/wird/internal/qibla"
	"github.com/ldi/wird/internal/server"
	"github.com/ldi/wird/internal/snapshot"
	"github.com/ldi/wird/internal/store"
	"github.com/ldi/wird/internal/ui"
	"github.com/ldi/wird/pkg/models"
)

// withApp opens the ledger for the duration of fn and always flushes it.
func withApp(cmd *cobra.Command, fn func(a *app) error) (err error) {
	a, err := openApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to flush ledger: %w", cerr)
		}
	}()
	return fn(a)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("task id must be an integer, got %q", s)
	}
	return id, nil
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .wird directory, config and storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			dir := filepath.Dir(configPath)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create %s directory: %w", dir, err)
			}
			fmt.Fprintf(out, "✓ Created %s/ directory\n", dir)

			gitignorePath := filepath.Join(dir, ".gitignore")
			if err := os.WriteFile(gitignorePath, []byte("wird.db*\nstore.json\n"), 0644); err != nil {
				return fmt.Errorf("failed to create .gitignore: %w", err)
			}
			fmt.Fprintf(out, "✓ Created %s\n", gitignorePath)

			if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
				if err := config.Write(configPath, cfg); err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Wrote %s\n", configPath)
			}

			st, closeFn, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()
			fmt.Fprintf(out, "✓ Opened %s storage\n", cfg.Storage.Backend)

			// Seed from an existing snapshot only when the store is empty.
			_, getErr := st.Get(ctx, store.KeyTasks)
			if errors.Is(getErr, store.ErrNotFound) {
				if _, err := os.Stat(cfg.Snapshot.Path); err == nil {
					meta, err := importSnapshot(ctx, st, cfg.Snapshot.Path)
					if err != nil {
						return fmt.Errorf("failed to import snapshot: %w", err)
					}
					fmt.Fprintf(out, "✓ Imported %d tasks and %d days from %s\n", meta.Tasks, meta.Dates, cfg.Snapshot.Path)
				}
			}

			fmt.Fprintln(out, "✓ Wird initialized successfully")
			return nil
		},
	}
}

func newTasksCmd() *cobra.Command {
	var typeFilter string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks with today's completion state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *models.TaskType
			if typeFilter != "" {
				tt, err := models.ParseTaskType(typeFilter)
				if err != nil {
					return err
				}
				filter = &tt
			}
			return withApp(cmd, func(a *app) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tTYPE\tFREQUENCY\tTODAY")
				for _, t := range a.ledger.ListTasks(filter) {
					done := " "
					if a.ledger.IsCompletedToday(t.ID) {
						done = "x"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t[%s]\n", t.ID, t.Name, t.Type, t.Frequency, done)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&typeFilter, "type", "", "Filter by type (prayer, zikr, other)")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show storage backend and ledger size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Backend:   %s\n", cfg.Storage.Backend)
				fmt.Fprintf(out, "Tasks:     %d\n", len(a.ledger.ListTasks(nil)))
				fmt.Fprintf(out, "Days:      %d\n", len(a.ledger.History()))
				fmt.Fprintf(out, "Retention: %d months (keeping %s onward)\n", cfg.Retention.Months, a.ledger.RetentionCutoff())

				database, ok := a.store.(*db.DB)
				if !ok {
					return nil
				}
				entries, err := database.ListEntries(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "\nKEY\tBYTES\tUPDATED")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%d\t%s\n", e.Key, e.Size, e.UpdatedAt.Format(time.DateTime))
				}
				return w.Flush()
			})
		},
	}
}

func newAddCmd() *cobra.Command {
	var description, typ, frequency string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a custom task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				task, err := a.ledger.AddTask(cmd.Context(), args[0], description, models.Frequency(frequency), models.TaskType(typ))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Added task %d: %s (%s, %s)\n", task.ID, task.Name, task.Type, task.Frequency)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&typ, "type", string(models.TaskTypeOther), "Task type (prayer, zikr, other)")
	cmd.Flags().StringVar(&frequency, "frequency", string(models.FrequencyDaily), "Frequency (daily, weekly, monthly)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a custom task and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				task, ok := a.ledger.Task(id)
				if !ok {
					return fmt.Errorf("%w: %d", ledger.ErrTaskNotFound, id)
				}
				if !a.ledger.DeleteTask(cmd.Context(), id) {
					return fmt.Errorf("task %q is protected and cannot be deleted", task.Name)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted task %d: %s\n", id, task.Name)
				return nil
			})
		},
	}
}

func newToggleCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "toggle ID",
		Short: "Flip a task's completion for a date (default today)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				d := date
				if d == "" {
					d = a.ledger.Today()
				}
				completed, err := a.ledger.Toggle(cmd.Context(), id, d)
				if err != nil {
					return err
				}
				task, _ := a.ledger.Task(id)
				state := "not done"
				if completed {
					state = "done"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s on %s: %s\n", task.Name, d, state)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats ID",
		Short: "Show completion stats for one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				task, ok := a.ledger.Task(id)
				if !ok {
					return fmt.Errorf("%w: %d", ledger.ErrTaskNotFound, id)
				}
				stats, err := a.ledger.ComputeTaskStats(id, days)
				if err != nil {
					return err
				}
				grade := models.GradeFor(stats.Percentage)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d days (%d%%) grade %s\n",
					task.Name, stats.CompletedDays, stats.TotalDays, stats.Percentage, grade.Letter)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Window size in days")
	return cmd
}

func newReportCmd() *cobra.Command {
	var period string
	var days int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a graded report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				var (
					report models.Report
					err    error
				)
				if cmd.Flags().Changed("days") {
					report, err = a.ledger.GenerateReportWindow(days)
				} else {
					var p models.Period
					p, err = models.ParsePeriod(period)
					if err == nil {
						report, err = a.ledger.GenerateReport(p)
					}
				}
				if err != nil {
					return err
				}
				printReport(cmd, report)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", string(models.PeriodWeek), "Period (week, month, all)")
	cmd.Flags().IntVar(&days, "days", 0, "Custom window in days; overrides --period")
	return cmd
}

func printReport(cmd *cobra.Command, r models.Report) {
	out := cmd.OutOrStdout()
	o := r.Overall
	fmt.Fprintf(out, "Report (%s): %s to %s, %d days\n", r.Period, r.StartDate, r.EndDate, r.TotalDays)
	if !r.HasData {
		fmt.Fprintln(out, "No activity recorded in this period")
	}
	fmt.Fprintf(out, "Overall: %s %d%% (%d/%d)\n\n", o.Grade.Letter, o.OverallPercentage, o.CompletedTasks, o.PossibleTasks)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tGRADE\tPERCENT\tDONE")
	for _, tt := range models.TaskTypes {
		ts := o.TypeStats[tt]
		if ts.Tasks == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%d/%d\n", tt, ts.Grade.Letter, ts.Percentage, ts.Completions, ts.Possible)
	}
	fmt.Fprintln(w, "\t\t\t")
	fmt.Fprintln(w, "TASK\tGRADE\tPERCENT\tDONE")
	for _, row := range r.Tasks {
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%d/%d\n", row.Name, row.Grade.Letter, row.Percentage, row.CompletedDays, row.TotalDays)
	}
	w.Flush()
}

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove history older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				cutoff := a.ledger.RetentionCutoff()
				removed := a.ledger.CleanupOlderThan(cmd.Context(), cutoff)
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d days before %s\n", removed, cutoff)
				return nil
			})
		},
	}
}

func newTrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track",
		Short: "Open the interactive daily tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				return ui.RunTracker(cmd.Context(), a.ledger)
			})
		},
	}
}

func newWebCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the JSON API and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = cfg.Web.Port
			}
			return withApp(cmd, func(a *app) error {
				srv := server.NewServer(a.ledger, a.metrics, logger)

				g, ctx := errgroup.WithContext(cmd.Context())
				g.Go(func() error {
					if err := srv.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})

				fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://localhost:%s\n", port)
				return g.Wait()
			})
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (defaults to web.port from config)")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ledger as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				logger.Info("starting MCP server on stdio")
				return mcp.Serve(mcp.NewServer(a.ledger, logger))
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [PATH]",
		Short: "Write a JSONL snapshot of tasks and history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.Snapshot.Path
			if len(args) > 0 {
				path = args[0]
			}
			return withApp(cmd, func(a *app) error {
				if err := a.ledger.Flush(cmd.Context()); err != nil {
					return err
				}
				meta, err := snapshot.Export(cmd.Context(), a.store, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d tasks and %d days to %s\n", meta.Tasks, meta.Dates, path)
				return nil
			})
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [PATH]",
		Short: "Replace tasks and history with a JSONL snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.Snapshot.Path
			if len(args) > 0 {
				path = args[0]
			}
			st, closeFn, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			meta, err := importSnapshot(cmd.Context(), st, path)
			if err != nil {
				return err
			}
			logger.Info("snapshot imported", zap.String("path", path), zap.String("snapshot_id", meta.SnapshotID))
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d tasks and %d days from %s\n", meta.Tasks, meta.Dates, path)
			return nil
		},
	}
}

func newQiblaCmd() *cobra.Command {
	var lat, lng float64
	cmd := &cobra.Command{
		Use:   "qibla",
		Short: "Print the bearing towards the Kaaba",
		RunE: func(cmd *cobra.Command, args []string) error {
			bearing, err := qibla.Bearing(lat, lng)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Qibla: %.1f° (%s)\n", bearing, qibla.Compass(bearing))
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in degrees")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude in degrees")
	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lng")
	return cmd
}
