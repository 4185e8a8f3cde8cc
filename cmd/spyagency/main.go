package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"spyagency/internal/app"
	"spyagency/internal/config"
	"spyagency/internal/migrate"
	"spyagency/internal/server"
)

var version = "dev"

// v carries defaults, spyagency.yml, SPYAGENCY_* env and the bound flags.
var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "spyagency",
	Short: "Spy Cat Agency service and CLI",
	Long: `Spy Cat Agency manages spy cats, their missions and the targets of each mission.
- Cats: agents with a breed validated against TheCatAPI; only the salary can change after hiring.
- Missions: one to three targets; a cat works at most one active mission at a time.
- Targets: notes are frozen once the target or its mission is complete; completing the last target completes the mission.
Run 'spyagency serve' for the HTTP API, the other commands talk to a running server (see --api-url).`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default ./"+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("api-url", "http://127.0.0.1:8000", "base URL of a running agency API")
	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = v.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(catCmd())
	rootCmd.AddCommand(missionCmd())
	rootCmd.AddCommand(targetCmd())
}

func loadConfig() (*config.Config, error) {
	return config.LoadWith(v, v.GetString("config"))
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.Bootstrap(cmd.Context(), cfg, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			handler, err := server.New(server.Config{Engine: a.Engine, Logger: a.Logger, Metrics: a.Metrics, Version: version})
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           handler,
				ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
			}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					a.Logger.Error("shutdown", "err", err)
				}
			}()
			a.Logger.Info("serving agency API", "addr", cfg.Server.Addr, "dialect", string(a.Dialect), "openapi", "/openapi.json", "docs", "/docs")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			a.Logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func migrateCmd() *cobra.Command {
	mig := &cobra.Command{Use: "migrate", Short: "Manage the database schema"}
	mig.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, a *app.App) error {
				applied, err := migrate.Migrate(ctx, a.DB, a.Dialect)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"applied": applied}, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"Applied"})
					for _, ver := range applied {
						tw.AppendRow(table.Row{ver})
					}
				})
			})
		},
	})
	mig.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, a *app.App) error {
				ver, err := migrate.Version(ctx, a.DB, a.Dialect)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return printJSON(map[string]any{"version": ver, "dialect": a.Dialect})
				}
				fmt.Printf("%s schema version %d\n", a.Dialect, ver)
				return nil
			})
		},
	})
	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return migrate.Rollback(ctx, a.DB, a.Dialect, steps)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	mig.AddCommand(down)
	return mig
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long:  "Configuration comes from defaults, then spyagency.yml (or --config), then SPYAGENCY_* environment variables.",
	}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective config (secrets redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			out, err := c.YAML()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadConfig()
			if v.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	})
	return cfg
}

// --- helpers ---

func withDatabase(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.Bootstrap(ctx, cfg, app.Options{SkipMigrations: true})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// printJSONOrTable prints v as JSON under --json, otherwise lets render fill a table.
func printJSONOrTable(val any, render func(table.Writer)) error {
	if v.GetBool("json") {
		return printJSON(val)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	render(tw)
	tw.Render()
	return nil
}

func printJSON(val any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(val)
}
