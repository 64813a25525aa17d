// Command moisturectl plays the sensor side of the system: it writes
// readings into a record store and injects update events.
//
// Usage:
//
//	moisturectl put fern --moisture 25 --token T1 --name Fern
//	moisturectl put fern --moisture 15 --backend postgres
//	moisturectl get fern --backend rtdb
//	moisturectl event fern --before '{"moisture_value":25}' --after '{"moisture_value":15,"fcm_token":"T1"}'
//	moisturectl install-trigger --channel moisture_monitoring_updated
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/moisturealert/internal/config"
	"github.com/hamed0406/moisturealert/internal/domain"
	"github.com/hamed0406/moisturealert/internal/platform"
	"github.com/hamed0406/moisturealert/internal/repo"
	"github.com/hamed0406/moisturealert/internal/repo/postgres"
	"github.com/hamed0406/moisturealert/internal/repo/rtdb"
)

type globalFlags struct {
	api     string
	key     string
	backend string
	timeout time.Duration
}

func main() {
	cfg := config.FromEnv()
	g := &globalFlags{}

	root := &cobra.Command{
		Use:          "moisturectl",
		Short:        "Write soil moisture readings and inject update events",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.api, "api", envOr("API_BASE", "http://localhost:8080"), "notifier API base URL")
	root.PersistentFlags().StringVar(&g.key, "key", os.Getenv("MOISTURE_API_KEY"), "API key sent as X-API-Key")
	root.PersistentFlags().StringVar(&g.backend, "backend", "api", "record store: api|postgres|rtdb")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 15*time.Second, "overall command timeout")

	root.AddCommand(putCmd(cfg, g))
	root.AddCommand(getCmd(cfg, g))
	root.AddCommand(eventCmd(g))
	root.AddCommand(installTriggerCmd(cfg, g))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func putCmd(cfg config.Config, g *globalFlags) *cobra.Command {
	var (
		moisture float64
		token    string
		name     string
	)
	cmd := &cobra.Command{
		Use:   "put <plantId>",
		Short: "Write a monitoring record; overwriting an existing one fires an update",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := domain.MonitoringRecord{FCMToken: domain.Text(token), PlantName: domain.Text(name)}
			if cmd.Flags().Changed("moisture") {
				rec.MoistureValue = domain.NewReading(moisture)
			}
			return withStore(cfg, g, func(ctx context.Context, st repo.RecordStore) error {
				if err := st.Put(ctx, domain.PlantID(args[0]), rec); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s via %s\n", args[0], g.backend)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&moisture, "moisture", 0, "moisture_value (omit to write a record without a reading)")
	cmd.Flags().StringVar(&token, "token", "", "fcm_token")
	cmd.Flags().StringVar(&name, "name", "", "plant_name")
	return cmd
}

func getCmd(cfg config.Config, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <plantId>",
		Short: "Print a monitoring record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, g, func(ctx context.Context, st repo.RecordStore) error {
				rec, err := st.Get(ctx, domain.PlantID(args[0]))
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			})
		},
	}
}

func eventCmd(g *globalFlags) *cobra.Command {
	var before, after string
	cmd := &cobra.Command{
		Use:   "event <plantId>",
		Short: "POST a before/after pair to the notifier as if the database changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(g)
			defer cancel()

			out, err := newAPIClient(g.api, g.key).PostEvent(ctx, domain.PlantID(args[0]), []byte(before), []byte(after))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(out, '\n'))
			return err
		},
	}
	cmd.Flags().StringVar(&before, "before", "null", "record JSON before the write")
	cmd.Flags().StringVar(&after, "after", "null", "record JSON after the write")
	return cmd
}

func installTriggerCmd(cfg config.Config, g *globalFlags) *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "install-trigger",
		Short: "Create the Postgres table and the NOTIFY trigger the listener consumes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			ctx, cancel := commandContext(g)
			defer cancel()

			st, err := postgres.New(ctx, cfg.DatabaseURL, zap.NewNop())
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.InstallTrigger(ctx, channel); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trigger installed on channel %s\n", channel)
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", cfg.ListenChannel, "pg_notify channel")
	return cmd
}

// withStore opens the backend named by --backend for one command.
func withStore(cfg config.Config, g *globalFlags, fn func(context.Context, repo.RecordStore) error) error {
	ctx, cancel := commandContext(g)
	defer cancel()

	switch g.backend {
	case "api":
		return fn(ctx, newAPIClient(g.api, g.key))
	case "postgres":
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for --backend postgres")
		}
		st, err := postgres.New(ctx, cfg.DatabaseURL, zap.NewNop())
		if err != nil {
			return err
		}
		defer st.Close()
		return fn(ctx, st)
	case "rtdb":
		if cfg.FirebaseDatabaseURL == "" {
			return fmt.Errorf("FIREBASE_DATABASE_URL is required for --backend rtdb")
		}
		app, err := platform.Init(ctx, platform.Options{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentialsFile,
			DatabaseURL:     cfg.FirebaseDatabaseURL,
		})
		if err != nil {
			return err
		}
		st, err := rtdb.New(ctx, app, cfg.MonitoringPath)
		if err != nil {
			return err
		}
		return fn(ctx, st)
	default:
		return fmt.Errorf("unknown backend %q (want api, postgres or rtdb)", g.backend)
	}
}

func commandContext(g *globalFlags) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	return ctx, func() { cancel(); stop() }
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
