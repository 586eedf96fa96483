package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hurttlocker/nuggets/internal/config"
	"github.com/hurttlocker/nuggets/internal/logging"
	"github.com/hurttlocker/nuggets/internal/state"
	"github.com/hurttlocker/nuggets/internal/store"
)

var version = "0.1.0-dev"

// app carries global flags and what PersistentPreRunE builds from them.
type app struct {
	configPath string
	envFile    string
	storeName  string
	dbPath     string
	logMode    string
	verbose    bool

	cfg    config.ResolvedConfig
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "nuggets",
		Short: "Telegram bot that turns Kindle highlights into weekly wisdom nuggets",
		Long: `nuggets stores your Kindle highlights, tags them by topic and sends
random nuggets on request or as a weekly Monday reminder.

Run "nuggets run" to start the bot.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(config.ResolveOptions{
				ConfigPath: a.configPath,
				DotEnvPath: a.envFile,
				CLIStore:   a.storeName,
				CLIDB:      a.dbPath,
				CLILog:     a.logMode,
			})
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger, err := logging.New(cfg.Log.Value, a.verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.nuggets/config.yaml)")
	flags.StringVar(&a.envFile, "env-file", "", `dotenv file to load (default ".env", "-" to skip)`)
	flags.StringVar(&a.storeName, "store", "", "store backend: sqlite, redis or memory")
	flags.StringVar(&a.dbPath, "db", "", "sqlite database path")
	flags.StringVar(&a.logMode, "log", "", "log mode: prod or dev")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRunCmd(a),
		newParseCmd(a),
		newRemindersCmd(a),
		newMCPCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// openState opens the configured store and loads the three records.
func (a *app) openState(ctx context.Context) (*state.Manager, store.Store, error) {
	st, err := store.Open(ctx, a.cfg.StoreConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	mgr := state.NewManager(st, a.logger.Named("state"))
	mgr.Load(ctx)
	return mgr, st, nil
}

func newConfigCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration and where each value came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			entries := a.cfg.Entries()
			if asJSON {
				m := make(map[string]config.ResolvedValue, len(entries))
				for _, e := range entries {
					m[e.Name] = e.Value
				}
				data, _ := json.MarshalIndent(map[string]any{"config_path": a.cfg.ConfigPath, "values": m}, "", "  ")
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprintf(out, "config file: %s\n\n", a.cfg.ConfigPath)
			for _, e := range entries {
				v := e.Value.Value
				if v == "" {
					v = "(unset)"
				}
				src := string(e.Value.Source)
				if src == "" {
					src = string(config.SourceUnknown)
				}
				if e.Value.From != "" {
					src += ": " + e.Value.From
				}
				fmt.Fprintf(out, "  %-18s %-50s [%s]\n", e.Name, v, src)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "nuggets %s\n", version)
			return nil
		},
	}
}
