package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jonathan/foodtruck-agent/internal/config"
	"github.com/jonathan/foodtruck-agent/internal/logging"
)

// cli carries state shared by every subcommand of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	memory  bool
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:          "foodtruck_agent",
		Short:        "Food truck data acquisition agent",
		Long:         "Discovers food truck websites, scrapes and extracts structured vendor records, deduplicates them against the store, and schedules the whole loop.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "Path to a YAML config file (values are overridden by env and flags)")
	flags.BoolVar(&c.memory, "memory", false, "Use the in-memory store instead of PostgreSQL")
	flags.String("log-level", "info", "Log level: debug | info | warn | error")
	flags.Bool("dev-log", false, "Human-readable console logging")
	flags.String("db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL)")
	c.bindFlag("log.level", flags, "log-level")
	c.bindFlag("log.development", flags, "dev-log")
	c.bindFlag("database_url", flags, "db-url")

	root.AddCommand(
		newServeCmd(c),
		newRunCmd(c),
		newSubmitJobCmd(c),
		newProcessJobCmd(c),
		newProcessPendingCmd(c),
		newRetrySweepCmd(c),
		newDiscoverCmd(c),
		newCheckDuplicatesCmd(c),
		newMergeCmd(c),
		newScheduleCmd(c),
	)
	return root
}

// setup loads and validates configuration and builds the logger.
func (c *cli) setup() error {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}

func (c *cli) bindFlag(key string, fs *pflag.FlagSet, name string) {
	if err := c.v.BindPFlag(key, fs.Lookup(name)); err != nil {
		panic(fmt.Sprintf("bindFlag %q -> %q: %v", name, key, err))
	}
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
