package main

import (
	"fmt"

	"github.com/Sternrassler/cinegrid/internal/config"
	"github.com/Sternrassler/cinegrid/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli carries state shared by the subcommands.
type cli struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	rootCmd := &cobra.Command{
		Use:           "cinegrid",
		Short:         "Paginated TMDB movie and TV grids",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default ./cinegrid.yaml or $HOME/.cinegrid/cinegrid.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("pretty", false, "human-readable console logs")
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("log.pretty", flags.Lookup("pretty"))

	rootCmd.AddCommand(
		newServeCmd(c),
		newBrowseCmd(c),
	)

	return rootCmd
}

func (c *cli) load() error {
	cfg, err := config.LoadFrom(c.v, c.configPath)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Pretty = cfg.Log.Pretty
	logging.Setup(logCfg)

	c.cfg = cfg
	return nil
}
