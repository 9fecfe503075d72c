package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maauso/appreciation-reel/internal/config"
)

// flagValues holds command line overrides. Only flags the user set are
// applied on top of env and file configuration.
type flagValues struct {
	configFile    string
	input         string
	output        string
	temp          string
	noNormalize   bool
	keepTemp      bool
	noTransitions bool
	noTitleCards  bool
	workers       int
}

func newRootCommand() *cobra.Command {
	flags := &flagValues{}

	rootCmd := &cobra.Command{
		Use:           "splicer",
		Short:         "Splice per-recipient clips into appreciation videos",
		Long:          "Scans a directory of <first>_<last>_<submitter>.<ext> clips, groups them by recipient and writes one video per recipient.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := cfg.NewLogger()
			return runSplice(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "TOML configuration file")

	bindRunFlags(rootCmd, flags)

	rootCmd.AddCommand(newHistoryCommand(flags))

	return rootCmd
}

// bindRunFlags registers the run flags on cmd.
func bindRunFlags(cmd *cobra.Command, flags *flagValues) {
	f := cmd.Flags()
	f.StringVarP(&flags.input, "input", "i", "", "Directory containing the input clips")
	f.StringVarP(&flags.output, "output", "o", "", "Directory for the finished videos")
	f.StringVarP(&flags.temp, "temp", "t", "", "Directory for intermediate files")
	f.BoolVar(&flags.noNormalize, "no-normalize", false, "Skip clip normalization")
	f.BoolVar(&flags.keepTemp, "keep-temp", false, "Keep intermediate files after the run")
	f.BoolVar(&flags.noTransitions, "no-transitions", false, "Skip fade transitions")
	f.BoolVar(&flags.noTitleCards, "no-title-cards", false, "Skip intro and submitter title cards")
	f.IntVarP(&flags.workers, "workers", "w", 0, "Parallel normalization workers")
}

// loadConfig builds the configuration and applies the flags the user set.
func loadConfig(cmd *cobra.Command, flags *flagValues) (*config.Config, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, flags.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("input") {
		cfg.InputDir = flags.input
	}
	if changed("output") {
		cfg.OutputDir = flags.output
	}
	if changed("temp") {
		cfg.TempDir = flags.temp
	}
	if changed("no-normalize") {
		cfg.Normalize = !flags.noNormalize
	}
	if changed("keep-temp") {
		cfg.KeepTemp = flags.keepTemp
	}
	if changed("no-transitions") {
		cfg.Transitions = !flags.noTransitions
	}
	if changed("no-title-cards") {
		cfg.TitleCards = !flags.noTitleCards
	}
	if changed("workers") {
		cfg.Workers = flags.workers
	}
	return cfg, nil
}
