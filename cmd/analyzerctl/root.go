package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chat-analyzer/gateway/internal/config"
	"github.com/chat-analyzer/gateway/pkg/logger"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	cfgFile    string
	apiBaseURL string
	username   string
	password   string

	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "analyzerctl",
		Short:         "Chat analyzer client",
		Long:          `analyzerctl signs in to the analyzer backend and prints agents, conversations and statistics as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return err
			}
			if opts.apiBaseURL != "" {
				cfg.APIBaseURL = opts.apiBaseURL
			}
			opts.cfg = cfg

			log, err := logger.New(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			opts.log = log
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is $CONFIG_FILE)")
	flags.StringVar(&opts.apiBaseURL, "api-base-url", "", "analyzer backend URL (overrides API_BASE_URL)")
	flags.StringVarP(&opts.username, "username", "u", os.Getenv("ANALYZER_USERNAME"), "backend username")
	flags.StringVarP(&opts.password, "password", "p", os.Getenv("ANALYZER_PASSWORD"), "backend password")

	rootCmd.AddCommand(
		newAgentsCmd(opts),
		newConversationsCmd(opts),
		newStatsCmd(opts),
		newDashboardCmd(opts),
		newSearchCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
