package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/haoranw/steamgate/internal/config"
	"github.com/haoranw/steamgate/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steamgate",
		Short: "Steamgate — managed Steam chat-session gateway",
		Long: "Steamgate keeps one authenticated Steam chat session alive and exposes it\n" +
			"over a bearer-authenticated HTTP control plane for automation to drive.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env supplies STEAMGATE_GATEWAY_TOKEN and friends in dev
			// setups; absence is not an error.
			_ = godotenv.Load()

			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.steamgate/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newUserInfoCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
