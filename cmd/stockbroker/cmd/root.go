package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zappabad/stockbroker/internal/config"
)

var (
	configPath string
	dataDir    string
	logLevel   string

	// cfg is loaded once before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "stockbroker",
	Short: "A 30-day stock trading game for the terminal",
	Long: `StockBroker is a stock trading game played in the terminal.

Trade five companies whose prices follow a random walk or live quotes,
react to breaking news, and finish the 30-day session with the highest
net worth you can. Sign in to sync progress and compete on the
leaderboard.

Commands:
  play         - Start the game (default)
  serve        - Serve the leaderboard feed over websocket
  leaderboard  - Print the current top players
  reset        - Clear saved progress
  config       - Generate or validate configuration files`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}
		if dataDir != "" {
			if err := os.Setenv(config.EnvDataDir, dataDir); err != nil {
				return err
			}
		}
		if logLevel != "" {
			if err := os.Setenv(config.EnvLogLevel, logLevel); err != nil {
				return err
			}
		}

		loaded, err := config.LoadAndValidate(configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", configPath, err)
		}
		cfg = loaded
		return nil
	},
	RunE: runPlay,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFileName, "config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for saved progress (default is the user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}
