package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zappabad/stockbroker/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage the stockbroker configuration file.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  stockbroker config init -o stockbroker.yaml
  stockbroker config validate -f stockbroker.yaml`,
	// config files are handled explicitly by the subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(".env")
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configInitForce    bool
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", config.DefaultConfigFileName, "output config file path")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", config.DefaultConfigFileName, "path to config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.Write(configInitOutput, config.Default(), configInitForce); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and play with:")
	fmt.Fprintf(out, "  stockbroker play -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadAndValidate(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Game: $%.2f starting cash, %d days\n", c.Game.StartingCash, c.Game.MaxDays)
	fmt.Fprintf(out, "  Quotes: %s\n", quoteSummary(c))
	fmt.Fprintf(out, "  Remote: %s\n", c.Remote.Driver)
	fmt.Fprintf(out, "  Data: %s\n", c.Storage.DataDir)
	return nil
}

func quoteSummary(c *config.Config) string {
	if !c.Quote.Enabled {
		return "random walk"
	}
	return fmt.Sprintf("%s (%d calls per %s)", c.Quote.BaseURL, c.Quote.CallsPerWindow, c.Quote.Window)
}
