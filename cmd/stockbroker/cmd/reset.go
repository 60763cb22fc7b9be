package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear saved progress and start a new session",
	Long: `Reset cash, portfolio, day and prices to a fresh session. When a
player is signed in on this device the remote record is reset too.`,
	RunE: runReset,
}

var resetYes bool

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "do not ask for confirmation")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		fmt.Fprint(cmd.OutOrStdout(), "Reset game? All progress will be lost. [y/N] ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.game.Start(ctx); err != nil {
		return fmt.Errorf("start game: %w", err)
	}
	if err := a.game.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Game reset! All progress has been cleared.")
	return nil
}
