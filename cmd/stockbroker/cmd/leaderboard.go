package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zappabad/stockbroker/internal/leaderboard"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Print the current top players",
	RunE:  runLeaderboard,
}

var leaderboardLimit int

func init() {
	rootCmd.AddCommand(leaderboardCmd)
	leaderboardCmd.Flags().IntVarP(&leaderboardLimit, "limit", "n", 0, "number of entries (default from config)")
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	remote, err := openRemote(ctx, logger)
	if err != nil {
		return fmt.Errorf("open remote store: %w", err)
	}
	if remote == nil {
		return leaderboard.ErrOffline
	}
	defer remote.Close()

	limit := cfg.Leaderboard.Size
	if leaderboardLimit > 0 {
		limit = leaderboardLimit
	}
	entries, err := remote.TopLeaderboard(ctx, limit)
	if err != nil {
		return fmt.Errorf("read leaderboard: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No scores yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "#\tPlayer\tNet worth\tUpdated\t")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t$%.2f\t%s\t\n", i+1, e.Username, e.NetWorth, e.Timestamp.Local().Format(time.DateTime))
	}
	return w.Flush()
}
