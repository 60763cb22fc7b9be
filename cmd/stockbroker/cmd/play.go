package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zappabad/stockbroker/tui"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start the game",
	Long: `Start the terminal game. Progress is saved to the data directory
after every change and restored on the next start.

Keys:
  ↑/↓  select company    b/s  buy/sell one share
  tab  switch panel      t    toggle theme
  l/o  sign in/out       r    reset the game
  n    dismiss notice    q    quit`,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the UI, so logs go to a file.
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := tea.LogToFile(cfg.Log.File, "stockbroker")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	logger, err := newLogger(logFile)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx := cmd.Context()
	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.game.Start(ctx); err != nil {
		return fmt.Errorf("start game: %w", err)
	}

	p := tea.NewProgram(tui.NewModel(a.game), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}
