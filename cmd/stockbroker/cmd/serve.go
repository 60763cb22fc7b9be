package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zappabad/stockbroker/internal/leaderboard"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the leaderboard feed over websocket",
	Long: `Watch the remote leaderboard and push the top entries to every
connected websocket client, once on connect and after every change.

Requires a remote driver other than "none".`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	remote, err := openRemote(ctx, logger)
	if err != nil {
		return fmt.Errorf("open remote store: %w", err)
	}
	if remote == nil {
		return leaderboard.ErrOffline
	}
	defer remote.Close()

	svc := leaderboard.NewService(leaderboard.Config{Size: cfg.Leaderboard.Size}, remote, logger)
	defer svc.Close()
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("watch leaderboard: %w", err)
	}

	feedCfg := leaderboard.DefaultFeedConfig()
	feedCfg.PingInterval = cfg.Leaderboard.PingInterval
	feedCfg.ReadTimeout = 2 * cfg.Leaderboard.PingInterval
	feed := leaderboard.NewFeedHandler(svc, feedCfg, logger)
	defer feed.Close()

	mux := http.NewServeMux()
	mux.Handle(cfg.Leaderboard.Path, feed)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := cfg.Leaderboard.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("leaderboard feed listening", "addr", addr, "path", cfg.Leaderboard.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	// Close the feed first so hijacked websocket connections are released.
	feed.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
