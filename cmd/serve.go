package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alimasry/go-collab-cms/server"
	"github.com/alimasry/go-collab-cms/store"
	"github.com/alimasry/go-collab-cms/workspace"
)

var autosave bool

func init() {
	serveCmd.Flags().BoolVar(&autosave, "autosave", true, "Save a project after every change")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket gateway",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
		defer stop()

		opts, err := workspaceOptions(cfg)
		if err != nil {
			return err
		}
		st, err := store.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(); err != nil {
				slog.Error("serve: failed to close store", "error", err)
			}
		}()

		hub := server.NewHub(workspace.New(st, append(opts, workspace.WithAutosave(autosave))...))
		go hub.Run()
		defer hub.Close()

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           server.NewHandler(hub),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errc := make(chan error, 1)
		go func() {
			slog.Info("serve: listening", "addr", cfg.Addr, "environment", cfg.Environment)
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		slog.Info("serve: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
