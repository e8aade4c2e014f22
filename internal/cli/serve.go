package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/app"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load both models and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cleanup, err := setup(*debug)
			if err != nil {
				return err
			}
			defer cleanup()
			log := logger.L()

			gin.SetMode(cfg.GinMode)
			application, err := app.New(cfg, log)
			if err != nil {
				log.Error("app.init_failed", "error", err)
				return err
			}
			defer application.Close()

			server := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           application.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      cfg.NarrativeTimeout + 30*time.Second,
				IdleTimeout:       60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("server.listening", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				log.Info("server.shutting_down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				log.Error("server.stopped", "error", err)
				return err
			}
			log.Info("server.stopped")
			return nil
		},
	}
}
