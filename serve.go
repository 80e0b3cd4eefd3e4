package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"travelplanner/config"
	"travelplanner/handler"
	"travelplanner/logging"
	"travelplanner/queue"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var (
		listen    string
		warmUp    bool
		allowFrom []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web form and the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.GetLogger()

			cfg, err := config.LoadConfig(cliArgs.ConfigFile)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.ListenAddress = listen
			}
			if cliArgs.Debug {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if warmUp {
				status, err := a.planner.Initialize(ctx)
				if err != nil {
					return err
				}
				log.Infoln(status)
			}

			jobs := queue.NewJobQueue(a.planner, cfg.Planner.Workers, cfg.Planner.QueueSize, cfg.Planner.Timeout, cfg.Planner.Retention)
			defer jobs.Shutdown()

			httpHandler := handler.NewHTTPHandler(jobs, a.planner, a.manager, a.limiter, handler.Options{
				Title:          cfg.Title,
				RateLimit:      cfg.RateLimit,
				AllowedOrigins: allowFrom,
			})

			server := &http.Server{
				Addr:              cfg.ListenAddress,
				Handler:           httpHandler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				log.Infof("Starting server on %s", cfg.ListenAddress)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					log.Errorf("Server failed to start: %v", err)
				}
				return err
			case <-ctx.Done():
			}

			log.Infoln("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Errorf("Server forced to shutdown: %v", err)
				return err
			}
			log.Infoln("Server exited")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on, overrides listen_address")
	cmd.Flags().BoolVar(&warmUp, "init-agents", false, "Initialize the agents before accepting requests")
	cmd.Flags().StringSliceVar(&allowFrom, "cors-origin", nil, "Origins allowed to call the JSON API (default any)")
	return cmd
}
