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

	"github.com/ziadkadry99/ai-runner/internal/audit"
	"github.com/ziadkadry99/ai-runner/internal/auth"
	"github.com/ziadkadry99/ai-runner/internal/server"
)

var (
	serverPort int
	serverWarm bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP inference server",
	Long:  `Starts the airunner REST API: summarize, translate, context_predict, rag_predict and documentary base management.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		svc, err := newServices(cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		if serverWarm {
			if err := svc.registry.Warm(); err != nil {
				return err
			}
		}

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var verifier *auth.Verifier
		if cfg.AuthEnabled() {
			verifier, err = auth.NewVerifier(ctx, cfg.Auth)
			if err != nil {
				return fmt.Errorf("configuring authentication: %w", err)
			}
		}

		srv := server.New(server.Config{
			Port:           cfg.Server.Port,
			AllowAll:       cfg.Server.AllowAllOrigins,
			MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
			RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
		}, svc.dispatcher, verifier, audit.NewStore(svc.catalog))

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "airunner server %s starting on port %d\n", Version, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  Catalog: %s\n", svc.catalog.Path())
		fmt.Fprintf(os.Stderr, "  Documentary bases: %v\n", svc.registry.Names())
		fmt.Fprintf(os.Stderr, "  Inference concurrency: %d\n", cfg.InferenceConcurrency())
		if verifier == nil {
			fmt.Fprintln(os.Stderr, "  Authentication: disabled")
		}

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides server.port)")
	serverCmd.Flags().BoolVar(&serverWarm, "warm", false, "Open every documentary base before accepting requests")
	rootCmd.AddCommand(serverCmd)
}
