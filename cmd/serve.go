package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/theopenlane/urlscout/config"
	"github.com/theopenlane/urlscout/internal/api"
	"github.com/theopenlane/urlscout/internal/reputation"
)

// serveCmd is the cobra command that starts the urlscout API server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the urlscout api server",
	Run: func(cmd *cobra.Command, _ []string) {
		err := serve(cmd.Context())
		cobra.CheckErr(err)
	},
}

// init registers the serve command on the root command
func init() {
	rootCmd.AddCommand(serveCmd)
}

// serve initializes dependencies and starts the urlscout API server
func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	manager, err := setupReputation(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setting up reputation: %w", err)
	}

	defer func() { _ = manager.Close() }()

	if cfg.Reputation.AutoHydrate {
		go autoHydrate(ctx, manager)
	}

	s, err := setupScanner(cfg, manager, true)
	if err != nil {
		return fmt.Errorf("setting up scanner: %w", err)
	}

	defer func() { _ = s.Close() }()

	handler := api.NewRouter(s, manager, api.RouterConfig{
		MaxBodySize:    cfg.Server.MaxBodySize,
		RequestTimeout: cfg.Server.RequestTimeout,
		ScanLimit:      cfg.Server.ScanLimit,
		ScanWindow:     cfg.Server.ScanWindow,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGracePeriod)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	logStartup(cfg)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}

	return nil
}

func autoHydrate(ctx context.Context, manager *reputation.Manager) {
	log.Info().Msg("starting automatic feed hydration")

	summary, err := manager.Hydrate(ctx)
	if err != nil {
		log.Error().Err(err).Msg("automatic feed hydration failed")
		return
	}

	log.Info().Int("feeds", summary.SuccessfulFeeds).Int("domains", summary.TotalDomains).Msg("automatic feed hydration complete")
}

func logStartup(cfg *config.Config) {
	log.Info().
		Str("listen", cfg.Server.Listen).
		Dur("budget", cfg.Scanner.Budget).
		Int("low", cfg.Scoring.Low).
		Int("high", cfg.Scoring.High).
		Strs("disabled_checks", cfg.Checks.Disabled).
		Msg("starting urlscout service")
}
