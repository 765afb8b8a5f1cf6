// Package visitservice wires configuration, storage, services, the
// watchdog, and the HTTP server into a runnable visit service.
package visitservice

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/terra-femme/MedJournee/internal/api"
	"github.com/terra-femme/MedJournee/internal/config"
	"github.com/terra-femme/MedJournee/internal/platform/factory"
	"github.com/terra-femme/MedJournee/internal/platform/logger"
	"github.com/terra-femme/MedJournee/internal/purge"
	"github.com/terra-femme/MedJournee/internal/services"
	"github.com/terra-femme/MedJournee/internal/speaker"
	"github.com/terra-femme/MedJournee/internal/summarizer"
	"github.com/terra-femme/MedJournee/internal/synthesizer"
	"github.com/terra-femme/MedJournee/internal/watchdog"
)

func logStartup(log zerolog.Logger, cfg *config.Config) {
	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("summarizer_url", cfg.SummarizerURL).
		Msg("Visit service starting")
}

// Run starts the visit service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("visit-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	logStartup(log, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := factory.NewStore(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Store adapter unavailable")
		return err
	}

	registry := services.NewSessionRegistry()
	resolver := speaker.NewResolver(st.Enrollments(), speaker.PlaintextDecoder{}, cfg.MatchThreshold, nil)
	summ := summarizer.New(cfg.SummarizerURL, cfg.SummarizerModel, cfg.SummarizerTimeout(), cfg.SummarizerMaxRetries)
	synth := synthesizer.NewSynthesizer(st, summ, cfg.SummarizerModel)
	purger := purge.NewCoordinator(st)

	sessionSvc := services.NewSessionService(st, synth, purger, registry)
	ingestSvc := services.NewIngestService(st, resolver, registry)
	journalSvc := services.NewJournalService(st)
	enrollSvc := services.NewEnrollmentService(st)

	wd := watchdog.New(sessionSvc, registry, watchdog.Config{
		Window:   cfg.InactivityTimeout(),
		Interval: cfg.WatchdogInterval(),
	}, log)
	go func() { _ = wd.Run(ctx) }()

	router := api.NewRouter(api.Deps{
		Store:       st,
		Sessions:    sessionSvc,
		Ingest:      ingestSvc,
		Journal:     journalSvc,
		Enrollments: enrollSvc,
	})

	server := &http.Server{
		Addr:         cfg.GetHTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}
