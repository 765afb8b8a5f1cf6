// Package watchdog auto-terminates sessions that stop receiving segments.
// An abandoned session holds protected conversational text, so inactivity
// past the window ends it as failed, which purges the segments.
package watchdog

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/terra-femme/MedJournee/internal/model"
	"github.com/terra-femme/MedJournee/internal/services"
)

// Config controls the inactivity window and sweep cadence.
type Config struct {
	Window   time.Duration
	Interval time.Duration
}

// Watchdog sweeps the session registry and ends idle sessions.
type Watchdog struct {
	sessions *services.SessionService
	registry *services.SessionRegistry
	cfg      Config
	log      zerolog.Logger
}

func New(sessions *services.SessionService, registry *services.SessionRegistry, cfg Config, log zerolog.Logger) *Watchdog {
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Watchdog{sessions: sessions, registry: registry, cfg: cfg, log: log}
}

// Run starts the sweep loop until ctx is canceled.
func (w *Watchdog) Run(ctx context.Context) error {
	w.log.Info().Dur("window", w.cfg.Window).Dur("interval", w.cfg.Interval).Msg("session watchdog starting")
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("session watchdog stopping")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Watchdog) sweep(ctx context.Context) {
	for _, id := range w.registry.Idle(w.cfg.Window) {
		_, err := w.sessions.End(ctx, id, model.SessionFailed)
		switch {
		case err == nil:
			w.log.Warn().Str("sessionID", id).Msg("session auto-terminated after inactivity")
		case errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrNotFound):
			// Already settled by another path; stop tracking it.
			w.registry.Forget(id)
		default:
			// Purge trouble keeps the session tracked; retried next sweep.
			w.log.Error().Err(err).Str("sessionID", id).Msg("watchdog failed to end idle session")
		}
	}
}
