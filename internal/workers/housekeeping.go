package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"releaseguard/internal/platform/metrics"
)

const defaultInterval = 15 * time.Minute

type ResetTokenPurger interface {
	PurgeExpiredResetTokens(ctx context.Context, now int64) (int64, error)
}

type SessionPurger interface {
	PurgeEnded(ctx context.Context, cutoff int64) (int64, error)
}

// Housekeeper clears reset tokens whose window has closed and deletes ended
// sessions. It never changes a live credential.
type Housekeeper struct {
	tokens   ResetTokenPurger
	sessions SessionPurger
	interval time.Duration
	now      func() time.Time
}

func NewHousekeeper(tokens ResetTokenPurger, sessions SessionPurger, interval time.Duration) *Housekeeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Housekeeper{tokens: tokens, sessions: sessions, interval: interval, now: time.Now}
}

type Result struct {
	ResetTokens int64
	Sessions    int64
}

// RunOnce performs one sweep. A failing step does not stop the other.
func (h *Housekeeper) RunOnce(ctx context.Context) (Result, error) {
	now := h.now().UnixMilli()
	var res Result

	tokens, tokenErr := h.tokens.PurgeExpiredResetTokens(ctx, now)
	if tokenErr != nil {
		log.Ctx(ctx).Error().Err(tokenErr).Msg("purge reset tokens failed")
	} else {
		res.ResetTokens = tokens
		metrics.HousekeepingPurged.WithLabelValues("reset_token").Add(float64(tokens))
	}

	sessions, sessionErr := h.sessions.PurgeEnded(ctx, now)
	if sessionErr != nil {
		log.Ctx(ctx).Error().Err(sessionErr).Msg("purge sessions failed")
	} else {
		res.Sessions = sessions
		metrics.HousekeepingPurged.WithLabelValues("session").Add(float64(sessions))
	}

	if tokenErr != nil {
		return res, tokenErr
	}
	return res, sessionErr
}

// Run sweeps immediately and then on every tick until ctx is done.
func (h *Housekeeper) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if res, err := h.RunOnce(ctx); err == nil {
			log.Ctx(ctx).Info().
				Int64("reset_tokens", res.ResetTokens).
				Int64("sessions", res.Sessions).
				Msg("housekeeping sweep completed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
