package quota

import (
	"context"
	"time"

	"tourgate/internal/config"
	"tourgate/internal/logging"
	"tourgate/internal/metrics"
)

// WindowState is the post-update view of one fingerprint's sliding window, as
// returned by a single atomic store round trip.
type WindowState struct {
	// Count is the number of admitted timestamps inside the window after the
	// update, including the one appended by this call when admitted.
	Count int
	// Oldest is the earliest retained timestamp; zero when the window is empty.
	Oldest time.Time
	// Allowed reports whether this call's timestamp was appended.
	Allowed bool
}

// Store performs the one-round-trip conditional read-modify-write the
// enforcer's correctness rests on. Two concurrent calls for the same
// fingerprint must serialize inside the store, never in this process.
type Store interface {
	Admit(ctx context.Context, fingerprint string, now time.Time, window time.Duration, limit int) (WindowState, error)
	Close(ctx context.Context) error
}

// Decision is the admission verdict for one request.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetAt is when the oldest retained timestamp leaves the window; only
	// set on denial.
	ResetAt *time.Time
	// Unmetered marks a decision from a pass-through enforcer with no store.
	Unmetered bool
}

// Enforcer gates chat requests behind a per-fingerprint sliding window.
// Without a configured store it degrades to always-allow: an absent quota
// store is a deployment choice, not an error.
type Enforcer struct {
	store  Store
	limit  int
	window time.Duration
	logger logging.Logger
}

// NewEnforcer builds an enforcer over the given store; store may be nil.
func NewEnforcer(store Store, cfg config.QuotaConfig) *Enforcer {
	return &Enforcer{
		store:  store,
		limit:  cfg.Limit,
		window: cfg.Window(),
		logger: logging.NewComponentLogger("Quota"),
	}
}

// Limit returns the configured admission limit.
func (e *Enforcer) Limit() int {
	return e.limit
}

// Window returns the enforcement window.
func (e *Enforcer) Window() time.Duration {
	return e.window
}

// Admit decides whether one more request from fingerprint may proceed. Store
// failures fail open: quota is a throttle, not an availability dependency.
func (e *Enforcer) Admit(ctx context.Context, fingerprint string) Decision {
	if e.store == nil {
		return Decision{Allowed: true, Remaining: e.limit, Unmetered: true}
	}

	// Mongo stores timestamps at millisecond precision; truncate up front so
	// the stored window matches what this process computed with.
	now := time.Now().UTC().Truncate(time.Millisecond)

	state, err := e.store.Admit(ctx, fingerprint, now, e.window, e.limit)
	if err != nil {
		e.logger.Error("Quota store failed, allowing request: %v", err)
		return Decision{Allowed: true, Remaining: e.limit, Unmetered: true}
	}

	decision := Decision{
		Allowed:   state.Allowed,
		Remaining: e.limit - state.Count,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if !state.Allowed && !state.Oldest.IsZero() {
		resetAt := state.Oldest.Add(e.window)
		decision.ResetAt = &resetAt
	}

	metrics.ObserveQuotaDecision(decision.Allowed)
	if !decision.Allowed {
		e.logger.Info("Denied fingerprint %s: %d/%d used in window", fingerprint[:min(12, len(fingerprint))], state.Count, e.limit)
	}
	return decision
}

// Close releases the backing store.
func (e *Enforcer) Close(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	return e.store.Close(ctx)
}
