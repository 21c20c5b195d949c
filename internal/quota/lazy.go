package quota

import (
	"context"
	"sync"
	"sync/atomic"

	"tourgate/internal/config"
	"tourgate/internal/logging"
)

// Lazy memoizes enforcer construction so concurrent first requests share one
// store handle instead of racing to open duplicate connections.
type Lazy struct {
	cfg      config.QuotaConfig
	once     sync.Once
	started  atomic.Bool
	enforcer *Enforcer
}

// NewLazy prepares a memoized enforcer for the given configuration.
func NewLazy(cfg config.QuotaConfig) *Lazy {
	return &Lazy{cfg: cfg}
}

// NewLazyWithEnforcer wraps an already-built enforcer, bypassing store
// construction. Used by tests and embedded deployments.
func NewLazyWithEnforcer(enforcer *Enforcer) *Lazy {
	l := &Lazy{}
	l.once.Do(func() { l.enforcer = enforcer })
	l.started.Store(true)
	return l
}

// Get returns the shared enforcer, building it on first use. When no store is
// configured, or the store cannot be reached, the enforcer runs pass-through.
func (l *Lazy) Get(ctx context.Context) *Enforcer {
	l.started.Store(true)
	l.once.Do(func() {
		logger := logging.NewComponentLogger("Quota")

		if l.cfg.MongoURI == "" {
			logger.Info("No quota store configured, running unmetered")
			l.enforcer = NewEnforcer(nil, l.cfg)
			return
		}

		store, err := NewMongoStore(ctx, l.cfg)
		if err != nil {
			logger.Error("Quota store unavailable, running unmetered: %v", err)
			l.enforcer = NewEnforcer(nil, l.cfg)
			return
		}

		logger.Info("Quota store connected: limit=%d window=%s", l.cfg.Limit, l.cfg.Window())
		l.enforcer = NewEnforcer(store, l.cfg)
	})
	return l.enforcer
}

// Close releases the enforcer's store if one was ever built. A process that
// never served a metered request must not open a store connection just to
// tear it down again.
func (l *Lazy) Close(ctx context.Context) error {
	if !l.started.Load() {
		return nil
	}
	// Ran-or-waits on the construction in Get, so reading l.enforcer is safe.
	l.once.Do(func() {})
	if l.enforcer == nil {
		return nil
	}
	return l.enforcer.Close(ctx)
}
