package health

import (
	"sync"
	"time"

	"github.com/MissyMedina/autodev-gateway/services/providers"
)

// Outcome describes the result of a single provider attempt. Outcomes are
// ephemeral: the tracker folds them into its counters and never retains them.
type Outcome struct {
	Success    bool
	LatencyMs  int64
	ErrorKind  providers.ErrorKind
	TokensUsed int
}

// Config holds health tracking tunables
type Config struct {
	// WindowSize is the number of recent attempts kept per provider
	WindowSize int

	// EMAAlpha is the smoothing factor for the latency moving average
	EMAAlpha float64

	// CircuitThreshold is the consecutive-failure count that opens the circuit
	CircuitThreshold int

	// BackoffBase is the initial circuit-open duration
	BackoffBase time.Duration

	// BackoffMultiplier grows the backoff on repeated trips
	BackoffMultiplier float64

	// BackoffMax caps the circuit-open duration
	BackoffMax time.Duration
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		WindowSize:        50,
		EMAAlpha:          0.3,
		CircuitThreshold:  3,
		BackoffBase:       30 * time.Second,
		BackoffMultiplier: 2.0,
		BackoffMax:        10 * time.Minute,
	}
}

// providerHealth holds the rolling view for one provider. Each provider has
// its own mutex so one provider's bookkeeping never blocks another's.
type providerHealth struct {
	mu sync.Mutex

	// ring of recent attempt results, oldest evicted first
	window []bool
	head   int
	filled int

	successCount        int
	failureCount        int
	emaLatencyMs        float64
	hasLatency          bool
	consecutiveFailures int
	circuitOpenUntil    time.Time
	currentBackoff      time.Duration
	lastErrorKind       providers.ErrorKind
	totalAttempts       uint64
}

// Tracker maintains per-provider health state. Record is safe under
// concurrent calls; Snapshot returns an independent read-only view.
type Tracker struct {
	mu        sync.RWMutex
	providers map[string]*providerHealth
	config    Config

	now func() time.Time
}

// NewTracker creates a new health tracker
func NewTracker(config Config) *Tracker {
	if config.WindowSize <= 0 {
		config.WindowSize = DefaultConfig().WindowSize
	}
	if config.EMAAlpha <= 0 || config.EMAAlpha > 1 {
		config.EMAAlpha = DefaultConfig().EMAAlpha
	}
	if config.CircuitThreshold <= 0 {
		config.CircuitThreshold = DefaultConfig().CircuitThreshold
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = DefaultConfig().BackoffBase
	}
	if config.BackoffMultiplier < 1 {
		config.BackoffMultiplier = DefaultConfig().BackoffMultiplier
	}
	if config.BackoffMax <= 0 {
		config.BackoffMax = DefaultConfig().BackoffMax
	}

	return &Tracker{
		providers: make(map[string]*providerHealth),
		config:    config,
		now:       time.Now,
	}
}

// Record folds an attempt outcome into the provider's rolling view
func (t *Tracker) Record(providerID string, outcome Outcome) {
	ph := t.health(providerID)

	ph.mu.Lock()
	defer ph.mu.Unlock()

	ph.push(outcome.Success)
	ph.totalAttempts++

	if outcome.Success {
		ph.consecutiveFailures = 0
		ph.currentBackoff = t.config.BackoffBase
		ph.circuitOpenUntil = time.Time{}
		ph.lastErrorKind = ""

		if !ph.hasLatency {
			ph.emaLatencyMs = float64(outcome.LatencyMs)
			ph.hasLatency = true
		} else {
			alpha := t.config.EMAAlpha
			ph.emaLatencyMs = alpha*float64(outcome.LatencyMs) + (1-alpha)*ph.emaLatencyMs
		}
		return
	}

	ph.consecutiveFailures++
	ph.lastErrorKind = outcome.ErrorKind

	if ph.consecutiveFailures >= t.config.CircuitThreshold {
		if ph.currentBackoff == 0 {
			ph.currentBackoff = t.config.BackoffBase
		}
		ph.circuitOpenUntil = t.now().Add(ph.currentBackoff)

		// Doubles on repeated trips, capped; resets to base on next success
		next := time.Duration(float64(ph.currentBackoff) * t.config.BackoffMultiplier)
		if next > t.config.BackoffMax {
			next = t.config.BackoffMax
		}
		ph.currentBackoff = next
	}
}

// ProviderHealth is a read-only copy of one provider's rolling view
type ProviderHealth struct {
	ProviderID          string              `json:"provider_id"`
	SuccessCount        int                 `json:"success_count"`
	FailureCount        int                 `json:"failure_count"`
	SuccessRate         float64             `json:"success_rate"`
	EMALatencyMs        float64             `json:"ema_latency_ms"`
	ConsecutiveFailures int                 `json:"consecutive_failures"`
	CircuitOpen         bool                `json:"circuit_open"`
	CircuitOpenUntil    time.Time           `json:"circuit_open_until,omitempty"`
	LastErrorKind       providers.ErrorKind `json:"last_error_kind,omitempty"`
	TotalAttempts       uint64              `json:"total_attempts"`
}

// Snapshot is an immutable view of all tracked providers, keyed by id.
// Providers that have never been attempted are absent.
type Snapshot map[string]ProviderHealth

// Health returns the entry for a provider id. Unknown providers report a
// zero-value entry, which the selector treats as healthy and unproven.
func (s Snapshot) Health(providerID string) ProviderHealth {
	return s[providerID]
}

// Snapshot returns a point-in-time copy of every provider's health
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	ids := make([]string, 0, len(t.providers))
	phs := make([]*providerHealth, 0, len(t.providers))
	for id, ph := range t.providers {
		ids = append(ids, id)
		phs = append(phs, ph)
	}
	t.mu.RUnlock()

	now := t.now()
	snap := make(Snapshot, len(ids))
	for i, ph := range phs {
		ph.mu.Lock()
		entry := ProviderHealth{
			ProviderID:          ids[i],
			SuccessCount:        ph.successCount,
			FailureCount:        ph.failureCount,
			EMALatencyMs:        ph.emaLatencyMs,
			ConsecutiveFailures: ph.consecutiveFailures,
			CircuitOpen:         now.Before(ph.circuitOpenUntil),
			CircuitOpenUntil:    ph.circuitOpenUntil,
			LastErrorKind:       ph.lastErrorKind,
			TotalAttempts:       ph.totalAttempts,
		}
		ph.mu.Unlock()

		if total := entry.SuccessCount + entry.FailureCount; total > 0 {
			entry.SuccessRate = float64(entry.SuccessCount) / float64(total)
		}
		snap[ids[i]] = entry
	}
	return snap
}

// CircuitOpen reports whether a provider's circuit is currently open
func (t *Tracker) CircuitOpen(providerID string) bool {
	t.mu.RLock()
	ph, exists := t.providers[providerID]
	t.mu.RUnlock()
	if !exists {
		return false
	}

	ph.mu.Lock()
	defer ph.mu.Unlock()
	return t.now().Before(ph.circuitOpenUntil)
}

// health returns the per-provider state, creating it on first use
func (t *Tracker) health(providerID string) *providerHealth {
	t.mu.RLock()
	ph, exists := t.providers[providerID]
	t.mu.RUnlock()
	if exists {
		return ph
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if ph, exists = t.providers[providerID]; exists {
		return ph
	}
	ph = &providerHealth{
		window:         make([]bool, t.config.WindowSize),
		currentBackoff: t.config.BackoffBase,
	}
	t.providers[providerID] = ph
	return ph
}

// push records a result in the ring, evicting the oldest when full.
// Caller must hold ph.mu.
func (ph *providerHealth) push(success bool) {
	if ph.filled == len(ph.window) {
		// Evict oldest
		if ph.window[ph.head] {
			ph.successCount--
		} else {
			ph.failureCount--
		}
	} else {
		ph.filled++
	}

	ph.window[ph.head] = success
	ph.head = (ph.head + 1) % len(ph.window)

	if success {
		ph.successCount++
	} else {
		ph.failureCount++
	}
}
