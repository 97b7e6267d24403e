package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MissyMedina/autodev-gateway/services"
	"github.com/MissyMedina/autodev-gateway/services/cache"
	"github.com/MissyMedina/autodev-gateway/services/cost"
	"github.com/MissyMedina/autodev-gateway/services/health"
	"github.com/MissyMedina/autodev-gateway/services/providers"
	"github.com/MissyMedina/autodev-gateway/services/routing"
)

// Config holds dispatcher tunables
type Config struct {
	// AttemptTimeout bounds each provider attempt individually
	AttemptTimeout time.Duration

	// GlobalDeadline bounds total elapsed time across all attempts; 0 disables
	GlobalDeadline time.Duration

	// DefaultMaxAttempts caps fallback depth when the request does not; 0
	// means registry size
	DefaultMaxAttempts int

	// CacheTTL is how long successful responses stay cached
	CacheTTL time.Duration

	// NonIdempotentTasks bypass the cache entirely, both read and write
	NonIdempotentTasks []providers.TaskType
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		AttemptTimeout: 30 * time.Second,
		GlobalDeadline: 2 * time.Minute,
		CacheTTL:       5 * time.Minute,
	}
}

// Dispatcher executes generation requests: cache check, ranked sequential
// fallback attempts with per-attempt timeouts, health and cost recording.
// Attempts within one call are strictly ordered and each candidate is tried
// at most once; concurrency across independent calls is unconstrained.
type Dispatcher struct {
	registry   *providers.Registry
	selector   *routing.Selector
	tracker    *health.Tracker
	cache      cache.ResponseCache
	accountant *cost.Accountant
	ledger     *cost.Ledger // optional, nil when no database is configured
	config     Config
	logger     *zap.Logger
}

// NewDispatcher creates a new dispatcher with all dependencies
func NewDispatcher(
	registry *providers.Registry,
	selector *routing.Selector,
	tracker *health.Tracker,
	responseCache cache.ResponseCache,
	accountant *cost.Accountant,
	ledger *cost.Ledger,
	config Config,
	logger *zap.Logger,
) *Dispatcher {
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = DefaultConfig().AttemptTimeout
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}

	return &Dispatcher{
		registry:   registry,
		selector:   selector,
		tracker:    tracker,
		cache:      responseCache,
		accountant: accountant,
		ledger:     ledger,
		config:     config,
		logger:     logger,
	}
}

// Generate runs one request through the full dispatch pipeline
func (d *Dispatcher) Generate(ctx context.Context, req *Request) (*Result, error) {
	startTime := time.Now()

	if err := d.validate(req); err != nil {
		return nil, err
	}

	taskType := req.TaskType
	if taskType == "" {
		taskType = providers.TaskGeneral
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	d.logger.Info("starting dispatch",
		zap.String("request_id", requestID),
		zap.String("task_type", string(taskType)),
		zap.String("preferred_provider", req.PreferredProvider))

	// Step 1: cache check
	fingerprint := d.fingerprint(req, taskType)
	cacheable := d.cacheable(taskType)
	if cacheable {
		d.logger.Debug("step 1: cache check", zap.String("request_id", requestID))
		if entry, hit := d.cache.Get(ctx, fingerprint); hit {
			d.logger.Info("dispatch served from cache",
				zap.String("request_id", requestID),
				zap.String("provider", entry.ProviderID))
			return &Result{
				Text:           entry.Text,
				ProviderUsed:   entry.ProviderID,
				AttemptsMade:   0,
				TotalLatencyMs: time.Since(startTime).Milliseconds(),
				TokensUsed:     entry.TokensUsed,
				CacheHit:       true,
				RequestID:      requestID,
				CreatedAt:      time.Now(),
			}, nil
		}
	}

	// Step 2: rank candidates against the current health snapshot
	d.logger.Debug("step 2: ranking providers", zap.String("request_id", requestID))
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = d.config.DefaultMaxAttempts
	}
	candidates := d.selector.Rank(routing.RankRequest{
		TaskType:          taskType,
		PreferredProvider: req.PreferredProvider,
		MaxAttempts:       maxAttempts,
	}, d.tracker.Snapshot())

	if len(candidates) == 0 {
		d.logger.Warn("no provider available",
			zap.String("request_id", requestID),
			zap.String("task_type", string(taskType)))
		return nil, services.NewDomainError(services.ErrorTypeNoProvider,
			"no provider available for request", nil).
			WithDetail("task_type", string(taskType))
	}

	// Step 3: sequential fallback attempts, each candidate at most once
	callCtx := ctx
	if d.config.GlobalDeadline > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.config.GlobalDeadline)
		defer cancel()
	}

	failures := make([]AttemptFailure, 0, len(candidates))
	for i, providerID := range candidates {
		if err := d.checkDeadline(ctx, callCtx, failures); err != nil {
			return nil, err
		}

		d.logger.Debug("step 3: attempting provider",
			zap.String("request_id", requestID),
			zap.String("provider", providerID),
			zap.Int("attempt", i+1))

		result, failure, err := d.attempt(ctx, callCtx, providerID, req, taskType)
		if err != nil {
			// Terminal: caller cancellation or global deadline
			return nil, err
		}
		if failure != nil {
			failures = append(failures, *failure)
			continue
		}

		// Step 4: success bookkeeping
		estimatedCost := d.accountant.Record(providerID, result.TokensUsed)

		if cacheable {
			d.cache.Put(ctx, &cache.Entry{
				Fingerprint: fingerprint,
				Text:        result.Text,
				ProviderID:  providerID,
				TokensUsed:  result.TokensUsed,
			}, d.config.CacheTTL)
		}

		totalLatencyMs := time.Since(startTime).Milliseconds()
		if d.ledger != nil {
			go d.writeLedger(cost.UsageRecord{
				RequestID:  requestID,
				Provider:   providerID,
				Model:      result.Model,
				TaskType:   taskType,
				TokensUsed: result.TokensUsed,
				Cost:       estimatedCost,
				LatencyMs:  totalLatencyMs,
			})
		}

		d.logger.Info("dispatch completed",
			zap.String("request_id", requestID),
			zap.String("provider", providerID),
			zap.Int("attempts", i+1),
			zap.Int64("latency_ms", totalLatencyMs),
			zap.Int("tokens", result.TokensUsed),
			zap.Float64("cost", estimatedCost))

		return &Result{
			Text:           result.Text,
			ProviderUsed:   providerID,
			Model:          result.Model,
			AttemptsMade:   i + 1,
			TotalLatencyMs: totalLatencyMs,
			TokensUsed:     result.TokensUsed,
			EstimatedCost:  estimatedCost,
			RequestID:      requestID,
			CreatedAt:      time.Now(),
		}, nil
	}

	d.logger.Warn("all providers failed",
		zap.String("request_id", requestID),
		zap.Int("attempts", len(failures)))

	return nil, allFailedError(failures)
}

// attempt runs one provider attempt. It returns (result, nil, nil) on
// success, (nil, failure, nil) when the chain should advance, and a non-nil
// error only for terminal conditions (caller cancel, global deadline).
func (d *Dispatcher) attempt(ctx, callCtx context.Context, providerID string, req *Request, taskType providers.TaskType) (*providers.CallResult, *AttemptFailure, error) {
	desc, err := d.registry.Get(providerID)
	if err != nil {
		return nil, &AttemptFailure{ProviderID: providerID, Kind: providers.ErrKindTransport, Message: err.Error()}, nil
	}
	adapter, err := d.registry.Adapter(providerID)
	if err != nil {
		return nil, &AttemptFailure{ProviderID: providerID, Kind: providers.ErrKindTransport, Message: err.Error()}, nil
	}

	model := req.Model
	if model == "" || !supportsModel(desc, model) {
		model = desc.DefaultModel()
	}

	attemptCtx, cancel := context.WithTimeout(callCtx, d.config.AttemptTimeout)
	defer cancel()

	attemptStart := time.Now()
	result, callErr := adapter.Call(attemptCtx, &providers.CallRequest{
		Model:       model,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	latencyMs := time.Since(attemptStart).Milliseconds()

	if callErr == nil {
		d.tracker.Record(providerID, health.Outcome{
			Success:    true,
			LatencyMs:  latencyMs,
			TokensUsed: result.TokensUsed,
		})
		return result, nil, nil
	}

	// A caller-initiated cancel is not a provider failure and is never fed
	// to the health tracker
	if ctx.Err() == context.Canceled {
		return nil, nil, context.Canceled
	}
	// Caller or global deadline expired mid-attempt: stop the chain without
	// blaming the provider that happened to be in flight
	if ctx.Err() == context.DeadlineExceeded || callCtx.Err() == context.DeadlineExceeded {
		return nil, nil, deadlineError(nil)
	}

	kind := providers.KindOf(callErr)
	if attemptCtx.Err() == context.DeadlineExceeded {
		kind = providers.ErrKindTimeout
	}

	d.tracker.Record(providerID, health.Outcome{
		Success:   false,
		LatencyMs: latencyMs,
		ErrorKind: kind,
	})

	d.logger.Debug("provider attempt failed",
		zap.String("provider", providerID),
		zap.String("kind", string(kind)),
		zap.Error(callErr))

	return nil, &AttemptFailure{ProviderID: providerID, Kind: kind, Message: callErr.Error()}, nil
}

// checkDeadline distinguishes caller cancellation from deadline expiry
// before starting another attempt
func (d *Dispatcher) checkDeadline(ctx, callCtx context.Context, failures []AttemptFailure) error {
	if ctx.Err() == context.Canceled {
		return context.Canceled
	}
	if ctx.Err() == context.DeadlineExceeded || callCtx.Err() == context.DeadlineExceeded {
		return deadlineError(failures)
	}
	return nil
}

func (d *Dispatcher) validate(req *Request) error {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return services.ErrEmptyPrompt
	}
	if req.TaskType != "" && !providers.ValidTaskType(req.TaskType) {
		return services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("unknown task type %q", req.TaskType), nil)
	}
	return nil
}

func (d *Dispatcher) fingerprint(req *Request, taskType providers.TaskType) string {
	return cache.Fingerprint(cache.FingerprintInput{
		Prompt:            req.Prompt,
		TaskType:          taskType,
		Model:             req.Model,
		PreferredProvider: req.PreferredProvider,
		MaxTokens:         req.MaxTokens,
		Temperature:       req.Temperature,
	})
}

func (d *Dispatcher) cacheable(taskType providers.TaskType) bool {
	for _, t := range d.config.NonIdempotentTasks {
		if t == taskType {
			return false
		}
	}
	return true
}

// writeLedger persists a usage row off the request path
func (d *Dispatcher) writeLedger(rec cost.UsageRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.ledger.RecordUsage(ctx, rec); err != nil {
		d.logger.Error("failed to record usage to ledger",
			zap.String("request_id", rec.RequestID),
			zap.Error(err))
	}
}

func supportsModel(desc *providers.Descriptor, model string) bool {
	for _, m := range desc.SupportedModels {
		if m == model {
			return true
		}
	}
	return false
}

// deadlineError builds the terminal deadline-exceeded error, carrying any
// failures accumulated before the deadline hit
func deadlineError(failures []AttemptFailure) error {
	err := services.NewDomainError(services.ErrorTypeDeadlineExceeded, "call deadline exceeded", nil)
	if len(failures) > 0 {
		err = err.WithDetail("attempts", failures)
	}
	return err
}

// allFailedError aggregates every attempted provider and its failure kind;
// no attempt's reason is dropped
func allFailedError(failures []AttemptFailure) error {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("%s (%s: %s)", f.ProviderID, f.Kind, f.Message))
	}
	return services.NewDomainError(services.ErrorTypeAllFailed,
		fmt.Sprintf("all providers failed: %s", strings.Join(parts, "; ")), nil).
		WithDetail("attempts", failures)
}
