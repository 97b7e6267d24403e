package routing

import (
	"sort"

	"github.com/MissyMedina/autodev-gateway/services/health"
	"github.com/MissyMedina/autodev-gateway/services/providers"
)

// Weights tune the composite ranking score. Higher success rate and lower
// EMA latency improve rank; ZeroCostBonus lifts free (local/offline)
// providers for cost-sensitive task types. The bonus is policy, not a
// hard-coded preference: set it to 0 to disable.
type Weights struct {
	SuccessRate   float64
	Latency       float64
	ZeroCostBonus float64
}

// DefaultWeights returns the default ranking weights
func DefaultWeights() Weights {
	return Weights{
		SuccessRate:   1.0,
		Latency:       0.3,
		ZeroCostBonus: 0.5,
	}
}

// Config holds selector configuration
type Config struct {
	Weights Weights

	// CostSensitiveTasks lists task types that receive the zero-cost bonus
	CostSensitiveTasks []providers.TaskType
}

// DefaultConfig returns a selector configuration with default weights and no
// cost-sensitive task types
func DefaultConfig() Config {
	return Config{Weights: DefaultWeights()}
}

// RankRequest carries the request fields that influence ranking
type RankRequest struct {
	TaskType          providers.TaskType
	PreferredProvider string
	MaxAttempts       int // 0 means registry size
}

// Selector produces the ordered candidate list (primary + fallback chain)
// for a request. Ranking is a pure function of the registry contents and the
// health snapshot passed in, so it is independently testable.
type Selector struct {
	registry *providers.Registry
	config   Config
}

// NewSelector creates a new selector over a provider registry
func NewSelector(registry *providers.Registry, config Config) *Selector {
	if config.Weights == (Weights{}) {
		config.Weights = DefaultWeights()
	}
	return &Selector{
		registry: registry,
		config:   config,
	}
}

type scoredCandidate struct {
	id       string
	score    float64
	declared int
}

// Rank returns provider ids to try in order, at most MaxAttempts entries.
// An empty result means no provider survived filtering. A preferred provider
// that is disabled, circuit-open, or tag-mismatched is skipped, not forced.
func (s *Selector) Rank(req RankRequest, snap health.Snapshot) []string {
	descriptors := s.registry.List()

	candidates := make([]scoredCandidate, 0, len(descriptors))
	for i, desc := range descriptors {
		if !desc.Enabled {
			continue
		}
		h := snap.Health(desc.ID)
		if h.CircuitOpen {
			continue
		}
		if !desc.MatchesTask(req.TaskType) {
			continue
		}

		candidates = append(candidates, scoredCandidate{
			id:       desc.ID,
			score:    s.score(desc, h, req.TaskType),
			declared: i,
		})
	}

	// Higher score first; ties broken by registry declaration order
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		return candidates[a].declared < candidates[b].declared
	})

	ordered := make([]string, 0, len(candidates))
	if req.PreferredProvider != "" {
		for _, c := range candidates {
			if c.id == req.PreferredProvider {
				ordered = append(ordered, c.id)
				break
			}
		}
	}
	for _, c := range candidates {
		if len(ordered) > 0 && c.id == ordered[0] {
			continue
		}
		ordered = append(ordered, c.id)
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 || maxAttempts > len(ordered) {
		maxAttempts = len(ordered)
	}
	return ordered[:maxAttempts]
}

// score computes the composite rank score for one candidate
func (s *Selector) score(desc *providers.Descriptor, h health.ProviderHealth, task providers.TaskType) float64 {
	w := s.config.Weights

	// Providers with no history are treated as healthy and unproven
	successRate := 1.0
	if h.SuccessCount+h.FailureCount > 0 {
		successRate = h.SuccessRate
	}

	score := w.SuccessRate*successRate - w.Latency*(h.EMALatencyMs/1000.0)

	if desc.CostPerKTokens == 0 && s.costSensitive(task) {
		score += w.ZeroCostBonus
	}
	return score
}

func (s *Selector) costSensitive(task providers.TaskType) bool {
	for _, t := range s.config.CostSensitiveTasks {
		if t == task {
			return true
		}
	}
	return false
}
