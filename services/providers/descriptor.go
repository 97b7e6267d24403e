package providers

// TaskType tags a request with the kind of work it represents. Task types map
// to capability tags during selection; providers carrying the wildcard
// "general" tag match every task type.
type TaskType string

const (
	TaskGeneral       TaskType = "general"
	TaskCodeGen       TaskType = "code-generation"
	TaskAnalysis      TaskType = "analysis"
	TaskDocumentation TaskType = "documentation"
)

// TagGeneral is the wildcard capability tag matching every task type.
const TagGeneral = "general"

// taskTags maps each task type to the capability tags that can serve it.
var taskTags = map[TaskType][]string{
	TaskGeneral:       {TagGeneral},
	TaskCodeGen:       {"code"},
	TaskAnalysis:      {"reasoning"},
	TaskDocumentation: {"docs", "reasoning"},
}

// ValidTaskType reports whether t is a known task type
func ValidTaskType(t TaskType) bool {
	_, ok := taskTags[t]
	return ok
}

// TagsForTask returns the capability tags implied by a task type
func TagsForTask(t TaskType) []string {
	return taskTags[t]
}

// Descriptor is the static catalog entry for a provider. Only Enabled and
// CostPerKTokens mutate after startup, via administrative update through the
// Registry; descriptors are never deleted while the process runs.
type Descriptor struct {
	// ID uniquely identifies the provider
	ID string `json:"id"`

	// Endpoint is the base URL of the provider API
	Endpoint string `json:"endpoint"`

	// AuthRef names the environment variable holding the credential
	AuthRef string `json:"auth_ref,omitempty"`

	// SupportedModels lists model identifiers in preference order
	SupportedModels []string `json:"supported_models"`

	// CostPerKTokens is the price per 1000 tokens, 0 for local providers
	CostPerKTokens float64 `json:"cost_per_k_tokens"`

	// CapabilityTags describe what the provider is good at
	// (e.g. "reasoning", "code", "offline", "vision", "general")
	CapabilityTags []string `json:"capability_tags"`

	// Enabled providers participate in selection; disabled ones never do
	Enabled bool `json:"enabled"`
}

// DefaultModel returns the first supported model, or empty when none declared
func (d *Descriptor) DefaultModel() string {
	if len(d.SupportedModels) == 0 {
		return ""
	}
	return d.SupportedModels[0]
}

// HasTag reports whether the descriptor carries a capability tag
func (d *Descriptor) HasTag(tag string) bool {
	for _, t := range d.CapabilityTags {
		if t == tag {
			return true
		}
	}
	return false
}

// MatchesTask reports whether the provider can serve a task type, either via
// the wildcard "general" tag or via any tag implied by the task type
func (d *Descriptor) MatchesTask(task TaskType) bool {
	if d.HasTag(TagGeneral) {
		return true
	}
	for _, tag := range TagsForTask(task) {
		if d.HasTag(tag) {
			return true
		}
	}
	return false
}

// clone returns a copy safe to hand out to readers
func (d *Descriptor) clone() *Descriptor {
	c := *d
	c.SupportedModels = append([]string(nil), d.SupportedModels...)
	c.CapabilityTags = append([]string(nil), d.CapabilityTags...)
	return &c
}
