package reconcile

import (
	"sort"
	"time"

	"github.com/aretw0/introspection"
)

// RunState summarizes the last sync pass.
type RunState struct {
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Actions   map[string]int `json:"actions"`
}

// ReconcilerState exposes internal state for observability.
type ReconcilerState struct {
	IdentityField    string    `json:"identity_field"`
	PreserveUserTags bool      `json:"preserve_user_tags"`
	MappingLog       string    `json:"mapping_log,omitempty"`
	CachedModels     []string  `json:"cached_models,omitempty"`
	LastRun          *RunState `json:"last_run,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Reconciler) State() any {
	r.mu.Lock()
	defer r.mu.Unlock()

	models := make([]string, 0, len(r.fieldCache))
	for m := range r.fieldCache {
		models = append(models, m)
	}
	sort.Strings(models)

	state := ReconcilerState{
		IdentityField:    r.identityField,
		PreserveUserTags: r.preserveUserTags,
		CachedModels:     models,
		LastRun:          r.lastRun,
	}
	if r.log != nil {
		state.MappingLog = r.log.Path()
	}
	return state
}

// ComponentType implements introspection.Component.
func (r *Reconciler) ComponentType() string {
	return "sync-reconciler"
}

var _ introspection.Introspectable = (*Reconciler)(nil)
var _ introspection.Component = (*Reconciler)(nil)

func (r *Reconciler) recordRun(started time.Time, report Report) {
	actions := make(map[string]int)
	for _, res := range report.Results {
		actions[res.Action.String()]++
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRun = &RunState{StartedAt: started, Duration: time.Since(started), Actions: actions}
}
