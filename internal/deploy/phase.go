package deploy

import "sync"

// Phase is where an environment's current request is in the deployment sequence.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhasePreChecking Phase = "pre-checking"
	PhaseStaging     Phase = "staging"
	PhasePublishing  Phase = "publishing"
	PhasePostActing  Phase = "post-acting"
	PhaseRollingBack Phase = "rolling-back"
)

type phaseTracker struct {
	mu     sync.RWMutex
	phases map[string]Phase
}

func newPhaseTracker() *phaseTracker {
	return &phaseTracker{phases: make(map[string]Phase)}
}

func (p *phaseTracker) set(env string, phase Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if phase == PhaseIdle {
		delete(p.phases, env)
		return
	}
	p.phases[env] = phase
}

func (p *phaseTracker) get(env string) Phase {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if phase, ok := p.phases[env]; ok {
		return phase
	}
	return PhaseIdle
}
