package engine

import "sync"

// InFlight tracks executions currently running per workflow. The
// lifecycle manager consults it before deleting a workflow; the status
// field reflects configuration intent only, never runtime activity.
type InFlight struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewInFlight() *InFlight {
	return &InFlight{counts: make(map[string]int)}
}

func (f *InFlight) Begin(workflowID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counts[workflowID]++
}

func (f *InFlight) End(workflowID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counts[workflowID]--
	if f.counts[workflowID] <= 0 {
		delete(f.counts, workflowID)
	}
}

func (f *InFlight) IsRunning(workflowID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.counts[workflowID] > 0
}
