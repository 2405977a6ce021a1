package application

import "sync"

// cancelRegistry tracks cancellation flags for jobs a worker is running.
// Workers poll their flag at checkpoints; the flag is dropped once the job
// reaches a terminal state.
type cancelRegistry struct {
	mu    sync.Mutex
	flags map[string]*cancelFlag
}

type cancelFlag struct {
	mu  sync.Mutex
	set bool
}

func (f *cancelFlag) raise() {
	f.mu.Lock()
	f.set = true
	f.mu.Unlock()
}

func (f *cancelFlag) raised() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{flags: make(map[string]*cancelFlag)}
}

func (r *cancelRegistry) register(requestID string) *cancelFlag {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := &cancelFlag{}
	r.flags[requestID] = f
	return f
}

func (r *cancelRegistry) drop(requestID string) {
	r.mu.Lock()
	delete(r.flags, requestID)
	r.mu.Unlock()
}

// raise marks a running job for cancellation. It reports false when no worker
// currently owns the request.
func (r *cancelRegistry) raise(requestID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flags[requestID]
	if !ok {
		return false
	}
	f.raise()
	return true
}
