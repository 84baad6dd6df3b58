package tasklock

import "sync"

// Registry provides single-writer-per-task exclusivity. Every mutating
// operation on a task, including scheduler-driven transitions, must run
// inside WithLock for that task ID. Operations on different tasks proceed
// in parallel.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *Registry) lockFor(taskID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[taskID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[taskID] = l
	}
	return l
}

// WithLock runs fn while holding the task's mutex.
func (r *Registry) WithLock(taskID string, fn func() error) error {
	l := r.lockFor(taskID)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Release drops the mutex for a terminal task so the map does not grow
// unbounded. Safe to call while other goroutines still hold references;
// they finish on the old mutex.
func (r *Registry) Release(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, taskID)
}
