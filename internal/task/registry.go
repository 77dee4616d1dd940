package task

import "sync"

// Registry is the single source of truth for tasks that exist right now,
// keyed by interaction id. Entries are added on reservation and removed on
// terminal confirmation.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Get returns the task for the interaction id, or nil.
func (r *Registry) Get(id string) *Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tasks[id]
}

// All returns a snapshot of the current tasks.
func (r *Registry) All() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	return tasks
}

// Upsert stores the task under its interaction id.
func (r *Registry) Upsert(id string, t *Task) {
	r.mu.Lock()
	r.tasks[id] = t
	r.mu.Unlock()
}

// Remove deletes the task for the interaction id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.tasks, id)
	r.mu.Unlock()
}

// Len returns the number of live tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
