package roster

import (
	"sort"
	"strings"
	"sync"
)

// Registry holds one day's tasks ordered by Start and guarantees that no two
// of them overlap.
//
// All methods are safe for concurrent use; the overlap check and the insert
// happen under the same lock.
type Registry struct {
	mu    sync.Mutex
	mode  TimeMode
	tasks []Task
}

type Option func(*Registry)

func WithTimeMode(m TimeMode) Option {
	return func(r *Registry) { r.mode = m }
}

func New(opts ...Option) *Registry {
	r := &Registry{}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Mode returns the comparison mode fixed at construction.
func (r *Registry) Mode() TimeMode { return r.mode }

// Add inserts t unless it overlaps an existing task.
//
// On conflict it returns *ConflictError naming the first overlapping task in
// Start order. In strict mode a malformed interval yields *TimeError.
// A failed Add leaves the registry untouched.
func (r *Registry) Add(t Task) error {
	if r.mode == TimeStrict {
		nt, err := normalize(t)
		if err != nil {
			return err
		}
		t = nt
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.tasks {
		if overlaps(e, t) {
			return &ConflictError{With: e.Description, Task: t}
		}
	}
	r.tasks = append(r.tasks, t)
	sort.SliceStable(r.tasks, func(i, j int) bool {
		return r.tasks[i].Start < r.tasks[j].Start
	})
	return nil
}

// Remove deletes the first task whose description matches case-insensitively
// and returns it. Otherwise it returns *NotFoundError.
func (r *Registry) Remove(description string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, t := range r.tasks {
		if strings.EqualFold(t.Description, description) {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return t, nil
		}
	}
	return Task{}, &NotFoundError{Description: description}
}

// Tasks returns a copy of the schedule in Start order.
// ok is false when nothing is scheduled.
func (r *Registry) Tasks() (tasks []Task, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.tasks) == 0 {
		return nil, false
	}
	out := make([]Task, len(r.tasks))
	copy(out, r.tasks)
	return out, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
