package registry

import (
	"context"
	"sync"
)

// activeKey is the context key carrying the active database binding. The
// binding lives in the call's context only, never in package state, so two
// concurrent calls bound to different databases cannot observe each other.
type activeKey struct{}

// ActiveDatabase returns the database name bound to ctx by RunWithDatabase.
func ActiveDatabase(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(activeKey{}).(string)
	return name, ok
}

// Router validates a database name against the registry and runs an action
// with that database bound as active for the duration of the call.
type Router struct {
	registry *Registry

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRouter(reg *Registry) *Router {
	return &Router{registry: reg, locks: make(map[string]*sync.Mutex)}
}

// RunWithDatabase verifies name is onboarded, binds it as the active database
// in a derived context, and invokes action. Calls naming the same database are
// serialized; calls naming different databases run independently. The binding
// and the per-database lock are released on every exit path.
func (r *Router) RunWithDatabase(ctx context.Context, name string, action func(ctx context.Context) error) error {
	if _, ok := r.registry.Lookup(name); !ok {
		return &UnknownDatabaseError{Database: name}
	}

	lock := r.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return action(context.WithValue(ctx, activeKey{}, name))
}

func (r *Router) lockFor(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[name] = lock
	}
	return lock
}
