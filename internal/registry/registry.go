// Package registry holds the set of onboarded databases and scopes an active
// database to a single call.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Database is one onboarded database as declared in configuration.
type Database struct {
	Name     string   `mapstructure:"name"`
	Driver   string   `mapstructure:"driver"`
	DSN      string   `mapstructure:"dsn"`
	Schema   string   `mapstructure:"schema"`
	Sync     bool     `mapstructure:"sync"`
	Prefixes []string `mapstructure:"prefixes"`
}

// UnknownDatabaseError reports a database name that is not onboarded.
type UnknownDatabaseError struct {
	Database string
}

func (e *UnknownDatabaseError) Error() string {
	return fmt.Sprintf("unknown database: %s", e.Database)
}

// Registry is the immutable set of onboarded databases for a process run.
// The set can only change by whole-unit replacement, never by partial
// mutation, so readers always observe a complete snapshot.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Database
}

func New(dbs []Database) *Registry {
	r := &Registry{}
	r.Replace(dbs)
	return r
}

// Replace swaps the entire onboarded set atomically.
func (r *Registry) Replace(dbs []Database) {
	byName := make(map[string]Database, len(dbs))
	for _, db := range dbs {
		byName[db.Name] = db
	}
	r.mu.Lock()
	r.byName = byName
	r.mu.Unlock()
}

// Lookup returns the configuration for name.
func (r *Registry) Lookup(name string) (Database, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	db, ok := r.byName[name]
	return db, ok
}

// Names returns the onboarded database names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
