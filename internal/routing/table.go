package routing

import (
	"errors"
	"sync/atomic"
)

// ErrNoRoute means the table cannot yield any backend at all.
var ErrNoRoute = errors.New("no backend route available")

// Route is one configured backend.
type Route struct {
	Name            string
	Endpoint        string
	ExposedModelID  string
	UpstreamModelID string
	StreamOverride  StreamMode
	Active          bool
}

// Table is an immutable snapshot of the routing configuration.
type Table struct {
	routes   []Route
	fallback Route
	multi    bool
}

// NewTable builds a multi-backend table. The slice is copied.
func NewTable(routes []Route, fallback Route) *Table {
	cp := make([]Route, len(routes))
	copy(cp, routes)
	return &Table{routes: cp, fallback: fallback, multi: true}
}

// NewSingleTable builds a table that only knows the default backend.
func NewSingleTable(fallback Route) *Table {
	return &Table{fallback: fallback}
}

// Multi reports whether a routing document backs this table.
func (t *Table) Multi() bool { return t.multi }

// Routes returns a copy of the configured entries in table order.
func (t *Table) Routes() []Route {
	cp := make([]Route, len(t.routes))
	copy(cp, t.routes)
	return cp
}

// Default returns the implicit single-backend entry.
func (t *Table) Default() Route { return t.fallback }

// Len returns the number of configured entries.
func (t *Table) Len() int { return len(t.routes) }

// ExposedModels lists the model ids clients may address.
func (t *Table) ExposedModels() []string {
	if !t.multi {
		return []string{t.fallback.ExposedModelID}
	}

	ids := make([]string, 0, len(t.routes))
	for _, r := range t.routes {
		if r.Active {
			ids = append(ids, r.ExposedModelID)
		}
	}
	return ids
}

// Store holds the current table. Readers take one snapshot per request.
type Store struct {
	current atomic.Pointer[Table]
}

func NewStore(t *Table) *Store {
	s := &Store{}
	s.current.Store(t)
	return s
}

// Load returns the current snapshot, possibly nil.
func (s *Store) Load() *Table {
	return s.current.Load()
}

// Swap installs a new snapshot and returns the previous one.
func (s *Store) Swap(t *Table) *Table {
	return s.current.Swap(t)
}
