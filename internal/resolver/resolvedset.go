package resolver

import (
	"sync"

	mapset "github.com/deckarep/golang-set"
)

// ResolvedSet deduplicates no-lockfile DFS recursion by virtual-store name,
// giving an at-most-once guarantee per `(name, version)` (§4.4 "The
// ResolvedSet dedup is keyed by virtual-store name — a package already in
// the set is skipped", §5 "The ResolvedSet provides at-most-once recursion
// per virtual-store name in no-lockfile mode").
//
// Grounded on the teacher's `context.ResolveDepGraph`/`TransitiveClosure`
// pattern, which dedups with a `mapset.Set` shared across recursive
// goroutines. A mutex guards the check-then-add sequence: `golang-set`'s
// Set is safe for concurrent single calls, but the "only one caller sees
// 'newly added'" guarantee this type provides needs the check and the add
// to be one atomic step.
type ResolvedSet struct {
	mu   sync.Mutex
	seen mapset.Set
}

// NewResolvedSet constructs an empty set.
func NewResolvedSet() *ResolvedSet {
	return &ResolvedSet{seen: mapset.NewSet()}
}

// AddIfAbsent adds vname to the set and reports whether it was newly added
// (true) or already present (false).
func (s *ResolvedSet) AddIfAbsent(vname string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen.Contains(vname) {
		return false
	}
	s.seen.Add(vname)
	return true
}
