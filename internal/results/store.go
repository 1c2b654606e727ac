package results

import (
	"sync/atomic"
	"time"
)

// Snapshot is one published, fully merged ResultSet.
type Snapshot struct {
	Set        *ResultSet
	Generation uint64
	LoadedAt   time.Time
}

// SnapshotReader gives read access to the latest published snapshot.
type SnapshotReader interface {
	Current() *Snapshot
	Ready() bool
}

var _ SnapshotReader = (*Store)(nil)

// Store holds the current snapshot. Readers never observe a partial merge:
// a new set becomes visible only through Publish.
type Store struct {
	current atomic.Pointer[Snapshot]
	nowFn   func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{nowFn: func() time.Time { return time.Now().UTC() }}
}

// Publish swaps in set as the current snapshot and returns it.
func (s *Store) Publish(set *ResultSet) *Snapshot {
	for {
		prev := s.current.Load()
		next := &Snapshot{Set: set, Generation: 1, LoadedAt: s.nowFn()}
		if prev != nil {
			next.Generation = prev.Generation + 1
		}
		if s.current.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// Current returns the latest snapshot, or nil before the first Publish.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Ready reports whether a non-empty result set has been published.
func (s *Store) Ready() bool {
	snap := s.current.Load()
	return snap != nil && snap.Set != nil && snap.Set.Len() > 0
}
