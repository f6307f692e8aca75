package leaderboard

import (
	"context"
	"sort"
	"sync"

	"github.com/okeyrelay/core/store"
)

// MemoryStore is the in-memory store.Leaderboard implementation: a
// mutex-guarded slice kept sorted by score, grounded on the teacher's
// RWMutex-guarded *Table field access (pkg/poker/table.go). No
// redis/sorted-set library appears anywhere in the retrieved example
// pack, so this sorted-set port is stdlib rather than ecosystem-backed
// — documented per the standing stdlib-justification requirement.
type MemoryStore struct {
	mu    sync.RWMutex
	sets  map[string][]store.Ranked
	index map[string]map[string]int // key -> member -> slice index
	hash  map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets:  make(map[string][]store.Ranked),
		index: make(map[string]map[string]int),
		hash:  make(map[string]map[string]string),
	}
}

func (m *MemoryStore) SortedSetAdd(_ context.Context, key, member string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index[key] == nil {
		m.index[key] = make(map[string]int)
	}
	if i, ok := m.index[key][member]; ok {
		m.sets[key][i].Score = score
	} else {
		m.sets[key] = append(m.sets[key], store.Ranked{Member: member, Score: score})
	}
	m.resort(key)
	return nil
}

func (m *MemoryStore) SortedSetRemove(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[key][member]
	if !ok {
		return nil
	}
	set := m.sets[key]
	m.sets[key] = append(set[:i], set[i+1:]...)
	m.resort(key)
	return nil
}

func (m *MemoryStore) SortedSetRangeByRank(_ context.Context, key string, start, stop int) ([]store.Ranked, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := m.sets[key]
	if start < 0 {
		start = 0
	}
	if stop >= len(set) {
		stop = len(set) - 1
	}
	if start > stop || start >= len(set) {
		return nil, nil
	}
	out := make([]store.Ranked, stop-start+1)
	copy(out, set[start:stop+1])
	return out, nil
}

func (m *MemoryStore) SortedSetRank(_ context.Context, key, member string) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[key][member]
	return i, ok, nil
}

func (m *MemoryStore) SortedSetLength(_ context.Context, key string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sets[key]), nil
}

func (m *MemoryStore) HashSet(_ context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hash[key] == nil {
		m.hash[key] = make(map[string]string)
	}
	m.hash[key][field] = value
	return nil
}

func (m *MemoryStore) HashGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.hash[key]))
	for f, val := range m.hash[key] {
		out[f] = val
	}
	return out, nil
}

// resort re-sorts key's members descending by score and rebuilds the
// rank index. Called with mu already held.
func (m *MemoryStore) resort(key string) {
	set := m.sets[key]
	sort.SliceStable(set, func(i, j int) bool { return set[i].Score > set[j].Score })
	idx := make(map[string]int, len(set))
	for i, r := range set {
		idx[r.Member] = i
	}
	m.index[key] = idx
}
