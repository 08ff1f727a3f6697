package seeder

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// KeyPools tracks the key values of generated tables so that children can
// reference them. A table's pool is append-only while the table is being
// generated and becomes readable only once it is frozen.
type KeyPools struct {
	mu    sync.RWMutex
	pools map[string]*keyPool
}

type keyPool struct {
	frozen bool
	keys   map[string][]any
}

// NewKeyPools returns an empty set of pools.
func NewKeyPools() *KeyPools {
	return &KeyPools{pools: make(map[string]*keyPool)}
}

// Begin opens the pool of table, tracking the given key fields.
func (m *KeyPools) Begin(table string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pools[table]; ok {
		return fmt.Errorf("%s: %w", table, errPoolExists)
	}
	p := &keyPool{keys: make(map[string][]any, len(fields))}
	for _, f := range fields {
		p.keys[f] = nil
	}
	m.pools[table] = p
	return nil
}

// Register appends one accepted key value.
func (m *KeyPools) Register(table, field string, key any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[table]
	if !ok {
		return fmt.Errorf("%s: %w", table, errNoPool)
	}
	if p.frozen {
		return fmt.Errorf("%s: %w", table, errPoolFrozen)
	}
	keys, ok := p.keys[field]
	if !ok {
		return fmt.Errorf("%s.%s is not a tracked key field", table, field)
	}
	p.keys[field] = append(keys, key)
	return nil
}

// Freeze makes the pool of table read-only and visible to Sample.
func (m *KeyPools) Freeze(table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[table]
	if !ok {
		return fmt.Errorf("%s: %w", table, errNoPool)
	}
	p.frozen = true
	return nil
}

// Frozen reports whether the pool of table has been frozen.
func (m *KeyPools) Frozen(table string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[table]
	return ok && p.frozen
}

// Keys returns the frozen keys of table.field. The slice must not be
// modified. It is nil while the pool is not frozen.
func (m *KeyPools) Keys(table, field string) []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[table]
	if !ok || !p.frozen {
		return nil
	}
	return p.keys[field]
}

// Len reports how many keys table.field holds, frozen or not.
func (m *KeyPools) Len(table, field string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.pools[table]; ok {
		return len(p.keys[field])
	}
	return 0
}

// Release drops the pool of table once no remaining table references it.
func (m *KeyPools) Release(table string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pools, table)
}

// Sample picks one key of table.field. With a nil balance every key is
// equally likely; otherwise the balance decides.
func (m *KeyPools) Sample(r *rand.Rand, table, field string, b *Balance) (any, error) {
	keys := m.Keys(table, field)
	if len(keys) == 0 {
		return nil, &EmptyParentPoolError{Table: table, Field: field}
	}
	if b == nil {
		return keys[r.IntN(len(keys))], nil
	}
	return keys[b.next(r, len(keys))], nil
}

// Balance spreads the references of one foreign key relationship over the
// parent keys: until every key has been referenced Target times, samples
// are drawn among the least-referenced keys. After that sampling is
// uniform. A Balance belongs to a single relationship and is not safe for
// concurrent use.
type Balance struct {
	Target  float64
	level   int
	size    int
	pending []int
}

// NewBalance spreads references so each key gets about target of them.
func NewBalance(target float64) *Balance {
	return &Balance{Target: target}
}

func (b *Balance) next(r *rand.Rand, n int) int {
	if float64(b.level) >= b.Target {
		return r.IntN(n)
	}
	if b.size != n || len(b.pending) == 0 {
		b.refill(n)
	}
	// pending holds exactly the keys referenced level times.
	j := r.IntN(len(b.pending))
	idx := b.pending[j]
	last := len(b.pending) - 1
	b.pending[j] = b.pending[last]
	b.pending = b.pending[:last]
	if len(b.pending) == 0 {
		b.level++
	}
	return idx
}

func (b *Balance) refill(n int) {
	b.size = n
	if cap(b.pending) < n {
		b.pending = make([]int, n)
	}
	b.pending = b.pending[:n]
	for i := range b.pending {
		b.pending[i] = i
	}
}
