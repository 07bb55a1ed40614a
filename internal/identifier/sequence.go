package identifier

import (
	"context"
	"sync"
)

// MemoryAllocator is a process-local Allocator. It backs tests and the
// in-memory storage driver; production wiring uses the Postgres-backed
// allocator in the store package.
type MemoryAllocator struct {
	mu   sync.Mutex
	next map[string]int64
}

func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{next: make(map[string]int64)}
}

func (a *MemoryAllocator) Next(_ context.Context, kind Kind, scope string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := string(kind) + "/" + scope
	a.next[key]++
	return a.next[key], nil
}

// Seed positions the next allocation for a scope; later calls return
// value+1 upward. Intended for tests exercising exhaustion.
func (a *MemoryAllocator) Seed(kind Kind, scope string, value int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next[string(kind)+"/"+scope] = value
}
