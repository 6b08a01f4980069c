package services

import (
	"hash/fnv"
	"sync"
)

// keyedMutex serializes read-modify-write cycles per key (identity or
// token) without one global lock. Striped rather than per-key so the map
// never grows with the identity population.
type keyedMutex struct {
	stripes [64]sync.Mutex
}

func (m *keyedMutex) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &m.stripes[h.Sum32()%uint32(len(m.stripes))]
	mu.Lock()
	return mu
}
