// Package uniqueid adapts the teacher repo's utils/unique-id generator: a
// mutex-protected monotonic counter, instantiated once per owner instead of
// as a process-wide singleton.
package uniqueid

import "sync"

type Generator struct {
	mu     sync.Mutex
	nextID uint64
}

func New() *Generator {
	return &Generator{nextID: 1}
}

func (g *Generator) Next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	g.nextID++
	return id
}
