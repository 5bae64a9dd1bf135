package testfixtures

import (
	"fmt"
	"sync/atomic"
)

// IDGenerator hands out "<prefix>-N" identifiers so tests can predict the IDs
// a service will assign.
type IDGenerator struct {
	prefix  atomic.Pointer[string]
	counter atomic.Uint64
}

// NewIDGenerator builds a generator with the given prefix; an empty prefix
// falls back to "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	g := &IDGenerator{}
	g.prefix.Store(&prefix)
	return g
}

func (g *IDGenerator) Next() string {
	return fmt.Sprintf("%s-%d", *g.prefix.Load(), g.counter.Add(1))
}

// NextFunc adapts the generator to the `idGenerator func() string` parameter
// the services take. A nil generator yields empty identifiers.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Reset restarts the sequence under a new prefix; an empty prefix keeps the
// current one.
func (g *IDGenerator) Reset(prefix string) {
	if prefix != "" {
		g.prefix.Store(&prefix)
	}
	g.counter.Store(0)
}
