package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Namespace is the UUID namespace for deterministic test identifiers.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/roach88/collab/testutil"))

// IDGenerator produces reproducible name-based UUIDs (v5) for op and event
// IDs. The same prefix always yields the same sequence.
//
// Thread-safety: All methods are safe for concurrent use.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewIDGenerator creates a generator. Different prefixes produce disjoint
// sequences.
func NewIDGenerator(prefix string) *IDGenerator {
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	g.n++
	n := g.n
	g.mu.Unlock()
	return uuid.NewSHA1(Namespace, []byte(fmt.Sprintf("%s/%d", g.prefix, n))).String()
}
