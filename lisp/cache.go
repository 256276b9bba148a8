package lisp

import (
	"sync"

	"github.com/zeebo/xxh3"
)

// compileCache keys compiled closures by a hash of their source text, so
// the REPL does not recompile an expression it has already seen verbatim
// (e.g. re-evaluating the same definition while iterating).
type compileCache struct {
	mu      sync.RWMutex
	entries map[uint64]*Closure
}

func newCompileCache() *compileCache {
	return &compileCache{entries: make(map[uint64]*Closure)}
}

func hashSource(src string) uint64 {
	return xxh3.HashString(src)
}

func (c *compileCache) get(src string) (*Closure, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cl, ok := c.entries[hashSource(src)]

	return cl, ok
}

func (c *compileCache) put(src string, cl *Closure) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[hashSource(src)] = cl
}

// CompileCached compiles form the way Compile does, but returns a cached
// closure when a structurally identical form (keyed by its canonical
// printed text) has been compiled before, avoiding redundant label
// assembly for repeated REPL input such as re-evaluating the same
// definition while iterating.
func (c *Context) CompileCached(pkg *Package, form Val) (*Closure, error) {
	key := Print(form)

	if cl, ok := c.cache.get(key); ok {
		return cl, nil
	}

	cl, err := c.Compiler.Compile(pkg, form)
	if err != nil {
		return nil, err
	}

	c.cache.put(key, cl)

	return cl, nil
}
