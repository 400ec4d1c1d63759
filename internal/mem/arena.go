// Package mem provides the scratch arena used by queued draw commands.
package mem

import "golang.org/x/exp/constraints"

// Arena is a fixed-capacity bump allocator for integer slices.
//
// Slices handed out stay valid until Reset. The arena never grows: when it
// is exhausted Alloc fails and the caller is expected to drain its
// consumers, Reset, and try again. An Arena is not safe for concurrent
// allocation; the producer owns it.
type Arena[E constraints.Integer] struct {
	buf []E
	off int
}

// NewArena returns an arena able to hold capacity elements.
func NewArena[E constraints.Integer](capacity int) *Arena[E] {
	return &Arena[E]{buf: make([]E, max(capacity, 0))}
}

// Alloc returns a zeroed slice of n elements, or false if the arena does
// not have n elements left.
func (a *Arena[E]) Alloc(n int) ([]E, bool) {
	if n < 0 || a.off+n > len(a.buf) {
		return nil, false
	}
	s := a.buf[a.off : a.off+n : a.off+n]
	a.off += n
	clear(s)
	return s, true
}

// Copy allocates a slice the length of src and copies src into it.
func (a *Arena[E]) Copy(src []E) ([]E, bool) {
	s, ok := a.Alloc(len(src))
	if !ok {
		return nil, false
	}
	copy(s, src)
	return s, true
}

// Reset releases every allocation at once.
func (a *Arena[E]) Reset() {
	a.off = 0
}

// Used returns the number of allocated elements.
func (a *Arena[E]) Used() int {
	return a.off
}

// Cap returns the arena capacity in elements.
func (a *Arena[E]) Cap() int {
	return len(a.buf)
}
