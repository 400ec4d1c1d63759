// Package parallel provides the worker scheme used by the triangle drawers.
//
// Rows of the render target are statically owned by workers: row r belongs
// to worker r mod N. Every worker walks every triangle it is handed but only
// writes the rows it owns, so concurrent drawers never touch the same pixel
// and the shared buffers need no locks.
package parallel

// Partition identifies one worker in a row-modulo partition.
// The zero value is not valid; use Single for one-worker rendering.
type Partition struct {
	Core     int
	NumCores int
}

// Single is the partition of a lone worker owning every row.
var Single = Partition{Core: 0, NumCores: 1}

// Skips reports whether row y belongs to another worker.
func (p Partition) Skips(y int) bool {
	if p.NumCores <= 1 {
		return false
	}
	r := y % p.NumCores
	if r < 0 {
		r += p.NumCores
	}
	return r != p.Core
}

// FirstOwned returns the smallest row >= y owned by this worker.
func (p Partition) FirstOwned(y int) int {
	if p.NumCores <= 1 {
		return y
	}
	r := y % p.NumCores
	if r < 0 {
		r += p.NumCores
	}
	d := p.Core - r
	if d < 0 {
		d += p.NumCores
	}
	return y + d
}

// Step returns the row stride between rows owned by one worker.
func (p Partition) Step() int {
	if p.NumCores <= 1 {
		return 1
	}
	return p.NumCores
}
