package chronos

// Arena is a bump allocator for the sample buffers of one compilation.
// Offsets only grow until Reset, which happens at the start of a compile.
type Arena struct {
	buf []float64
	top int
}

func NewArena(size int) *Arena {
	if size < 0 {
		size = 0
	}
	return &Arena{buf: make([]float64, size)}
}

// Alloc returns n zeroed samples. The slice is capped so appends can't
// spill into a neighbouring allocation.
func (a *Arena) Alloc(n int) ([]float64, error) {
	if n < 0 || a.top+n > len(a.buf) {
		return nil, ErrArenaExhausted
	}
	b := a.buf[a.top : a.top+n : a.top+n]
	clear(b)
	a.top += n
	return b, nil
}

func (a *Arena) Reset() { a.top = 0 }

func (a *Arena) Used() int { return a.top }

func (a *Arena) Cap() int { return len(a.buf) }
