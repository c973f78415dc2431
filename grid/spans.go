package grid

// RowSpans tracks the vertical pixel extent touched per row. Glyph ink can
// overhang its row, so a row's span may reach outside the row's nominal
// pixel band. Spans feed the frame's dirty rectangle.
type RowSpans struct {
	top    []int
	bottom []int
}

// NewRowSpans creates span tracking for the given row count.
func NewRowSpans(rows int) *RowSpans {
	s := &RowSpans{}
	s.Resize(rows)
	return s
}

// Resize reallocates for a new row count and clears all spans.
func (s *RowSpans) Resize(rows int) {
	s.top = make([]int, rows)
	s.bottom = make([]int, rows)
	s.Reset()
}

// Reset marks every row as untouched.
func (s *RowSpans) Reset() {
	for i := range s.top {
		s.top[i] = int(^uint(0) >> 1)
		s.bottom[i] = -int(^uint(0)>>1) - 1
	}
}

// Extend widens the span of row to include [top, bottom).
func (s *RowSpans) Extend(row, top, bottom int) {
	if row < 0 || row >= len(s.top) || top >= bottom {
		return
	}
	if top < s.top[row] {
		s.top[row] = top
	}
	if bottom > s.bottom[row] {
		s.bottom[row] = bottom
	}
}

// Span returns the touched extent of row. ok is false for untouched rows.
func (s *RowSpans) Span(row int) (top, bottom int, ok bool) {
	if row < 0 || row >= len(s.top) || s.top[row] >= s.bottom[row] {
		return 0, 0, false
	}
	return s.top[row], s.bottom[row], true
}

// Union returns the combined extent of rows [from, to].
func (s *RowSpans) Union(from, to int) (top, bottom int, ok bool) {
	top = int(^uint(0) >> 1)
	bottom = -int(^uint(0)>>1) - 1
	for r := from; r <= to; r++ {
		if t, b, rok := s.Span(r); rok {
			if t < top {
				top = t
			}
			if b > bottom {
				bottom = b
			}
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return top, bottom, true
}
