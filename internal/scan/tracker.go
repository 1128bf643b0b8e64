package scan

import "strings"

// MaxDepth is the deepest property nesting the tracker records. Documents
// nest deeper than this in practice only when the upstream schema changes
// radically; below this depth values can no longer match any handler.
const MaxDepth = 16

// Tracker records the dotted property path of the value currently under
// the scan cursor.
//
// Each nesting level owns a small reusable buffer; pushing a segment copies
// the property name into the level's buffer rather than retaining a view
// into the document. A Tracker can therefore be reused across documents
// without reallocating.
//
// The logical depth keeps counting past [MaxDepth] so that push and pop
// stay balanced on arbitrarily deep documents; only the segment storage is
// capped. A Tracker is not safe for concurrent use.
type Tracker struct {
	segs  [MaxDepth][]byte
	depth int
}

// Push descends into the property named by seg.
//
// The segment bytes are copied; the caller may reuse or discard seg after
// Push returns. Pushing beyond [MaxDepth] still increments the logical
// depth but records nothing.
func (t *Tracker) Push(seg []byte) {
	if t.depth < MaxDepth {
		t.segs[t.depth] = append(t.segs[t.depth][:0], seg...)
	}
	t.depth++
}

// Pop ascends one nesting level. Popping at depth zero is a no-op.
func (t *Tracker) Pop() {
	if t.depth > 0 {
		t.depth--
	}
}

// Depth returns the current logical nesting depth.
func (t *Tracker) Depth() int {
	return t.depth
}

// Segment returns a read-only view of the path segment at level i,
// or nil when i is out of range. The view is valid until the next Push
// at that level.
func (t *Tracker) Segment(i int) []byte {
	if i < 0 || i >= t.depth || i >= MaxDepth {
		return nil
	}
	return t.segs[i]
}

// Reset clears the path to depth zero. Level buffers are retained for
// reuse by the next document.
func (t *Tracker) Reset() {
	t.depth = 0
}

// Path renders the recorded path in dot notation.
//
// Path allocates and is intended for diagnostics only; matching is done
// segment by segment, never against this string. Levels beyond [MaxDepth]
// are not recorded and do not appear.
func (t *Tracker) Path() string {
	n := t.depth
	if n > MaxDepth {
		n = MaxDepth
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte('.')
		}
		b.Write(t.segs[i])
	}
	return b.String()
}
