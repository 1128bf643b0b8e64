package scan

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ExtractFunc interprets the scalar token just scanned into a typed value.
// It reports false when the token is not convertible to T, for example a
// string where a number was registered.
type ExtractFunc[T any] func(*Scanner) (T, bool)

// ProcessFunc consumes a dispatched value. When ok is false the value is
// the zero value of T and the field should be treated as absent.
type ProcessFunc[T any] func(value T, ok bool)

// entry is a registered handler with its type erased. The invoke closure
// recovers the concrete type, records the extracted value in the registry's
// per-document table, and hands it to the processor.
type entry struct {
	path   string
	segs   [][]byte
	id     uint64
	invoke func(*Scanner)
}

// Registry holds the set of registered path handlers and the per-document
// last-value table.
//
// Handlers are registered up front with [Register] and tried in
// registration order on every dispatch; the first entry whose path matches
// wins. Matching compares segment counts and raw segment bytes, so a
// linear scan over the handful of registered paths beats any map lookup
// that would first need a composed key.
//
// The last-value table records the most recent successfully extracted
// value per path within the current document. It lets a later handler, or
// the caller after the pass, correlate fields that arrive as separate
// leaves. [Engine.Parse] clears it at the start of every document.
//
// A Registry is not safe for concurrent use; it is confined to the
// goroutine that runs the scan, with registration completed beforehand.
type Registry struct {
	entries []entry
	values  map[uint64]any
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		values: make(map[uint64]any, 16),
	}
}

// Register adds a typed handler for the dotted path.
//
// Register fails when the path is empty, contains an empty segment, or
// nests deeper than [MaxDepth], and when extract or process is nil.
// Registering the same path twice is not rejected; the first
// registration shadows the second on dispatch, and catching that is
// left to the integrator.
func Register[T any](r *Registry, path string, extract ExtractFunc[T], process ProcessFunc[T]) error {
	if path == "" {
		return fmt.Errorf("register: empty path")
	}
	if extract == nil {
		return fmt.Errorf("register %q: nil extract func", path)
	}
	if process == nil {
		return fmt.Errorf("register %q: nil process func", path)
	}
	parts := strings.Split(path, ".")
	if len(parts) > MaxDepth {
		return fmt.Errorf("register %q: path exceeds %d segments", path, MaxDepth)
	}
	segs := make([][]byte, len(parts))
	for i, p := range parts {
		if p == "" {
			return fmt.Errorf("register %q: empty path segment", path)
		}
		segs[i] = []byte(p)
	}

	id := xxhash.Sum64String(path)
	e := entry{path: path, segs: segs, id: id}
	e.invoke = func(s *Scanner) {
		v, ok := extract(s)
		if ok {
			r.values[id] = v
		}
		process(v, ok)
	}
	r.entries = append(r.entries, e)
	return nil
}

// Dispatch tries the registered handlers against the tracker's current
// path and invokes the first match on the scanner's current token. It
// reports whether any handler matched.
//
// The processor always runs for a matched path, with ok=false when the
// token did not extract; a present-but-wrong-type field therefore reads
// the same as an absent one.
func (r *Registry) Dispatch(t *Tracker, s *Scanner) bool {
	for i := range r.entries {
		e := &r.entries[i]
		if !matchPath(e.segs, t) {
			continue
		}
		e.invoke(s)
		return true
	}
	return false
}

// matchPath reports whether the tracker's current path equals segs.
// A tracker deeper than MaxDepth can never match: registered paths are
// capped at MaxDepth segments.
func matchPath(segs [][]byte, t *Tracker) bool {
	if t.Depth() != len(segs) {
		return false
	}
	for i, seg := range segs {
		if !bytes.Equal(seg, t.Segment(i)) {
			return false
		}
	}
	return true
}

// LastValue returns the most recent value extracted for path within the
// current document. It reports false when the path produced no value this
// document or when the stored value is not a T.
func LastValue[T any](r *Registry, path string) (T, bool) {
	var zero T
	v, ok := r.values[xxhash.Sum64String(path)]
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	if !ok {
		return zero, false
	}
	return tv, true
}

// ResetValues clears the last-value table for the next document.
func (r *Registry) ResetValues() {
	clear(r.values)
}
