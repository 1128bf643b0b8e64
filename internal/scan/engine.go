package scan

// maxNesting bounds object recursion so a crafted document cannot grow
// the goroutine stack without limit. Well past MaxDepth on purpose: deep
// objects must still scan cleanly even though they cannot match.
const maxNesting = 64

// Engine drives a single-pass scan over one document at a time.
//
// The engine owns a [Tracker] and a [Scanner] and reuses both across
// documents, so steady-state scanning allocates only when a matched
// string value needs unescaping or a matched float needs parsing.
//
// An Engine is confined to one goroutine; osufeed runs one per feed
// read loop.
type Engine struct {
	tracker Tracker
	scanner Scanner
}

// NewEngine creates an engine ready to parse.
func NewEngine() *Engine {
	return &Engine{}
}

// Parse scans exactly one JSON document and dispatches registered leaf
// values through reg.
//
// The registry's last-value table is cleared first, so values correlated
// via [LastValue] never leak across documents. Objects are walked with
// the property path tracked; arrays are skipped whole and never produce
// dispatches; scalars dispatch when their path matches a handler. A
// top-level array or bare scalar scans without dispatching.
//
// Malformed input returns a [*SyntaxError] describing the first problem
// found, as does trailing data after the document. Parse never panics on
// any input.
func (e *Engine) Parse(data []byte, reg *Registry) error {
	e.tracker.Reset()
	e.scanner.Reset(data)
	reg.ResetValues()

	s := &e.scanner
	s.skipSpace()
	c, ok := s.peek()
	if !ok {
		return &SyntaxError{Offset: s.pos, Msg: "empty document"}
	}

	var err error
	switch c {
	case '{':
		err = e.parseObject(reg, 1)
	case '[':
		err = s.skipArray()
	default:
		err = s.scanScalar()
	}
	if err != nil {
		return err
	}

	s.skipSpace()
	if s.pos != len(s.data) {
		return &SyntaxError{Offset: s.pos, Msg: "trailing data after document"}
	}
	return nil
}

// parseObject consumes the object starting at the cursor, dispatching
// scalar members whose path matches a handler.
func (e *Engine) parseObject(reg *Registry, nesting int) error {
	if nesting > maxNesting {
		return &SyntaxError{Offset: e.scanner.pos, Msg: "object nesting too deep"}
	}
	s := &e.scanner
	s.pos++ // consume '{'

	s.skipSpace()
	if c, ok := s.peek(); ok && c == '}' {
		s.pos++
		return nil
	}

	for {
		s.skipSpace()
		c, ok := s.peek()
		if !ok {
			return &SyntaxError{Offset: s.pos, Msg: "unterminated object"}
		}
		if c != '"' {
			return &SyntaxError{Offset: s.pos, Msg: "expected property name"}
		}
		key, err := s.scanString()
		if err != nil {
			return err
		}
		s.skipSpace()
		if c, ok := s.peek(); !ok || c != ':' {
			return &SyntaxError{Offset: s.pos, Msg: "expected ':' after property name"}
		}
		s.pos++
		s.skipSpace()

		// key may hold escape sequences; it is matched raw, so a handler
		// path with escapes in the document simply never matches.
		e.tracker.Push(key)
		err = e.parseValue(reg, nesting)
		e.tracker.Pop()
		if err != nil {
			return err
		}

		s.skipSpace()
		c, ok = s.peek()
		if !ok {
			return &SyntaxError{Offset: s.pos, Msg: "unterminated object"}
		}
		switch c {
		case ',':
			s.pos++
		case '}':
			s.pos++
			return nil
		default:
			return &SyntaxError{Offset: s.pos, Msg: "expected ',' or '}' in object"}
		}
	}
}

// parseValue consumes one property value. Objects recurse, arrays are
// skipped whole, scalars are scanned and then offered to the registry.
func (e *Engine) parseValue(reg *Registry, nesting int) error {
	s := &e.scanner
	c, ok := s.peek()
	if !ok {
		return &SyntaxError{Offset: s.pos, Msg: "missing property value"}
	}
	switch c {
	case '{':
		return e.parseObject(reg, nesting+1)
	case '[':
		return s.skipArray()
	default:
		if err := s.scanScalar(); err != nil {
			return err
		}
		reg.Dispatch(&e.tracker, s)
		return nil
	}
}
