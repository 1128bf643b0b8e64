package scan

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// TokenKind identifies the scalar token most recently scanned.
type TokenKind uint8

const (
	// KindNone means no scalar token has been scanned yet.
	KindNone TokenKind = iota
	// KindString is a quoted string token.
	KindString
	// KindNumber is a numeric token.
	KindNumber
	// KindTrue is the literal true.
	KindTrue
	// KindFalse is the literal false.
	KindFalse
	// KindNull is the literal null.
	KindNull
)

// SyntaxError describes a malformed document. The offset is the byte
// position in the document where scanning failed.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed document at offset %d: %s", e.Offset, e.Msg)
}

// Scanner is a byte-level cursor over a single JSON document.
//
// The scanner separates consuming a token from interpreting it: scanning
// always advances the cursor past the token and records its kind and raw
// bytes, while the typed accessors ([Scanner.Int], [Scanner.Str], ...)
// interpret the recorded token on demand. Values that no handler matches
// are consumed but never interpreted, which is where the scan avoids
// allocating.
//
// A Scanner is reused across documents via [Scanner.Reset] and is not
// safe for concurrent use.
type Scanner struct {
	data []byte
	pos  int

	kind TokenKind
	lit  []byte

	// scratch receives unescaped string contents and is reused across
	// Str calls.
	scratch []byte
}

// Reset points the scanner at a new document and clears the token state.
// The document bytes are not copied and must not be mutated during the scan.
func (s *Scanner) Reset(data []byte) {
	s.data = data
	s.pos = 0
	s.kind = KindNone
	s.lit = nil
}

// Kind returns the kind of the most recently scanned scalar token.
func (s *Scanner) Kind() TokenKind {
	return s.kind
}

func (s *Scanner) skipSpace() {
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *Scanner) peek() (byte, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	return s.data[s.pos], true
}

// scanString consumes a quoted string starting at the cursor and returns
// its raw contents between the quotes, escapes intact.
func (s *Scanner) scanString() ([]byte, error) {
	start := s.pos
	s.pos++ // opening quote
	begin := s.pos
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case '\\':
			// skip the escaped byte; \uXXXX hex digits cannot be '"'
			s.pos += 2
		case '"':
			lit := s.data[begin:s.pos]
			s.pos++
			return lit, nil
		default:
			s.pos++
		}
	}
	return nil, &SyntaxError{Offset: start, Msg: "unterminated string"}
}

// scanScalar consumes one scalar token at the cursor and records its kind
// and raw bytes for the typed accessors.
func (s *Scanner) scanScalar() error {
	c, ok := s.peek()
	if !ok {
		return &SyntaxError{Offset: s.pos, Msg: "unexpected end of document"}
	}
	switch {
	case c == '"':
		lit, err := s.scanString()
		if err != nil {
			return err
		}
		s.kind, s.lit = KindString, lit
		return nil
	case c == '-' || (c >= '0' && c <= '9'):
		return s.scanNumber()
	case c == 't':
		return s.scanKeyword("true", KindTrue)
	case c == 'f':
		return s.scanKeyword("false", KindFalse)
	case c == 'n':
		return s.scanKeyword("null", KindNull)
	default:
		return &SyntaxError{Offset: s.pos, Msg: fmt.Sprintf("unexpected character %q", c)}
	}
}

// scanNumber consumes a numeric token. The shape is checked loosely here;
// the typed accessors are the arbiter of whether the digits mean anything.
func (s *Scanner) scanNumber() error {
	start := s.pos
	if s.data[s.pos] == '-' {
		s.pos++
	}
	digits := 0
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c >= '0' && c <= '9' {
			digits++
			s.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			s.pos++
			continue
		}
		break
	}
	if digits == 0 {
		return &SyntaxError{Offset: start, Msg: "malformed number"}
	}
	s.kind, s.lit = KindNumber, s.data[start:s.pos]
	return nil
}

func (s *Scanner) scanKeyword(word string, kind TokenKind) error {
	if len(s.data)-s.pos < len(word) || string(s.data[s.pos:s.pos+len(word)]) != word {
		return &SyntaxError{Offset: s.pos, Msg: "malformed literal"}
	}
	s.kind = kind
	s.lit = s.data[s.pos : s.pos+len(word)]
	s.pos += len(word)
	return nil
}

// skipArray consumes an entire array starting at the cursor without
// inspecting its contents.
//
// Only square brackets are counted; braces inside the array are plain
// bytes as far as the skip is concerned. Strings are honored so that
// bracket characters inside them do not disturb the count.
func (s *Scanner) skipArray() error {
	start := s.pos
	depth := 0
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case '"':
			if _, err := s.scanString(); err != nil {
				return err
			}
			continue // scanString advanced the cursor already
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				s.pos++
				return nil
			}
		}
		s.pos++
	}
	return &SyntaxError{Offset: start, Msg: "unterminated array"}
}

// Int interprets the last scanned token as a signed integer.
//
// The digits are parsed in place without allocating. Float-shaped numbers
// and values that overflow int64 report false.
func (s *Scanner) Int() (int64, bool) {
	if s.kind != KindNumber {
		return 0, false
	}
	lit := s.lit
	i := 0
	neg := false
	if i < len(lit) && lit[i] == '-' {
		neg = true
		i++
	}
	if i == len(lit) {
		return 0, false
	}
	var n int64
	for ; i < len(lit); i++ {
		c := lit[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		d := int64(c - '0')
		if n > (math.MaxInt64-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	if neg {
		n = -n
	}
	return n, true
}

// Float interprets the last scanned token as a floating-point number.
func (s *Scanner) Float() (float64, bool) {
	if s.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(s.lit), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Bool interprets the last scanned token as a boolean.
func (s *Scanner) Bool() (bool, bool) {
	switch s.kind {
	case KindTrue:
		return true, true
	case KindFalse:
		return false, true
	default:
		return false, false
	}
}

// Str interprets the last scanned token as a string.
//
// Strings without escapes are returned as a view into the document.
// Escaped strings are unescaped into an internal buffer that is reused,
// so the returned bytes are valid only until the next Str call. Callers
// that retain the value must copy it.
func (s *Scanner) Str() ([]byte, bool) {
	if s.kind != KindString {
		return nil, false
	}
	if bytes.IndexByte(s.lit, '\\') < 0 {
		return s.lit, true
	}
	return s.unescape(s.lit)
}

func (s *Scanner) unescape(lit []byte) ([]byte, bool) {
	out := s.scratch[:0]
	i := 0
	for i < len(lit) {
		c := lit[i]
		if c != '\\' {
			out = append(out, c)
			i++
			continue
		}
		if i+1 >= len(lit) {
			s.scratch = out
			return nil, false
		}
		switch lit[i+1] {
		case '"', '\\', '/':
			out = append(out, lit[i+1])
			i += 2
		case 'b':
			out = append(out, '\b')
			i += 2
		case 'f':
			out = append(out, '\f')
			i += 2
		case 'n':
			out = append(out, '\n')
			i += 2
		case 'r':
			out = append(out, '\r')
			i += 2
		case 't':
			out = append(out, '\t')
			i += 2
		case 'u':
			r, n, ok := decodeUnicode(lit[i:])
			if !ok {
				s.scratch = out
				return nil, false
			}
			out = utf8.AppendRune(out, r)
			i += n
		default:
			s.scratch = out
			return nil, false
		}
	}
	s.scratch = out
	return out, true
}

// decodeUnicode decodes a \uXXXX escape at the start of b, combining a
// following low surrogate when present. It returns the decoded rune and
// the number of bytes consumed. Lone surrogates decode to the replacement
// character, matching encoding/json.
func decodeUnicode(b []byte) (rune, int, bool) {
	if len(b) < 6 {
		return 0, 0, false
	}
	hi, ok := parseHex4(b[2:6])
	if !ok {
		return 0, 0, false
	}
	r := rune(hi)
	if utf16.IsSurrogate(r) {
		if len(b) >= 12 && b[6] == '\\' && b[7] == 'u' {
			if lo, ok := parseHex4(b[8:12]); ok {
				if dec := utf16.DecodeRune(r, rune(lo)); dec != unicode.ReplacementChar {
					return dec, 12, true
				}
			}
		}
		return unicode.ReplacementChar, 6, true
	}
	return r, 6, true
}

func parseHex4(b []byte) (uint32, bool) {
	var v uint32
	for _, c := range b {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= uint32(c - '0')
		case c >= 'a' && c <= 'f':
			v |= uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= uint32(c-'A') + 10
		default:
			return 0, false
		}
	}
	return v, true
}
