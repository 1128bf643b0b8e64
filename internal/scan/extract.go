package scan

// Built-in extractors covering the token shapes the snapshot feed uses.
// Handlers needing other conversions supply their own [ExtractFunc].

// Int64 extracts an integer-shaped number token.
func Int64(s *Scanner) (int64, bool) {
	return s.Int()
}

// Float64 extracts any number token.
func Float64(s *Scanner) (float64, bool) {
	return s.Float()
}

// Bool extracts a true or false token.
func Bool(s *Scanner) (bool, bool) {
	return s.Bool()
}

// Str extracts a string token as a Go string. The bytes are copied, so
// the result is safe to retain after the scan moves on.
func Str(s *Scanner) (string, bool) {
	b, ok := s.Str()
	if !ok {
		return "", false
	}
	return string(b), true
}
