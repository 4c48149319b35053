package core

// utoa converts an unsigned integer to a string without using fmt package
func utoa(n uint32) string {
	var buf [10]byte
	return string(appendUint(buf[:0], n))
}

// appendUint appends the decimal form of n to dst without allocating
func appendUint(dst []byte, n uint32) []byte {
	if n == 0 {
		return append(dst, '0')
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}

	return append(dst, buf[pos:]...)
}

// parseUint32 parses an unsigned decimal number with an optional leading '+'.
// Empty input, any other character and values above 2^32-1 are rejected.
func parseUint32(s []byte) (uint32, bool) {
	if len(s) > 0 && s[0] == '+' {
		s = s[1:]
	}
	if len(s) == 0 {
		return 0, false
	}

	var value uint32
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := uint32(c - '0')
		if value > (^uint32(0)-d)/10 {
			return 0, false // Overflow
		}
		value = value*10 + d
	}

	return value, true
}

// tokenIs compares a byte token with a string without converting either
func tokenIs(tok []byte, s string) bool {
	if len(tok) != len(s) {
		return false
	}
	for i := range tok {
		if tok[i] != s[i] {
			return false
		}
	}
	return true
}

// Args iterates over the space-separated tokens of a command line.
// Separators are single spaces: two spaces in a row yield an empty token.
type Args struct {
	rest []byte
	more bool
}

// NewArgs starts tokenizing line
func NewArgs(line []byte) Args {
	return Args{rest: line, more: true}
}

// Next returns the next token, or false once the line is exhausted
func (a *Args) Next() ([]byte, bool) {
	if !a.more {
		return nil, false
	}

	for i, c := range a.rest {
		if c == ' ' {
			tok := a.rest[:i]
			a.rest = a.rest[i+1:]
			return tok, true
		}
	}

	tok := a.rest
	a.rest = nil
	a.more = false
	return tok, true
}
