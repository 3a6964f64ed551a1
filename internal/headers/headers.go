package headers

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrLineFolding     = errors.New("obsolete line folding not supported")
	ErrMalformedHeader = errors.New("malformed header")
	ErrInvalidName     = errors.New("invalid character in header name")
)

var crlf = []byte("\r\n")

// Headers is a case-insensitive multi-value header map. Keys are stored
// lower-cased.
type Headers struct {
	headers map[string][]string
}

func NewHeaders() *Headers {
	return &Headers{
		headers: make(map[string][]string),
	}
}

// Get returns the first value for a header
func (h *Headers) Get(key string) (string, bool) {
	values := h.headers[strings.ToLower(key)]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Value is Get without the presence flag.
func (h *Headers) Value(key string) string {
	v, _ := h.Get(key)
	return v
}

// GetAll returns all values for a header
func (h *Headers) GetAll(key string) []string {
	return h.headers[strings.ToLower(key)]
}

func (h *Headers) Has(key string) bool {
	_, ok := h.headers[strings.ToLower(key)]
	return ok
}

// Set replaces all values for a header
func (h *Headers) Set(key, value string) {
	h.headers[strings.ToLower(key)] = []string{value}
}

// Add appends a value to a header
func (h *Headers) Add(key, value string) {
	key = strings.ToLower(key)
	h.headers[key] = append(h.headers[key], value)
}

func (h *Headers) Del(key string) {
	delete(h.headers, strings.ToLower(key))
}

func (h *Headers) Len() int {
	return len(h.headers)
}

// Keys returns the lower-cased header names in sorted order.
func (h *Headers) Keys() []string {
	keys := make([]string, 0, len(h.headers))
	for k := range h.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy holding the first value of each header.
func (h *Headers) Map() map[string]string {
	out := make(map[string]string, len(h.headers))
	for k, v := range h.headers {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// Clone returns a deep copy.
func (h *Headers) Clone() *Headers {
	c := &Headers{headers: make(map[string][]string, len(h.headers))}
	for k, v := range h.headers {
		c.headers[k] = append([]string(nil), v...)
	}
	return c
}

// Merge copies every header of other into h, replacing existing keys.
func (h *Headers) Merge(other *Headers) {
	if other == nil {
		return
	}
	for k, v := range other.headers {
		h.headers[k] = append([]string(nil), v...)
	}
}

// Parse consumes header lines from data until the empty line that ends the
// header block. It returns the number of bytes consumed and whether the
// block is complete; a partial trailing line is left for the next call.
func (h *Headers) Parse(data []byte) (int, bool, error) {
	read := 0

	for {
		idx := bytes.Index(data[read:], crlf)
		if idx == -1 {
			return read, false, nil
		}

		if idx == 0 {
			return read + 2, true, nil
		}

		line := data[read : read+idx]
		if line[0] == ' ' || line[0] == '\t' {
			return read, false, ErrLineFolding
		}

		name, value, err := parseHeader(line)
		if err != nil {
			return read, false, err
		}

		h.Add(name, value)
		read += idx + 2
	}
}

func parseHeader(line []byte) (string, string, error) {
	colonIdx := bytes.IndexByte(line, ':')
	if colonIdx <= 0 {
		return "", "", fmt.Errorf("%w: no name or colon", ErrMalformedHeader)
	}

	name := line[:colonIdx]
	if bytes.ContainsAny(name, " \t") {
		return "", "", fmt.Errorf("%w: whitespace in name", ErrMalformedHeader)
	}

	for _, b := range name {
		if !isTokenChar(b) {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidName, b)
		}
	}

	value := bytes.TrimSpace(line[colonIdx+1:])
	return strings.ToLower(string(name)), string(value), nil
}

// IsToken reports whether s is a non-empty RFC 9110 token.
func IsToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return false
		}
	}
	return true
}

func isTokenChar(b byte) bool {
	return (b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z') ||
		(b >= '0' && b <= '9') ||
		b == '!' || b == '#' || b == '$' || b == '%' || b == '&' ||
		b == '\'' || b == '*' || b == '+' || b == '-' || b == '.' ||
		b == '^' || b == '_' || b == '`' || b == '|' || b == '~'
}
