package request

import (
	"bytes"
	"errors"
	"strings"

	"github.com/philippkemmeter/mvcfun/internal/headers"
)

var (
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrInvalidMethod        = errors.New("invalid HTTP method")
	ErrInvalidPath          = errors.New("invalid request path")
	ErrUnsupportedVersion   = errors.New("unsupported HTTP version")
)

// parseRequestLine parses "METHOD TARGET VERSION\r\n". A zero consumed
// count with a nil error means the line is not complete yet.
func parseRequestLine(data []byte) (method, target, version string, consumed int, err error) {
	idx := bytes.Index(data, crlf)
	if idx == -1 {
		return "", "", "", 0, nil
	}

	parts := bytes.Split(data[:idx], []byte(" "))
	if len(parts) != 3 {
		return "", "", "", 0, ErrMalformedRequestLine
	}

	method = string(parts[0])
	target = string(parts[1])
	version = string(parts[2])

	if !headers.IsToken(method) {
		return "", "", "", 0, ErrInvalidMethod
	}
	if !isValidTarget(method, target) {
		return "", "", "", 0, ErrInvalidPath
	}
	if version != "HTTP/1.0" && version != "HTTP/1.1" {
		return "", "", "", 0, ErrUnsupportedVersion
	}

	return method, target, version, idx + 2, nil
}

// isValidTarget accepts origin-form, absolute-form, "*" for OPTIONS and
// authority-form for CONNECT.
func isValidTarget(method, target string) bool {
	switch {
	case target == "":
		return false
	case target[0] == '/':
		return true
	case target == "*":
		return method == "OPTIONS"
	case method == "CONNECT":
		return !strings.ContainsAny(target, "/?#")
	default:
		return strings.Contains(target, "://")
	}
}
