package request

import (
	"strconv"
	"strings"

	"github.com/philippkemmeter/mvcfun/internal/headers"
)

// Request is one parsed HTTP/1.x request as read off the wire.
type Request struct {
	Method  string
	Target  string // request-target exactly as sent
	Version string
	Headers *headers.Headers
	Body    []byte
}

func newRequest() *Request {
	return &Request{Headers: headers.NewHeaders()}
}

// Host returns the Host header verbatim, port included.
func (r *Request) Host() string {
	return r.Headers.Value("host")
}

// ContentLength returns the declared body length, or -1 when absent or
// unparsable.
func (r *Request) ContentLength() int64 {
	cl, ok := r.Headers.Get("content-length")
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func (r *Request) IsChunked() bool {
	te, ok := r.Headers.Get("transfer-encoding")
	if !ok {
		return false
	}
	parts := strings.Split(te, ",")
	return strings.EqualFold(strings.TrimSpace(parts[len(parts)-1]), "chunked")
}

func (r *Request) IsHTTP10() bool {
	return r.Version == "HTTP/1.0"
}

func (r *Request) IsHTTP11() bool {
	return r.Version == "HTTP/1.1"
}

// WantsClose reports whether the connection should end after this
// request according to the version default and the Connection header.
func (r *Request) WantsClose() bool {
	if r.hasConnectionToken("close") {
		return true
	}
	if r.IsHTTP10() {
		return !r.hasConnectionToken("keep-alive")
	}
	return false
}

func (r *Request) WantsKeepAlive() bool {
	return !r.WantsClose()
}

func (r *Request) hasConnectionToken(token string) bool {
	for _, v := range r.Headers.GetAll("connection") {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
