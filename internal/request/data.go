package request

import (
	"encoding/json"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPort is assumed when the Host header names no port.
const DefaultPort = 80

// Data is the read-only view of a request handed to controllers. Maps
// returned by its accessors are copies.
type Data struct {
	method  string
	host    string
	port    int
	path    string
	rawPath string
	query   map[string]string
	rawBody string
	body    any
	headers map[string][]string
}

// NewData builds the view for req. The body is decoded as JSON when
// possible; otherwise Body reports nil and only RawBody is available.
func NewData(req *Request, rawBody string) *Data {
	d := &Data{
		method:  req.Method,
		rawBody: rawBody,
		headers: make(map[string][]string),
		query:   make(map[string]string),
		port:    DefaultPort,
	}

	for _, key := range req.Headers.Keys() {
		d.headers[strings.ToLower(key)] = append([]string(nil), req.Headers.GetAll(key)...)
	}

	d.host, d.port = splitHost(req.Host())
	d.path, d.rawPath, d.query = splitTarget(req.Target)
	d.body = decodeBody(rawBody)
	return d
}

// FromRequest is NewData with the request's own body.
func FromRequest(req *Request) *Data {
	return NewData(req, string(req.Body))
}

func (d *Data) Method() string { return d.method }

func (d *Data) Host() string { return d.host }

func (d *Data) Port() int { return d.port }

// Path is the percent-decoded request path without query or fragment.
func (d *Data) Path() string { return d.path }

// EscapedPath is the path in its escaped form, as received when that is a
// valid encoding of Path. It is safe to place into a header or URL.
func (d *Data) EscapedPath() string {
	u := url.URL{Path: d.path, RawPath: d.rawPath}
	return u.EscapedPath()
}

// Query returns the parsed query string. For repeated keys the last value
// wins.
func (d *Data) Query() map[string]string {
	out := make(map[string]string, len(d.query))
	for k, v := range d.query {
		out[k] = v
	}
	return out
}

func (d *Data) QueryValue(key string) (string, bool) {
	v, ok := d.query[key]
	return v, ok
}

// Body returns the JSON-decoded body, or nil.
func (d *Data) Body() any { return d.body }

func (d *Data) RawBody() string { return d.rawBody }

// Headers returns the first value of every header keyed by its lower-cased
// name.
func (d *Data) Headers() map[string]string {
	out := make(map[string]string, len(d.headers))
	for k, v := range d.headers {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// Header looks up a header case-insensitively.
func (d *Data) Header(key string) string {
	v := d.headers[strings.ToLower(key)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

func (d *Data) HeaderValues(key string) []string {
	return append([]string(nil), d.headers[strings.ToLower(key)]...)
}

// splitHost splits a Host header into name and port. A missing or
// malformed port yields DefaultPort.
func splitHost(hostHeader string) (string, int) {
	if hostHeader == "" {
		return "", DefaultPort
	}

	if strings.HasPrefix(hostHeader, "[") {
		if h, p, err := net.SplitHostPort(hostHeader); err == nil {
			return h, parsePort(p)
		}
		return strings.Trim(hostHeader, "[]"), DefaultPort
	}

	i := strings.LastIndexByte(hostHeader, ':')
	if i < 0 {
		return hostHeader, DefaultPort
	}
	return hostHeader[:i], parsePort(hostHeader[i+1:])
}

func parsePort(s string) int {
	p, err := strconv.Atoi(s)
	if err != nil || p < 0 || p > 65535 {
		return DefaultPort
	}
	return p
}

func splitTarget(target string) (string, string, map[string]string) {
	query := make(map[string]string)

	raw := target
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}

	rawPath, rawQuery, _ := strings.Cut(raw, "?")
	if strings.Contains(rawPath, "://") {
		if u, err := url.Parse(rawPath); err == nil {
			rawPath = u.EscapedPath()
		}
	}

	path, err := url.PathUnescape(rawPath)
	if err != nil {
		path = rawPath
	}

	// ParseQuery keeps every pair it could decode, even on error.
	values, _ := url.ParseQuery(rawQuery)
	for k, vs := range values {
		if len(vs) > 0 {
			query[k] = vs[len(vs)-1]
		}
	}
	return path, rawPath, query
}

func decodeBody(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return v
}
