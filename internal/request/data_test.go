package request

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *Request {
	t.Helper()
	req, err := RequestFromReader(strings.NewReader(raw))
	require.NoError(t, err)
	return req
}

func TestDataHostAndPort(t *testing.T) {
	cases := []struct {
		host     string
		wantHost string
		wantPort int
	}{
		{"example.com:8080", "example.com", 8080},
		{"example.com", "example.com", 80},
		{"example.com:http", "example.com", 80},
		{"example.com:99999", "example.com", 80},
		{"[::1]:8443", "::1", 8443},
		{"[::1]", "::1", 80},
	}

	for _, tc := range cases {
		req := mustParse(t, "GET / HTTP/1.1\r\nHost: "+tc.host+"\r\n\r\n")
		d := FromRequest(req)
		assert.Equal(t, tc.wantHost, d.Host(), tc.host)
		assert.Equal(t, tc.wantPort, d.Port(), tc.host)
	}

	d := FromRequest(mustParse(t, "GET / HTTP/1.0\r\n\r\n"))
	assert.Equal(t, "", d.Host())
	assert.Equal(t, DefaultPort, d.Port())
}

func TestDataPathAndQuery(t *testing.T) {
	req := mustParse(t, "GET /a%20b/c?x=1&y=two&x=3&flag#frag HTTP/1.1\r\nHost: h\r\n\r\n")
	d := FromRequest(req)

	assert.Equal(t, "GET", d.Method())
	assert.Equal(t, "/a b/c", d.Path())
	assert.Equal(t, map[string]string{"x": "3", "y": "two", "flag": ""}, d.Query())

	v, ok := d.QueryValue("y")
	assert.True(t, ok)
	assert.Equal(t, "two", v)
	_, ok = d.QueryValue("missing")
	assert.False(t, ok)

	q := d.Query()
	q["x"] = "mutated"
	v, _ = d.QueryValue("x")
	assert.Equal(t, "3", v)
}

func TestDataEscapedPath(t *testing.T) {
	cases := []struct {
		target      string
		wantPath    string
		wantEscaped string
	}{
		{"/plain", "/plain", "/plain"},
		{"/a%20b/c?x=1", "/a b/c", "/a%20b/c"},
		{"/old%0d%0aSet-Cookie:%20s=1", "/old\r\nSet-Cookie: s=1", "/old%0d%0aSet-Cookie:%20s=1"},
		{"/bad%zz", "/bad%zz", "/bad%25zz"},
	}
	for _, tc := range cases {
		d := FromRequest(mustParse(t, "GET "+tc.target+" HTTP/1.1\r\nHost: h\r\n\r\n"))
		assert.Equal(t, tc.wantPath, d.Path(), tc.target)
		assert.Equal(t, tc.wantEscaped, d.EscapedPath(), tc.target)
		assert.NotContains(t, d.EscapedPath(), "\r", tc.target)
	}
}

func TestDataAbsoluteFormTarget(t *testing.T) {
	d := FromRequest(mustParse(t, "GET http://example.com/docs/x?a=b HTTP/1.1\r\n\r\n"))
	assert.Equal(t, "/docs/x", d.Path())
	assert.Equal(t, "b", d.Query()["a"])
}

func TestDataJSONBody(t *testing.T) {
	req := mustParse(t, "POST / HTTP/1.1\r\nContent-Length: 15\r\n\r\n{\"a\":1,\"b\":[2]}")
	d := FromRequest(req)

	assert.Equal(t, `{"a":1,"b":[2]}`, d.RawBody())
	body, ok := d.Body().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), body["a"])
	assert.Equal(t, []any{float64(2)}, body["b"])
}

func TestDataSoftFailsOnInvalidJSON(t *testing.T) {
	req := mustParse(t, "POST / HTTP/1.1\r\n\r\n")
	d := NewData(req, "name=value&x")

	assert.Nil(t, d.Body())
	assert.Equal(t, "name=value&x", d.RawBody())

	assert.Nil(t, NewData(req, "").Body())
	assert.Nil(t, NewData(req, "   ").Body())
}

func TestDataHeadersLowerCased(t *testing.T) {
	req := mustParse(t, "GET / HTTP/1.1\r\nX-Custom-Header: Value\r\nAccept: a\r\nAccept: b\r\n\r\n")
	d := FromRequest(req)

	h := d.Headers()
	assert.Equal(t, "Value", h["x-custom-header"])
	assert.Equal(t, "a", h["accept"])
	_, upper := h["X-Custom-Header"]
	assert.False(t, upper)

	assert.Equal(t, "Value", d.Header("X-CUSTOM-HEADER"))
	assert.Equal(t, []string{"a", "b"}, d.HeaderValues("accept"))
	assert.Empty(t, d.Header("missing"))

	h["accept"] = "changed"
	assert.Equal(t, "a", d.Header("accept"))
}
