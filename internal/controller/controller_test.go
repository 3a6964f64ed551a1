package controller

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philippkemmeter/mvcfun/internal/logging"
	"github.com/philippkemmeter/mvcfun/internal/request"
	"github.com/philippkemmeter/mvcfun/internal/response"
)

type result struct {
	code   int
	header http.Header
	body   string
}

func newTestContext(t *testing.T, method, target string) (*Context, *bytes.Buffer) {
	t.Helper()
	raw := method + " " + target + " HTTP/1.1\r\nHost: example.com\r\n\r\n"
	req, err := request.RequestFromReader(strings.NewReader(raw))
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	return &Context{
		Request:  request.FromRequest(req),
		Response: response.NewWriter(buf),
		Managers: response.NewSet(),
		Logger:   logging.Nop(),
	}, buf
}

func readResult(t *testing.T, buf *bytes.Buffer) result {
	t.Helper()
	resp, err := http.ReadResponse(bufio.NewReader(buf), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return result{code: resp.StatusCode, header: resp.Header, body: string(body)}
}

func TestPatternMatching(t *testing.T) {
	assert.True(t, Any().Match("anything"))
	assert.True(t, Any().MatchPort(8080))
	assert.True(t, Exact("/a").Match("/a"))
	assert.False(t, Exact("/a").Match("/ab"))
	assert.True(t, Port(8080).MatchPort(8080))
	assert.False(t, Port(8080).MatchPort(80))

	re := MustCompile("ab")
	assert.True(t, re.Match("/ababaa"))
	assert.False(t, re.Match("/ba"))
	assert.True(t, MustCompile(`^80[0-9]{2}$`).MatchPort(8081))

	_, err := Compile("(")
	assert.Error(t, err)
}

func TestPatternEquality(t *testing.T) {
	assert.True(t, Exact("/a").Equal(Exact("/a")))
	assert.False(t, Exact("/a").Equal(Exact("/b")))
	assert.True(t, MustCompile("^/a").Equal(Regexp(regexp.MustCompile("^/a"))))
	assert.False(t, MustCompile("(?i)^/a").Equal(MustCompile("^/a")))
	assert.False(t, Exact("^/a").Equal(MustCompile("^/a")))
	assert.True(t, Any().Equal(Pattern{}))
	assert.True(t, Regexp(nil).IsAny())
}

func TestPatternKinds(t *testing.T) {
	assert.True(t, Any().IsEmpty())
	assert.True(t, Exact("").IsEmpty())
	assert.False(t, Exact("/").IsEmpty())
	assert.Equal(t, KindRegexp, MustCompile("x").Kind())
	assert.Equal(t, "regexp", KindRegexp.String())
	assert.Equal(t, "*", Any().String())
	assert.Equal(t, "^/x", MustCompile("^/x").String())
}

func TestNewBaseValidatesLanguage(t *testing.T) {
	b, err := NewBase(Exact("/"), WithHost(Exact("example.com")), WithPort(Port(80)), WithLanguage("en"))
	require.NoError(t, err)
	assert.Equal(t, "example.com", b.Host().String())
	assert.Equal(t, "80", b.Port().String())
	assert.Equal(t, "en", b.Language())

	_, err = NewBase(Exact("/"), WithLanguage("eng"))
	assert.ErrorIs(t, err, ErrInvalidLanguage)

	_, err = NewFunc(Exact("/"), nil, WithLanguage("x"))
	assert.ErrorIs(t, err, ErrInvalidLanguage)

	b, err = NewBase(Exact("/"))
	require.NoError(t, err)
	assert.True(t, b.Host().IsAny())
	assert.True(t, b.Port().IsAny())
	assert.Equal(t, "host=* port=* path=/", Describe(&Func{Base: b}))
}

func TestFunc(t *testing.T) {
	called := false
	c, err := NewFunc(Exact("/hello"), func(ctx *Context) error {
		called = true
		return ctx.Manager().Write(ctx.Response, "hi "+ctx.Request.Path(), "")
	})
	require.NoError(t, err)

	ctx, buf := newTestContext(t, "GET", "/hello")
	require.NoError(t, c.Run(ctx))
	assert.True(t, called)
	assert.Equal(t, "hi /hello", readResult(t, buf).body)
}

func TestRedirect(t *testing.T) {
	c, err := NewRedirect(Exact("/old"), "https://example.org", 0, false)
	require.NoError(t, err)
	assert.Equal(t, response.StatusMovedPermanently, c.Status())

	ctx, buf := newTestContext(t, "GET", "/old")
	require.NoError(t, c.Run(ctx))
	res := readResult(t, buf)
	assert.Equal(t, 301, res.code)
	assert.Equal(t, "https://example.org", res.header.Get("Location"))
	assert.Empty(t, res.body)

	c, err = NewRedirect(MustCompile("^/docs"), "https://example.org", response.StatusFound, true)
	require.NoError(t, err)
	ctx, buf = newTestContext(t, "GET", "/docs/x?y=1")
	require.NoError(t, c.Run(ctx))
	res = readResult(t, buf)
	assert.Equal(t, 302, res.code)
	assert.Equal(t, "https://example.org/docs/x", res.header.Get("Location"))

	_, err = NewRedirect(Exact("/"), "/", response.StatusOK, false)
	assert.ErrorIs(t, err, response.ErrInvalidRedirect)
}

func TestRedirectKeepsPathEscaped(t *testing.T) {
	c, err := NewRedirect(MustCompile("^/old"), "http://example.org", response.StatusFound, true)
	require.NoError(t, err)

	ctx, buf := newTestContext(t, "GET", "/old%0d%0aSet-Cookie:%20session=evil")
	require.NoError(t, c.Run(ctx))

	raw := buf.String()
	assert.NotContains(t, raw, "\r\nSet-Cookie:")
	res := readResult(t, buf)
	assert.Equal(t, 302, res.code)
	assert.Equal(t, "http://example.org/old%0d%0aSet-Cookie:%20session=evil", res.header.Get("Location"))
	assert.Empty(t, res.header.Get("Set-Cookie"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestStatic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "css/site.css", "body{}")
	writeFile(t, dir, "docs/index.html", "<h1>docs</h1>")
	writeFile(t, dir, "logo.png", "\x89PNG")

	c, err := NewStatic(MustCompile("^/"), dir, WithLanguage("en"))
	require.NoError(t, err)

	ctx, buf := newTestContext(t, "GET", "/css/site.css")
	require.NoError(t, c.Run(ctx))
	res := readResult(t, buf)
	assert.Equal(t, 200, res.code)
	assert.Equal(t, "text/css; charset=utf-8", res.header.Get("Content-Type"))
	assert.Equal(t, "en", res.header.Get("Content-Language"))
	assert.Equal(t, "body{}", res.body)

	ctx, buf = newTestContext(t, "GET", "/logo.png")
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, "image/png", readResult(t, buf).header.Get("Content-Type"))

	ctx, buf = newTestContext(t, "GET", "/docs/")
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, "<h1>docs</h1>", readResult(t, buf).body)

	ctx, buf = newTestContext(t, "GET", "/missing.txt")
	require.NoError(t, c.Run(ctx))
	res = readResult(t, buf)
	assert.Equal(t, 404, res.code)
	assert.Equal(t, `File "/missing.txt" not found`, res.body)

	ctx, buf = newTestContext(t, "GET", "/css/../../etc/passwd")
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, 403, readResult(t, buf).code)
}

func TestStaticDefaultsHtdocs(t *testing.T) {
	c, err := NewStatic(Exact("/"), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultHtdocsDir, c.HtdocsDir())
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/javascript; charset=utf-8", ContentTypeFor("a.js", "utf-8"))
	assert.Equal(t, "text/html; charset=utf-8", ContentTypeFor("a.HTM", "utf-8"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("a.jpg", "utf-8"))
	assert.Equal(t, "video/mpeg", ContentTypeFor("a.mpg", "utf-8"))
	assert.Equal(t, "application/json", ContentTypeFor("a.json", ""))
	assert.Equal(t, "text/plain; charset=latin1", ContentTypeFor("README", "latin1"))
}

func TestForbidden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "secret.txt", "s3cr3t")

	c, err := NewForbidden(MustCompile("^/secret"), dir, false)
	require.NoError(t, err)
	assert.False(t, c.AlwaysForbidden())

	ctx, buf := newTestContext(t, "GET", "/secret.txt")
	require.NoError(t, c.Run(ctx))
	res := readResult(t, buf)
	assert.Equal(t, 403, res.code)
	assert.Equal(t, "Forbidden", res.body)

	ctx, buf = newTestContext(t, "GET", "/secret-other.txt")
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, 404, readResult(t, buf).code)

	always, err := NewForbidden(MustCompile("^/secret"), dir, true, WithLanguage("de"))
	require.NoError(t, err)
	ctx, buf = newTestContext(t, "GET", "/secret-other.txt")
	require.NoError(t, always.Run(ctx))
	res = readResult(t, buf)
	assert.Equal(t, 403, res.code)
	assert.Equal(t, "de", res.header.Get("Content-Language"))
}

func TestRest(t *testing.T) {
	c, err := NewRest(MustCompile("^/api/items"))
	require.NoError(t, err)
	c.Get(func(ctx *Context) error {
		return c.Reply(ctx, []string{"a", "b"}, nil)
	}).Post(func(ctx *Context) error {
		return c.Reply(ctx, nil, errors.New("read only"))
	})

	ctx, buf := newTestContext(t, "GET", "/api/items")
	require.NoError(t, c.Run(ctx))
	res := readResult(t, buf)
	assert.Equal(t, 200, res.code)
	assert.Equal(t, "application/json; charset=utf-8", res.header.Get("Content-Type"))
	assert.JSONEq(t, `{"err":null,"result":["a","b"]}`, res.body)

	ctx, buf = newTestContext(t, "POST", "/api/items")
	require.NoError(t, c.Run(ctx))
	assert.JSONEq(t, `{"err":"read only","result":null}`, readResult(t, buf).body)

	ctx, buf = newTestContext(t, "HEAD", "/api/items")
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, 200, readResult(t, buf).code)

	ctx, buf = newTestContext(t, "DELETE", "/api/items")
	require.NoError(t, c.Run(ctx))
	res = readResult(t, buf)
	assert.Equal(t, 405, res.code)
	assert.JSONEq(t, `{"error":"Method not allowed: DELETE"}`, res.body)
}
