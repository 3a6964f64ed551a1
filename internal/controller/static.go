package controller

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/philippkemmeter/mvcfun/internal/headers"
	"github.com/philippkemmeter/mvcfun/internal/response"
)

// DefaultHtdocsDir is the document root used when none is configured.
const DefaultHtdocsDir = "./htdocs"

const indexFile = "index.html"

// Static serves files below a document root. The request path is appended
// to the root; paths containing ".." are refused with 403.
type Static struct {
	Base
	htdocsDir string
}

func NewStatic(path Pattern, htdocsDir string, opts ...Option) (*Static, error) {
	base, err := NewBase(path, opts...)
	if err != nil {
		return nil, err
	}
	if htdocsDir == "" {
		htdocsDir = DefaultHtdocsDir
	}
	return &Static{Base: base, htdocsDir: htdocsDir}, nil
}

func (s *Static) HtdocsDir() string { return s.htdocsDir }

func (s *Static) Run(ctx *Context) error {
	m := ctx.Manager()
	reqPath := ctx.Request.Path()

	file, ok := fileUnder(s.htdocsDir, reqPath)
	if !ok {
		return m.WriteForbidden(ctx.Response, s.Language())
	}

	info, err := os.Stat(file)
	if err == nil && info.IsDir() {
		file = filepath.Join(file, indexFile)
		info, err = os.Stat(file)
	}
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return m.WriteNotFound(ctx.Response, reqPath, s.Language())
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", file, err)
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	h := headers.NewHeaders()
	h.Set("Content-Type", ContentTypeFor(file, m.Charset()))
	if s.Language() != "" {
		h.Set("Content-Language", s.Language())
	}
	if err := ctx.Response.WriteHead(response.StatusOK, h); err != nil {
		return err
	}
	return ctx.Response.End(content)
}

// fileUnder maps an URL path onto a file below root. It reports false when
// the path tries to leave root.
func fileUnder(root, urlPath string) (string, bool) {
	for _, seg := range strings.Split(filepath.ToSlash(urlPath), "/") {
		if seg == ".." {
			return "", false
		}
	}
	if strings.ContainsRune(urlPath, 0) || strings.Contains(urlPath, `\`) {
		return "", false
	}
	clean := path.Clean("/" + urlPath)
	return filepath.Join(root, filepath.FromSlash(clean)), true
}
