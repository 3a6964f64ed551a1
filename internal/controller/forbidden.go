package controller

import (
	"errors"
	"io/fs"
	"os"
)

// Forbidden answers 403. Unless always is set, a path that does not exist
// below the document root answers 404 instead, so the controller does not
// reveal which files are hidden.
type Forbidden struct {
	Base
	htdocsDir string
	always    bool
}

func NewForbidden(path Pattern, htdocsDir string, always bool, opts ...Option) (*Forbidden, error) {
	base, err := NewBase(path, opts...)
	if err != nil {
		return nil, err
	}
	if htdocsDir == "" {
		htdocsDir = DefaultHtdocsDir
	}
	return &Forbidden{Base: base, htdocsDir: htdocsDir, always: always}, nil
}

func (f *Forbidden) AlwaysForbidden() bool { return f.always }

func (f *Forbidden) Run(ctx *Context) error {
	m := ctx.Manager()
	if f.always {
		return m.WriteForbidden(ctx.Response, f.Language())
	}

	reqPath := ctx.Request.Path()
	file, ok := fileUnder(f.htdocsDir, reqPath)
	if !ok {
		return m.WriteForbidden(ctx.Response, f.Language())
	}
	if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
		return m.WriteNotFound(ctx.Response, reqPath, f.Language())
	}
	return m.WriteForbidden(ctx.Response, f.Language())
}
