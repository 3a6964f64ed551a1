package controller

import (
	"fmt"

	"github.com/philippkemmeter/mvcfun/internal/response"
)

// Redirect sends every matching request to a fixed destination.
type Redirect struct {
	Base
	destination string
	status      response.StatusCode
	addPath     bool
}

// NewRedirect creates a redirect answering status, 301 when zero. With
// addPath the request path is appended to destination.
func NewRedirect(path Pattern, destination string, status response.StatusCode, addPath bool, opts ...Option) (*Redirect, error) {
	base, err := NewBase(path, opts...)
	if err != nil {
		return nil, err
	}
	if status == 0 {
		status = response.StatusMovedPermanently
	}
	if status < response.StatusMultipleChoices || status > response.StatusPermanentRedirect {
		return nil, fmt.Errorf("%w: %d", response.ErrInvalidRedirect, status)
	}
	return &Redirect{Base: base, destination: destination, status: status, addPath: addPath}, nil
}

func (r *Redirect) Destination() string { return r.destination }

func (r *Redirect) Status() response.StatusCode { return r.status }

func (r *Redirect) Run(ctx *Context) error {
	dest := r.destination
	if r.addPath {
		dest += ctx.Request.EscapedPath()
	}
	return ctx.Manager().WriteRedirect(ctx.Response, r.status, dest)
}
