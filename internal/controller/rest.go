package controller

import (
	"net/http"
	"strings"
)

// Rest dispatches on the request method. Methods without a handler answer
// 405 through the JSON manager.
type Rest struct {
	Base
	handlers map[string]HandlerFunc
}

func NewRest(path Pattern, opts ...Option) (*Rest, error) {
	base, err := NewBase(path, opts...)
	if err != nil {
		return nil, err
	}
	return &Rest{Base: base, handlers: make(map[string]HandlerFunc)}, nil
}

// Handle registers fn for method and returns r for chaining.
func (r *Rest) Handle(method string, fn HandlerFunc) *Rest {
	r.handlers[strings.ToUpper(method)] = fn
	return r
}

func (r *Rest) Get(fn HandlerFunc) *Rest    { return r.Handle(http.MethodGet, fn) }
func (r *Rest) Post(fn HandlerFunc) *Rest   { return r.Handle(http.MethodPost, fn) }
func (r *Rest) Put(fn HandlerFunc) *Rest    { return r.Handle(http.MethodPut, fn) }
func (r *Rest) Delete(fn HandlerFunc) *Rest { return r.Handle(http.MethodDelete, fn) }

func (r *Rest) Run(ctx *Context) error {
	method := ctx.Request.Method()
	fn, ok := r.handlers[method]
	if !ok && method == http.MethodHead {
		fn, ok = r.handlers[http.MethodGet]
	}
	if !ok {
		return ctx.Managers.JSON.WriteMethodNotAllowed(ctx.Response, method, r.Language())
	}
	return fn(ctx)
}

// Result is the envelope written by Reply.
type Result struct {
	Err    *string `json:"err"`
	Result any     `json:"result"`
}

// Reply writes result, or err's message with a null result, as JSON.
func (r *Rest) Reply(ctx *Context, result any, err error) error {
	env := Result{Result: result}
	if err != nil {
		msg := err.Error()
		env = Result{Err: &msg}
	}
	return ctx.Managers.JSON.Write(ctx.Response, env, r.Language())
}
