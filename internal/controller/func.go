package controller

// HandlerFunc is the signature of a plain controller body.
type HandlerFunc func(ctx *Context) error

// Func adapts a HandlerFunc into a Controller.
type Func struct {
	Base
	fn HandlerFunc
}

func NewFunc(path Pattern, fn HandlerFunc, opts ...Option) (*Func, error) {
	base, err := NewBase(path, opts...)
	if err != nil {
		return nil, err
	}
	return &Func{Base: base, fn: fn}, nil
}

func (f *Func) Run(ctx *Context) error {
	return f.fn(ctx)
}
