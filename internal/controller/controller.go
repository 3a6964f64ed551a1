package controller

import (
	"errors"
	"fmt"

	"github.com/philippkemmeter/mvcfun/internal/logging"
	"github.com/philippkemmeter/mvcfun/internal/request"
	"github.com/philippkemmeter/mvcfun/internal/response"
)

var ErrInvalidLanguage = errors.New("controller language must be empty or exactly 2 characters")

// Controller handles every request whose host, port and path match its
// patterns. Path must not be empty; Host and Port default to Any.
type Controller interface {
	Path() Pattern
	Host() Pattern
	Port() Pattern
	Language() string
	Run(ctx *Context) error
}

// Context carries one request through a controller.
type Context struct {
	Request    *request.Data
	Response   response.Transport
	Managers   *response.Set
	Logger     logging.Logger
	RequestID  string
	RemoteAddr string
}

// Manager returns the default response manager.
func (c *Context) Manager() *response.Manager {
	return c.Managers.Default()
}

func (c *Context) Log() logging.Logger {
	return logging.OrNop(c.Logger)
}

// Base implements the pattern accessors of Controller. Variants embed it
// and add Run.
type Base struct {
	path     Pattern
	host     Pattern
	port     Pattern
	language string
}

type Option func(*Base)

func WithHost(p Pattern) Option {
	return func(b *Base) { b.host = p }
}

func WithPort(p Pattern) Option {
	return func(b *Base) { b.port = p }
}

// WithLanguage sets the Content-Language announced by the controller.
func WithLanguage(lang string) Option {
	return func(b *Base) { b.language = lang }
}

func NewBase(path Pattern, opts ...Option) (Base, error) {
	b := Base{path: path}
	for _, opt := range opts {
		opt(&b)
	}
	if err := response.ValidateLanguage(b.language); err != nil {
		return Base{}, fmt.Errorf("%w: %q", ErrInvalidLanguage, b.language)
	}
	return b, nil
}

func (b Base) Path() Pattern { return b.path }

func (b Base) Host() Pattern { return b.host }

func (b Base) Port() Pattern { return b.port }

func (b Base) Language() string { return b.language }

// Describe renders a controller's patterns for logs.
func Describe(c Controller) string {
	return fmt.Sprintf("host=%s port=%s path=%s", c.Host(), c.Port(), c.Path())
}
