package server

import (
	"time"

	"github.com/philippkemmeter/mvcfun/internal/request"
)

// DefaultMaxRequestBodySize is the body limit used when none is configured.
const DefaultMaxRequestBodySize = 1000

// DefaultAllowedMethods are answered; anything else gets 405.
var DefaultAllowedMethods = []string{
	"OPTIONS", "GET", "HEAD", "POST", "PUT", "DELETE", "TRACE", "CONNECT", "PATCH",
}

// Config holds server configuration.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	// MaxRequestBodySize limits the request body in bytes. A negative value
	// disables the limit.
	MaxRequestBodySize int64
	AllowedMethods     []string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:               ":8080",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        120 * time.Second,
		MaxHeaderBytes:     request.DefaultMaxHeaderBytes,
		MaxRequestBodySize: DefaultMaxRequestBodySize,
		AllowedMethods:     append([]string(nil), DefaultAllowedMethods...),
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.MaxHeaderBytes <= 0 {
		c.MaxHeaderBytes = d.MaxHeaderBytes
	}
	if c.MaxRequestBodySize == 0 {
		c.MaxRequestBodySize = d.MaxRequestBodySize
	}
	if c.AllowedMethods == nil {
		c.AllowedMethods = d.AllowedMethods
	}
	return c
}

func (c Config) readerOptions() []request.Option {
	opts := []request.Option{
		request.WithAllowedMethods(c.AllowedMethods...),
		request.WithMaxHeaderBytes(c.MaxHeaderBytes),
	}
	if c.MaxRequestBodySize > 0 {
		opts = append(opts, request.WithMaxBodySize(c.MaxRequestBodySize))
	}
	return opts
}
