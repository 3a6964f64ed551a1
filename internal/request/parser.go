package request

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	DefaultMaxHeaderBytes = 1 << 20

	maxRequestLineSize = 8192
	maxHeaderLines     = 1000
	maxURILength       = 8192
	readBufferSize     = 4096
)

var (
	ErrRequestLineTooLarge = errors.New("request line too large")
	ErrHeaderTooLarge      = errors.New("headers too large")
	ErrTooManyHeaders      = errors.New("too many header lines")
	ErrURITooLong          = errors.New("URI too long")
	ErrBodyTooLarge        = errors.New("request body exceeds maximum size")
	ErrMethodNotAllowed    = errors.New("method not allowed")
)

var crlf = []byte("\r\n")

type Option func(*options)

type options struct {
	maxBodySize    int64
	maxHeaderBytes int
	allowed        map[string]struct{}
}

// WithMaxBodySize caps the body in bytes. Zero or a negative value means
// unlimited.
func WithMaxBodySize(n int64) Option {
	return func(o *options) {
		o.maxBodySize = n
	}
}

func WithMaxHeaderBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxHeaderBytes = n
		}
	}
}

// WithAllowedMethods restricts the accepted methods. Requests using any
// other method fail with ErrMethodNotAllowed right after the request line,
// before headers or body are read. An empty list allows every method.
func WithAllowedMethods(methods ...string) Option {
	return func(o *options) {
		if len(methods) == 0 {
			o.allowed = nil
			return
		}
		o.allowed = make(map[string]struct{}, len(methods))
		for _, m := range methods {
			o.allowed[strings.ToUpper(m)] = struct{}{}
		}
	}
}

// Reader parses consecutive requests from one connection. Bytes read past
// the end of a request are kept for the next call to Next.
type Reader struct {
	r    io.Reader
	opts options
	buf  []byte
}

func NewReader(r io.Reader, opts ...Option) *Reader {
	o := options{maxHeaderBytes: DefaultMaxHeaderBytes}
	for _, opt := range opts {
		opt(&o)
	}
	return &Reader{r: r, opts: o}
}

// RequestFromReader parses a single request from r.
func RequestFromReader(r io.Reader, opts ...Option) (*Request, error) {
	return NewReader(r, opts...).Next()
}

// Buffered returns the number of bytes read but not yet consumed.
func (rd *Reader) Buffered() int {
	return len(rd.buf)
}

// Next reads the next request. It returns io.EOF when the peer closed the
// connection cleanly between requests. With ErrMethodNotAllowed the
// returned request carries the parsed request line.
func (rd *Reader) Next() (*Request, error) {
	req := newRequest()
	p := &parser{
		state:  stateRequestLine,
		opts:   &rd.opts,
		chunks: chunkDecoder{maxBody: rd.opts.maxBodySize},
	}

	readBuf := getBuffer(readBufferSize)
	defer putBuffer(readBuf)

	for {
		if len(rd.buf) > 0 {
			consumed, err := p.parse(rd.buf, req)
			rd.buf = rd.buf[consumed:]
			if err != nil {
				return req, err
			}
			if p.state == stateDone {
				if len(rd.buf) == 0 {
					rd.buf = nil
				}
				return req, nil
			}
			if consumed > 0 {
				continue
			}
		}

		if p.state != stateBody && p.headerBytes+len(rd.buf) > rd.opts.maxHeaderBytes {
			return req, ErrHeaderTooLarge
		}

		n, err := rd.r.Read(readBuf)
		if n > 0 {
			rd.buf = append(rd.buf, readBuf[:n]...)
		}
		if err != nil {
			if n > 0 && errors.Is(err, io.EOF) {
				continue
			}
			if errors.Is(err, io.EOF) {
				if p.state == stateRequestLine && len(rd.buf) == 0 {
					return nil, io.EOF
				}
				return req, io.ErrUnexpectedEOF
			}
			return req, fmt.Errorf("read request: %w", err)
		}
	}
}

type parserState int

const (
	stateRequestLine parserState = iota
	stateHeaders
	stateBody
	stateDone
)

// parser drives one request through request line, headers and body.
type parser struct {
	state       parserState
	opts        *options
	chunks      chunkDecoder
	headerBytes int
	headerLines int
}

// parse processes buffered data and advances the state machine. It
// returns the number of bytes consumed.
func (p *parser) parse(data []byte, req *Request) (int, error) {
	switch p.state {
	case stateRequestLine:
		return p.parseRequestLine(data, req)
	case stateHeaders:
		return p.parseHeaders(data, req)
	case stateBody:
		return p.parseBody(data, req)
	case stateDone:
		return 0, nil
	default:
		return 0, fmt.Errorf("invalid parser state: %d", p.state)
	}
}

func (p *parser) parseRequestLine(data []byte, req *Request) (int, error) {
	// Empty lines ahead of a request line are tolerated.
	if bytes.HasPrefix(data, crlf) {
		return 2, nil
	}

	method, target, version, consumed, err := parseRequestLine(data)
	if err != nil {
		return 0, err
	}
	if consumed == 0 {
		if len(data) > maxRequestLineSize {
			return 0, ErrRequestLineTooLarge
		}
		return 0, nil
	}
	if consumed > maxRequestLineSize {
		return 0, ErrRequestLineTooLarge
	}
	if len(target) > maxURILength {
		return 0, ErrURITooLong
	}

	req.Method = method
	req.Target = target
	req.Version = version
	p.headerBytes += consumed

	if p.opts.allowed != nil {
		if _, ok := p.opts.allowed[method]; !ok {
			return consumed, fmt.Errorf("%w: %s", ErrMethodNotAllowed, method)
		}
	}

	p.state = stateHeaders
	return consumed, nil
}

func (p *parser) parseHeaders(data []byte, req *Request) (int, error) {
	consumed, done, err := req.Headers.Parse(data)
	if err != nil {
		return 0, err
	}
	p.headerBytes += consumed
	p.headerLines += bytes.Count(data[:consumed], crlf)
	if p.headerLines > maxHeaderLines {
		return 0, ErrTooManyHeaders
	}
	if p.headerBytes > p.opts.maxHeaderBytes {
		return 0, ErrHeaderTooLarge
	}
	if !done {
		return consumed, nil
	}

	switch {
	case req.IsChunked():
		p.state = stateBody
	case req.ContentLength() > 0:
		if p.limited() && req.ContentLength() > p.opts.maxBodySize {
			return 0, ErrBodyTooLarge
		}
		p.state = stateBody
	default:
		p.state = stateDone
	}
	return consumed, nil
}

func (p *parser) parseBody(data []byte, req *Request) (int, error) {
	if req.IsChunked() {
		consumed, done, err := p.chunks.decode(data, &req.Body)
		if err != nil {
			return 0, err
		}
		if done {
			p.state = stateDone
		}
		return consumed, nil
	}

	remaining := int(req.ContentLength()) - len(req.Body)
	toRead := min(remaining, len(data))
	req.Body = append(req.Body, data[:toRead]...)
	if len(req.Body) == int(req.ContentLength()) {
		p.state = stateDone
	}
	return toRead, nil
}

func (p *parser) limited() bool {
	return p.opts.maxBodySize > 0
}
