package response

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/philippkemmeter/mvcfun/internal/headers"
	"github.com/philippkemmeter/mvcfun/internal/logging"
)

const (
	ContentTypePlain = "text/plain"
	ContentTypeHTML  = "text/html"
	ContentTypeJSON  = "application/json"
)

var (
	ErrNilTransport    = errors.New("response transport is nil")
	ErrInvalidLanguage = errors.New("language must be empty or exactly 2 characters")
	ErrInvalidRedirect = errors.New("redirect status must be within 300..308")
	ErrInvalidStatus   = errors.New("error status must be 4xx or 5xx")
)

// Manager writes complete responses of one content type. Every operation
// validates its transport and language before a byte is written.
type Manager struct {
	contentType string
	charset     string
	codec       codec
	messages    Messages
	logger      logging.Logger
}

type Option func(*Manager)

// WithCharset overrides the charset announced in Content-Type.
func WithCharset(charset string) Option {
	return func(m *Manager) {
		if charset != "" {
			m.charset = charset
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logging.OrNop(l)
	}
}

// WithMessages overlays custom error texts on the defaults.
func WithMessages(msgs Messages) Option {
	return func(m *Manager) {
		m.messages = m.messages.merge(msgs)
	}
}

func newManager(contentType string, c codec, opts []Option) *Manager {
	m := &Manager{
		contentType: contentType,
		charset:     DefaultCharset,
		codec:       c,
		messages:    DefaultMessages(),
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func NewPlain(opts ...Option) *Manager {
	return newManager(ContentTypePlain, plainCodec{}, opts)
}

func NewHTML(opts ...Option) *Manager {
	return newManager(ContentTypeHTML, htmlCodec{}, opts)
}

// NewJSON returns a manager that encodes payloads with encoding/json and
// wraps error messages as {"error": message}.
func NewJSON(opts ...Option) *Manager {
	return newManager(ContentTypeJSON, jsonCodec{}, opts)
}

func (m *Manager) ContentType() string { return m.contentType }

func (m *Manager) Charset() string { return m.charset }

func (m *Manager) Messages() Messages { return m.messages }

// Write answers 200 with payload encoded for the manager's content type.
// A failure while encoding or writing is logged and turned into a 500.
func (m *Manager) Write(t Transport, payload any, lang string) error {
	if err := m.check(t, lang); err != nil {
		return err
	}

	body, err := m.encode(payload)
	if err == nil {
		err = m.send(t, StatusOK, body, lang, nil)
	}
	if err == nil {
		return nil
	}

	m.logger.Error("writing response failed",
		logging.String("content_type", m.contentType),
		logging.Err(err),
	)
	if ierr := m.WriteInternalServerError(t, err, lang); ierr != nil {
		return errors.Join(err, ierr)
	}
	return nil
}

func (m *Manager) WriteBadRequest(t Transport, lang string) error {
	return m.writeError(t, StatusBadRequest, m.messages.BadRequest, lang, nil)
}

// WriteUnauthorized answers 401 with a WWW-Authenticate challenge. The
// scheme defaults to Basic.
func (m *Manager) WriteUnauthorized(t Transport, realm, scheme, lang string) error {
	if scheme == "" {
		scheme = "Basic"
	}
	extra := headers.NewHeaders()
	extra.Set("WWW-Authenticate", fmt.Sprintf("%s realm=%q", scheme, realm))
	return m.writeError(t, StatusUnauthorized, m.messages.Unauthorized, lang, extra)
}

func (m *Manager) WriteForbidden(t Transport, lang string) error {
	return m.writeError(t, StatusForbidden, m.messages.Forbidden, lang, nil)
}

// WriteNotFound answers 404. A non-empty filename is named in the body.
func (m *Manager) WriteNotFound(t Transport, filename, lang string) error {
	return m.writeError(t, StatusNotFound, m.messages.notFound(filename), lang, nil)
}

// WriteMethodNotAllowed answers 405. A non-empty method is named in the body.
func (m *Manager) WriteMethodNotAllowed(t Transport, method, lang string) error {
	return m.writeError(t, StatusMethodNotAllowed, m.messages.methodNotAllowed(method), lang, nil)
}

// WriteInternalServerError answers 500. cause is logged, never sent.
func (m *Manager) WriteInternalServerError(t Transport, cause error, lang string) error {
	if cause != nil {
		m.logger.Error("internal server error", logging.Err(cause))
	}
	return m.writeError(t, StatusInternalServerError, m.messages.InternalServerError, lang, nil)
}

// WriteRedirect answers code with an empty body and a Location header.
func (m *Manager) WriteRedirect(t Transport, code StatusCode, location string) error {
	if t == nil {
		return ErrNilTransport
	}
	if code < StatusMultipleChoices || code > StatusPermanentRedirect {
		return fmt.Errorf("%w: %d", ErrInvalidRedirect, code)
	}

	h := headers.NewHeaders()
	h.Set("Location", location)
	if err := t.WriteHead(code, h); err != nil {
		return err
	}
	return t.End(nil)
}

// WriteError answers any 4xx or 5xx status with message wrapped for the
// manager's content type.
func (m *Manager) WriteError(t Transport, code StatusCode, message, lang string) error {
	if !code.IsError() {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, code)
	}
	if message == "" {
		message = StatusText(code)
	}
	return m.writeError(t, code, message, lang, nil)
}

func (m *Manager) writeError(t Transport, code StatusCode, message, lang string, extra *headers.Headers) error {
	if err := m.check(t, lang); err != nil {
		return err
	}

	body, err := m.codec.wrapError(message)
	if err != nil {
		return fmt.Errorf("wrap error message: %w", err)
	}
	return m.send(t, code, body, lang, extra)
}

func (m *Manager) send(t Transport, code StatusCode, body []byte, lang string, extra *headers.Headers) error {
	h := m.header(lang)
	h.Merge(extra)
	if err := t.WriteHead(code, h); err != nil {
		return err
	}
	return t.End(body)
}

func (m *Manager) header(lang string) *headers.Headers {
	h := headers.NewHeaders()
	h.Set("Content-Type", m.contentType+"; charset="+m.charset)
	if lang != "" {
		h.Set("Content-Language", lang)
	}
	return h
}

// encode runs the codec, converting a panic inside a payload's String or
// MarshalJSON into an error.
func (m *Manager) encode(payload any) (body []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encode payload: panic: %v", r)
		}
	}()
	body, err = m.codec.encode(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return body, nil
}

func (m *Manager) check(t Transport, lang string) error {
	if t == nil {
		return ErrNilTransport
	}
	return ValidateLanguage(lang)
}

// ValidateLanguage accepts "" or a two character language code.
func ValidateLanguage(lang string) error {
	if lang != "" && utf8.RuneCountInString(lang) != 2 {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}
	return nil
}
