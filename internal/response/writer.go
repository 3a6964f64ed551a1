package response

import (
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/philippkemmeter/mvcfun/internal/headers"
)

var (
	ErrAlreadyWritten = errors.New("response already written")
	ErrHeadersPending = errors.New("must write status line before headers")
	ErrBodyPending    = errors.New("must write headers before body")
	ErrInvalidHeader  = errors.New("invalid header field")
)

// Transport is the raw response a Manager writes to. WriteHead records the
// status and headers, End flushes everything together with the body.
type Transport interface {
	WriteHead(code StatusCode, h *headers.Headers) error
	End(body []byte) error
	// Written reports whether bytes have reached the connection.
	Written() bool
	// Header holds headers merged into the next WriteHead.
	Header() *headers.Headers
	StatusCode() StatusCode
}

type writerState int

const (
	stateStart writerState = iota
	stateHeadPending
	stateStatusWritten
	stateHeadersWritten
	stateBodyWritten
)

// Writer writes HTTP/1.1 responses to an io.Writer. It implements
// Transport; the low level WriteStatusLine/WriteHeaders/WriteBody steps
// remain available for callers that frame the response themselves.
type Writer struct {
	w             io.Writer
	state         writerState
	statusCode    StatusCode
	header        *headers.Headers
	pending       *headers.Headers
	contentLength int64 // -1 means unknown
	omitBody      bool
	hadError      bool
	discarded     atomic.Bool
	bytesWritten  int64
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:             w,
		state:         stateStart,
		header:        headers.NewHeaders(),
		contentLength: -1,
	}
}

// OmitBody keeps Content-Length but drops the payload, as required for
// responses to HEAD requests.
func (w *Writer) OmitBody() {
	w.omitBody = true
}

// Discard turns every later write into a silent no-op. It is used once the
// underlying connection has been torn down and may be called from another
// goroutine than the one writing.
func (w *Writer) Discard() {
	w.discarded.Store(true)
}

func (w *Writer) Discarded() bool {
	return w.discarded.Load()
}

func (w *Writer) Header() *headers.Headers {
	return w.header
}

// WriteHead records status and headers. Nothing reaches the connection
// until End, so a second WriteHead before End replaces the first.
func (w *Writer) WriteHead(code StatusCode, h *headers.Headers) error {
	if w.discarded.Load() {
		return nil
	}
	if w.state > stateHeadPending {
		return ErrAlreadyWritten
	}

	merged := w.header.Clone()
	merged.Merge(h)
	if err := validateHeaders(merged); err != nil {
		return err
	}

	w.statusCode = code
	w.pending = merged
	w.state = stateHeadPending
	return nil
}

// End flushes the recorded head with a Content-Length matching body. An End
// without WriteHead answers 200 OK.
func (w *Writer) End(body []byte) error {
	if w.discarded.Load() {
		return nil
	}
	if w.state == stateStart {
		if err := w.WriteHead(StatusOK, nil); err != nil {
			return err
		}
	}
	if w.state != stateHeadPending {
		return ErrAlreadyWritten
	}

	h := w.pending
	h.Set("Content-Length", strconv.Itoa(len(body)))

	if err := w.WriteStatusLine(w.statusCode); err != nil {
		return err
	}
	if err := w.WriteHeaders(h); err != nil {
		return err
	}
	if w.omitBody {
		w.state = stateBodyWritten
		return nil
	}
	return w.WriteBody(body)
}

func (w *Writer) WriteStatusLine(code StatusCode) error {
	if w.state != stateStart && w.state != stateHeadPending {
		return ErrAlreadyWritten
	}

	reason := StatusText(code)
	if reason == "" {
		reason = "Unknown"
	}

	if err := w.write([]byte(fmt.Sprintf("HTTP/1.1 %d %s\r\n", code, reason))); err != nil {
		return err
	}

	w.statusCode = code
	w.state = stateStatusWritten
	return nil
}

// WriteHeaders writes the header block in sorted key order followed by the
// blank line.
func (w *Writer) WriteHeaders(h *headers.Headers) error {
	if w.state != stateStatusWritten {
		return ErrHeadersPending
	}
	if err := validateHeaders(h); err != nil {
		return err
	}

	if cl, ok := h.Get("content-length"); ok {
		if length, err := strconv.ParseInt(cl, 10, 64); err == nil {
			w.contentLength = length
		}
	}

	for _, key := range h.Keys() {
		name := textproto.CanonicalMIMEHeaderKey(key)
		for _, value := range h.GetAll(key) {
			if err := w.write([]byte(name + ": " + value + "\r\n")); err != nil {
				return err
			}
		}
	}

	if err := w.write([]byte("\r\n")); err != nil {
		return err
	}

	w.state = stateHeadersWritten
	return nil
}

func (w *Writer) WriteBody(data []byte) error {
	if w.state != stateHeadersWritten {
		return ErrBodyPending
	}

	if len(data) > 0 {
		if err := w.write(data); err != nil {
			return err
		}
	}

	w.state = stateBodyWritten
	return nil
}

func (w *Writer) write(p []byte) error {
	if w.discarded.Load() {
		return nil
	}
	n, err := w.w.Write(p)
	w.bytesWritten += int64(n)
	if err != nil {
		w.hadError = true
		return err
	}
	return nil
}

// Written reports whether any byte has been sent.
func (w *Writer) Written() bool {
	return w.state >= stateStatusWritten
}

// Finished reports whether a complete response went out.
func (w *Writer) Finished() bool {
	return w.state == stateBodyWritten
}

func (w *Writer) HadError() bool {
	return w.hadError
}

func (w *Writer) HasContentLength() bool {
	return w.contentLength >= 0
}

func (w *Writer) StatusCode() StatusCode {
	return w.statusCode
}

func (w *Writer) BytesWritten() int64 {
	return w.bytesWritten
}

// validateHeaders rejects fields that would end the header line early.
func validateHeaders(h *headers.Headers) error {
	for _, key := range h.Keys() {
		if key == "" || strings.ContainsAny(key, "\r\n\x00: ") {
			return fmt.Errorf("%w: name %q", ErrInvalidHeader, key)
		}
		for _, value := range h.GetAll(key) {
			if strings.ContainsAny(value, "\r\n\x00") {
				return fmt.Errorf("%w: %s value %q", ErrInvalidHeader, key, value)
			}
		}
	}
	return nil
}
