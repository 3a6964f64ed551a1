package server

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/philippkemmeter/mvcfun/internal/controller"
	"github.com/philippkemmeter/mvcfun/internal/logging"
	"github.com/philippkemmeter/mvcfun/internal/request"
	"github.com/philippkemmeter/mvcfun/internal/response"
)

const (
	lingerTimeout  = 500 * time.Millisecond
	maxLingerBytes = 256 << 10
)

// serveConn handles all requests on a single connection.
func (s *Server) serveConn(conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()

	st := s.state(conn)
	reader := request.NewReader(conn, s.cfg.readerOptions()...)

	for first := true; ; first = false {
		st.idle.Store(reader.Buffered() == 0)
		s.armReadDeadline(conn, first)

		req, err := reader.Next()
		st.idle.Store(false)
		if err != nil {
			if errors.Is(err, request.ErrBodyTooLarge) {
				st.discard()
			}
			s.handleReadError(conn, req, err)
			return
		}

		_ = conn.SetReadDeadline(time.Time{})
		if s.cfg.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}

		w := response.NewWriter(conn)
		st.writer.Store(w)
		s.handleRequest(conn, req, w)

		if shouldCloseConnection(req, w) || s.closed.Load() {
			return
		}
	}
}

func (s *Server) armReadDeadline(conn net.Conn, first bool) {
	timeout := s.cfg.ReadTimeout
	if !first && s.cfg.IdleTimeout > 0 {
		timeout = s.cfg.IdleTimeout
	}
	if timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
	}
}

// handleRequest runs the middleware chain for one parsed request. A
// response the chain left unfinished is completed with an empty body so
// that the client is not left waiting.
func (s *Server) handleRequest(conn net.Conn, req *request.Request, w *response.Writer) {
	if req.Method == "HEAD" {
		w.OmitBody()
	}
	switch {
	case wantsClose(req):
		w.Header().Set("Connection", "close")
	case req.IsHTTP10():
		w.Header().Set("Connection", "keep-alive")
	}

	ctx := &controller.Context{
		Request:    request.FromRequest(req),
		Response:   w,
		Managers:   s.Managers,
		Logger:     s.Logger,
		RequestID:  uuid.NewString(),
		RemoteAddr: conn.RemoteAddr().String(),
	}
	s.handler.ServeMVC(ctx)

	if !w.Finished() && !w.HadError() && !w.Discarded() {
		s.Logger.Warn("response left unfinished",
			logging.String("request_id", ctx.RequestID),
			logging.String("path", ctx.Request.Path()),
		)
		if err := w.End(nil); err != nil {
			s.Logger.Error("write failed", logging.String("request_id", ctx.RequestID), logging.Err(err))
		}
	}
}

// handleReadError decides what a failed read is answered with. Clean
// closes and timeouts end the connection quietly. An oversized body drops
// the connection without any response.
func (s *Server) handleReadError(conn net.Conn, req *request.Request, err error) {
	remote := conn.RemoteAddr().String()

	var ne net.Error
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), s.closed.Load():
		return
	case errors.As(err, &ne) && ne.Timeout():
		s.Logger.Debug("read timeout", logging.String("remote", remote))
		return
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.Logger.Debug("connection closed mid-request", logging.String("remote", remote))
		return
	case errors.Is(err, request.ErrBodyTooLarge):
		s.Metrics.bodyRejected()
		s.Logger.Warn("request body too large, dropping connection",
			logging.String("remote", remote),
			logging.Err(err),
		)
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetLinger(0)
		}
		return
	case errors.Is(err, request.ErrMethodNotAllowed) && req != nil:
		w := s.errorWriter(conn)
		if req.Method == "HEAD" {
			w.OmitBody()
		}
		s.writeProtocolError(w, response.StatusMethodNotAllowed, func(m *response.Manager) error {
			return m.WriteMethodNotAllowed(w, req.Method, "")
		})
		lingerClose(conn)
		return
	}

	code := statusForReadError(err)
	s.Logger.Debug("bad request",
		logging.String("remote", remote),
		logging.Int("status", int(code)),
		logging.Err(err),
	)
	w := s.errorWriter(conn)
	s.writeProtocolError(w, code, func(m *response.Manager) error {
		if code == response.StatusBadRequest {
			return m.WriteBadRequest(w, "")
		}
		return m.WriteError(w, code, "", "")
	})
	lingerClose(conn)
}

// lingerClose half-closes conn and discards what the client still sends,
// so that an error response is not lost to a connection reset.
func lingerClose(conn net.Conn) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tcp.CloseWrite()
	_ = tcp.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.Copy(io.Discard, io.LimitReader(tcp, maxLingerBytes))
}

func (s *Server) errorWriter(conn net.Conn) *response.Writer {
	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	w := response.NewWriter(conn)
	w.Header().Set("Connection", "close")
	return w
}

func (s *Server) writeProtocolError(w *response.Writer, code response.StatusCode, write func(*response.Manager) error) {
	start := time.Now()
	if err := write(s.Managers.Default()); err != nil {
		s.Logger.Error("write failed", logging.Err(err))
	}
	s.Metrics.RecordRequest(int(code), time.Since(start))
}

func statusForReadError(err error) response.StatusCode {
	switch {
	case errors.Is(err, request.ErrURITooLong), errors.Is(err, request.ErrRequestLineTooLarge):
		return response.StatusRequestURITooLong
	case errors.Is(err, request.ErrHeaderTooLarge), errors.Is(err, request.ErrTooManyHeaders):
		return response.StatusRequestHeaderFieldsTooLarge
	case errors.Is(err, request.ErrUnsupportedVersion):
		return response.StatusHTTPVersionNotSupported
	default:
		return response.StatusBadRequest
	}
}
