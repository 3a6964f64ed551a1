package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/philippkemmeter/mvcfun/internal/controller"
	"github.com/philippkemmeter/mvcfun/internal/logging"
	"github.com/philippkemmeter/mvcfun/internal/response"
	"github.com/philippkemmeter/mvcfun/internal/router"
)

var ErrServerClosed = errors.New("server closed")

// Handler serves one request context.
type Handler interface {
	ServeMVC(ctx *controller.Context)
}

type HandlerFunc func(ctx *controller.Context)

func (f HandlerFunc) ServeMVC(ctx *controller.Context) { f(ctx) }

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Server accepts HTTP/1.x connections and hands every parsed request to
// the router through the middleware chain. Each connection is served on
// its own goroutine.
type Server struct {
	cfg        Config
	router     *router.Router
	middleware []Middleware
	handler    Handler
	buildOnce  sync.Once

	Logger   logging.Logger
	Managers *response.Set
	Metrics  *Metrics

	mu        sync.Mutex
	listener  net.Listener
	conns     map[net.Conn]*connState
	closed    atomic.Bool
	connsDone sync.WaitGroup
}

type connState struct {
	idle   atomic.Bool
	writer atomic.Pointer[response.Writer]
}

// discard silences the response in flight on the connection, if any.
func (st *connState) discard() {
	if st == nil {
		return
	}
	if w := st.writer.Load(); w != nil {
		w.Discard()
	}
}

type Option func(*Server)

func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.Logger = l }
}

// WithManagers sets the response managers. Protocol errors use the
// default manager of the set.
func WithManagers(set *response.Set) Option {
	return func(s *Server) { s.Managers = set }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.Metrics = m }
}

// New creates a server dispatching to r. Zero config fields take the
// values of DefaultConfig.
func New(cfg Config, r *router.Router, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg.withDefaults(),
		router: r,
		conns:  make(map[net.Conn]*connState),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Logger = logging.OrNop(s.Logger)
	if s.Managers == nil {
		s.Managers = response.NewSet(response.WithLogger(s.Logger))
	}
	if s.Metrics == nil {
		s.Metrics = NewMetrics(nil)
	}
	return s
}

// Use appends middleware. The first added runs outermost. Middleware must
// be added before the server starts.
func (s *Server) Use(mw Middleware) {
	s.middleware = append(s.middleware, mw)
}

func (s *Server) Config() Config { return s.cfg }

// Stats returns a snapshot of the runtime counters.
func (s *Server) Stats() MetricsSnapshot {
	return s.Metrics.Snapshot()
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown or Close. It always
// returns a non-nil error; after Shutdown or Close it is ErrServerClosed.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		_ = l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	s.buildOnce.Do(s.buildChain)
	s.Logger.Info("server listening", logging.String("addr", l.Addr().String()))

	var tempDelay time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if tempDelay > time.Second {
					tempDelay = time.Second
				}
				s.Logger.Warn("accept failed, retrying", logging.Err(err))
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0

		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		go s.serveConn(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.conns[conn] = &connState{}
	s.connsDone.Add(1)
	s.Metrics.connOpened()
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.Metrics.connClosed()
	s.connsDone.Done()
}

func (s *Server) state(conn net.Conn) *connState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[conn]
}

// Shutdown stops accepting, closes idle connections and waits for the
// active ones to finish or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.stopListening(); err != nil {
		s.Logger.Warn("closing listener", logging.Err(err))
	}

	done := make(chan struct{})
	go func() {
		s.connsDone.Wait()
		close(done)
	}()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		s.closeIdle()
		select {
		case <-done:
			s.Logger.Info("server stopped")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops accepting and closes every connection immediately. Responses
// still being written are discarded.
func (s *Server) Close() error {
	err := s.stopListening()
	s.mu.Lock()
	for conn, st := range s.conns {
		st.discard()
		_ = conn.Close()
	}
	s.mu.Unlock()
	return err
}

func (s *Server) stopListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Swap(true) || s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) closeIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, st := range s.conns {
		if st.idle.Load() {
			_ = conn.Close()
		}
	}
}

// buildChain wraps router dispatch in the middleware. The recover guard
// sits outermost so that panics in middleware answer 500 too.
func (s *Server) buildChain() {
	var h Handler = HandlerFunc(s.router.Dispatch)
	for i := len(s.middleware) - 1; i >= 0; i-- {
		h = s.middleware[i](h)
	}
	s.handler = Recovery(s.Logger)(h)
}
