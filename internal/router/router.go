package router

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/philippkemmeter/mvcfun/internal/controller"
	"github.com/philippkemmeter/mvcfun/internal/logging"
)

const maxPort = 65535

var (
	ErrNilController = errors.New("controller is nil")
	ErrEmptyPattern  = errors.New("controller path pattern is empty")
	ErrInvalidPort   = errors.New("port out of range")
	ErrNotFound      = errors.New("no controller matches")
)

// Precedence groups, scanned in this order. A literal dimension is Any or
// Exact; a pattern dimension is a regular expression. groupAllPattern holds
// a path pattern combined with a host or port pattern.
const (
	groupLiteral = iota
	groupPathPattern
	groupHostPattern
	groupPortPattern
	groupHostPortPattern
	groupAllPattern
	numGroups
)

type entry struct {
	c     controller.Controller
	group int
}

func groupOf(c controller.Controller) int {
	host, port, path := c.Host().IsRegexp(), c.Port().IsRegexp(), c.Path().IsRegexp()
	switch {
	case path && (host || port):
		return groupAllPattern
	case path:
		return groupPathPattern
	case host && port:
		return groupHostPortPattern
	case host:
		return groupHostPattern
	case port:
		return groupPortPattern
	default:
		return groupLiteral
	}
}

type cache map[string]map[int]map[string]controller.Controller

// Router resolves a host, port and path onto the registered controller
// with the highest precedence. Within a precedence group the controller
// registered last wins. Successful lookups are memoized without bound
// until the next Register or Unregister.
type Router struct {
	mu         sync.RWMutex
	entries    []entry
	generation uint64
	cache      cache

	// scans counts full registry scans, i.e. cache misses.
	scans atomic.Int64

	logger  logging.Logger
	metrics *Metrics
}

type Option func(*Router)

func WithLogger(l logging.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics reports lookups and the registry size to m.
func WithMetrics(m *Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

func New(opts ...Option) *Router {
	r := &Router{cache: make(cache)}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	return r
}

// Register appends c to the registry. Registering the same patterns twice
// keeps both controllers; the later one shadows the earlier.
func (r *Router) Register(c controller.Controller) error {
	if c == nil {
		return ErrNilController
	}
	if c.Path().IsEmpty() {
		return fmt.Errorf("%w: %s", ErrEmptyPattern, controller.Describe(c))
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry{c: c, group: groupOf(c)})
	r.invalidate()
	n := len(r.entries)
	r.mu.Unlock()

	r.metrics.setControllers(n)
	r.logger.Debug("controller registered", logging.String("controller", controller.Describe(c)))
	return nil
}

// Unregister removes the first controller whose path pattern equals c's.
func (r *Router) Unregister(c controller.Controller) bool {
	if c == nil {
		return false
	}
	return r.UnregisterPattern(c.Path())
}

// UnregisterPattern removes the first controller whose path pattern equals
// p. Expressions compare by source.
func (r *Router) UnregisterPattern(p controller.Pattern) bool {
	r.mu.Lock()
	removed := false
	for i, e := range r.entries {
		if e.c.Path().Equal(p) {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			r.invalidate()
			removed = true
			break
		}
	}
	n := len(r.entries)
	r.mu.Unlock()

	if removed {
		r.metrics.setControllers(n)
		r.logger.Debug("controller unregistered", logging.String("pattern", p.String()))
	}
	return removed
}

// invalidate must be called with the write lock held.
func (r *Router) invalidate() {
	r.generation++
	r.cache = make(cache)
}

// Resolve finds the controller for host, port and path. It returns
// ErrInvalidPort for a port outside 0..65535 and ErrNotFound when nothing
// matches.
func (r *Router) Resolve(host string, port int, path string) (controller.Controller, error) {
	if port < 0 || port > maxPort {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}

	r.mu.RLock()
	if c, ok := r.cache[host][port][path]; ok {
		r.mu.RUnlock()
		r.metrics.observe(resultHit)
		return c, nil
	}
	gen := r.generation
	c := r.scan(host, port, path)
	r.mu.RUnlock()

	if c == nil {
		r.metrics.observe(resultNotFound)
		return nil, fmt.Errorf("%w: %s:%d%s", ErrNotFound, host, port, path)
	}

	r.mu.Lock()
	// A registry change in between would make the memo stale.
	if r.generation == gen {
		r.memo(host, port, path, c)
	}
	r.mu.Unlock()

	r.metrics.observe(resultMiss)
	return c, nil
}

// scan must be called with the read lock held.
func (r *Router) scan(host string, port int, path string) controller.Controller {
	r.scans.Add(1)
	for g := 0; g < numGroups; g++ {
		for i := len(r.entries) - 1; i >= 0; i-- {
			e := r.entries[i]
			if e.group != g {
				continue
			}
			// Host and port go first, the path expression is the costly one.
			if e.c.Host().Match(host) && e.c.Port().MatchPort(port) && e.c.Path().Match(path) {
				return e.c
			}
		}
	}
	return nil
}

func (r *Router) memo(host string, port int, path string, c controller.Controller) {
	ports, ok := r.cache[host]
	if !ok {
		ports = make(map[int]map[string]controller.Controller)
		r.cache[host] = ports
	}
	paths, ok := ports[port]
	if !ok {
		paths = make(map[string]controller.Controller)
		ports[port] = paths
	}
	paths[path] = c
}

func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Controllers returns the registered controllers in registration order.
func (r *Router) Controllers() []controller.Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]controller.Controller, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.c
	}
	return out
}
