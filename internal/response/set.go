package response

import "strings"

// Set bundles one manager per content type plus the default used when a
// caller has no preference, e.g. for 404s raised by the dispatcher.
type Set struct {
	Plain *Manager
	HTML  *Manager
	JSON  *Manager
	def   *Manager
}

// NewSet builds the three managers with shared options. Plain is the
// default.
func NewSet(opts ...Option) *Set {
	s := &Set{
		Plain: NewPlain(opts...),
		HTML:  NewHTML(opts...),
		JSON:  NewJSON(opts...),
	}
	s.def = s.Plain
	return s
}

func (s *Set) Default() *Manager {
	return s.def
}

// SetDefault picks the default by content type. Unknown types leave the
// default unchanged and report false.
func (s *Set) SetDefault(contentType string) bool {
	m, ok := s.lookup(contentType)
	if ok {
		s.def = m
	}
	return ok
}

// ForContentType returns the manager serving contentType, ignoring any
// parameters such as charset, or the default.
func (s *Set) ForContentType(contentType string) *Manager {
	if m, ok := s.lookup(contentType); ok {
		return m
	}
	return s.def
}

func (s *Set) lookup(contentType string) (*Manager, bool) {
	mt := contentType
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	switch strings.ToLower(strings.TrimSpace(mt)) {
	case ContentTypePlain, "plain":
		return s.Plain, true
	case ContentTypeHTML, "html":
		return s.HTML, true
	case ContentTypeJSON, "json":
		return s.JSON, true
	default:
		return nil, false
	}
}
