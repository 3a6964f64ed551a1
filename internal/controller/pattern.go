package controller

import (
	"regexp"
	"strconv"
)

// Kind tells how a Pattern matches.
type Kind uint8

const (
	KindAny Kind = iota
	KindExact
	KindRegexp
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindExact:
		return "exact"
	case KindRegexp:
		return "regexp"
	default:
		return "unknown"
	}
}

// Pattern matches one dimension of a request: host, port or path. The zero
// value matches anything.
type Pattern struct {
	kind    Kind
	literal string
	re      *regexp.Regexp
}

func Any() Pattern { return Pattern{} }

func Exact(s string) Pattern { return Pattern{kind: KindExact, literal: s} }

// Port is an exact pattern for a numeric port.
func Port(n int) Pattern { return Exact(strconv.Itoa(n)) }

// Regexp wraps re. Matching is unanchored, as with re.MatchString. A nil
// expression yields Any.
func Regexp(re *regexp.Regexp) Pattern {
	if re == nil {
		return Any()
	}
	return Pattern{kind: KindRegexp, re: re}
}

func Compile(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, err
	}
	return Regexp(re), nil
}

func MustCompile(expr string) Pattern {
	return Regexp(regexp.MustCompile(expr))
}

func (p Pattern) Kind() Kind { return p.kind }

func (p Pattern) IsAny() bool { return p.kind == KindAny }

func (p Pattern) IsRegexp() bool { return p.kind == KindRegexp }

// IsEmpty reports whether the pattern cannot identify a path: Any or an
// empty literal.
func (p Pattern) IsEmpty() bool {
	return p.kind == KindAny || (p.kind == KindExact && p.literal == "")
}

// String returns the literal or the expression source.
func (p Pattern) String() string {
	switch p.kind {
	case KindExact:
		return p.literal
	case KindRegexp:
		return p.re.String()
	default:
		return "*"
	}
}

// Equal compares by value. Two expressions are equal when their sources
// are; flags are part of the source in Go syntax, e.g. (?i).
func (p Pattern) Equal(o Pattern) bool {
	if p.kind != o.kind {
		return false
	}
	switch p.kind {
	case KindExact:
		return p.literal == o.literal
	case KindRegexp:
		return p.re.String() == o.re.String()
	default:
		return true
	}
}

func (p Pattern) Match(s string) bool {
	switch p.kind {
	case KindExact:
		return p.literal == s
	case KindRegexp:
		return p.re.MatchString(s)
	default:
		return true
	}
}

func (p Pattern) MatchPort(port int) bool {
	if p.kind == KindAny {
		return true
	}
	return p.Match(strconv.Itoa(port))
}
