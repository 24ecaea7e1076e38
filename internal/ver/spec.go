package ver

import (
	"fmt"
	"strconv"
	"strings"
)

// Spec is a predicate over installed versions.
type Spec interface {
	Matches(v Version) bool
	String() string
}

// ParseError is returned when text matches none of the attempted grammars.
type ParseError struct {
	Input    string
	Grammars []string
	Err      error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("cannot parse version %q", e.Input)
	if len(e.Grammars) > 0 {
		msg += " as " + strings.Join(e.Grammars, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Filter selects a major line ("2") or an exact release ("2.1", "2.0-rc.1").
// A major-line filter never matches nightly builds.
type Filter struct {
	Major uint64
	// Minor is nil for a whole major line.
	Minor *uint64
	Pre   PreKind
	PreN  uint64
}

// Matches implements Spec.
func (f Filter) Matches(v Version) bool {
	if v.Major != f.Major {
		return false
	}
	if f.Minor == nil {
		return !v.IsNightly()
	}
	if v.Minor != *f.Minor || v.Pre != f.Pre {
		return false
	}
	return f.Pre == PreNone || v.PreN == f.PreN
}

func (f Filter) String() string {
	if f.Minor == nil {
		return strconv.FormatUint(f.Major, 10)
	}
	return Specific{Major: f.Major, Minor: *f.Minor, Pre: f.Pre, PreN: f.PreN}.String()
}

// ParseFilter parses the Filter grammar only.
func ParseFilter(s string) (Filter, error) {
	m := filterRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Filter{}, &ParseError{Input: s, Grammars: []string{"filter"}}
	}
	sp, err := specificFromMatch(m[1:5])
	if err != nil {
		return Filter{}, &ParseError{Input: s, Grammars: []string{"filter"}, Err: err}
	}
	f := Filter{Major: sp.Major, Pre: sp.Pre, PreN: sp.PreN}
	if m[2] != "" {
		minor := sp.Minor
		f.Minor = &minor
	}
	return f, nil
}

// ParseSpecific parses the Specific grammar only.
func ParseSpecific(s string) (Specific, error) {
	m := specificRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Specific{}, &ParseError{Input: s, Grammars: []string{"specific"}}
	}
	sp, err := specificFromMatch(m[1:5])
	if err != nil {
		return Specific{}, &ParseError{Input: s, Grammars: []string{"specific"}, Err: err}
	}
	return sp, nil
}

// Build matches one exact version including build metadata.
type Build struct {
	Version Version
}

// Matches implements Spec.
func (b Build) Matches(v Version) bool {
	return v == b.Version
}

func (b Build) String() string {
	return b.Version.String()
}

// ParseBuild parses the Build grammar only. Build metadata is mandatory.
func ParseBuild(s string) (Build, error) {
	if !buildRe.MatchString(strings.TrimSpace(s)) {
		return Build{}, &ParseError{Input: s, Grammars: []string{"build"}}
	}
	v, err := ParseVersion(s)
	if err != nil {
		return Build{}, &ParseError{Input: s, Grammars: []string{"build"}, Err: err}
	}
	return Build{Version: v}, nil
}

type grammar struct {
	name  string
	parse func(string) (Spec, error)
}

// grammars is ordered by precedence: the broadest grammar that accepts the
// input wins.
var grammars = []grammar{
	{"filter", func(s string) (Spec, error) { return ParseFilter(s) }},
	{"specific", func(s string) (Spec, error) { return ParseSpecific(s) }},
	{"build", func(s string) (Spec, error) { return ParseBuild(s) }},
}

// Parse returns the Filter, Specific or Build interpretation of s, in that
// order of precedence.
func Parse(s string) (Spec, error) {
	names := make([]string, 0, len(grammars))
	for _, g := range grammars {
		if spec, err := g.parse(s); err == nil {
			return spec, nil
		}
		names = append(names, g.name)
	}
	return nil, &ParseError{Input: s, Grammars: names}
}
