// Package ver implements server version identities and the version
// specifications used to select them.
//
// Four specification grammars exist, from broadest to most specific:
//
//	Query     channel with optional narrowing: "stable", "nightly", "testing", "2", "2.1"
//	Filter    major line or exact release:      "2", "2.1", "2.0-beta.1"
//	Specific  exact version without build meta: "2.1", "3.0-dev.7012"
//	Build     exact version with build meta:    "3.0-dev.7012+a1b2c3d"
//
// Parse tries Filter, then Specific, then Build on a single input and returns
// the first grammar that accepts it.
package ver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// PreKind is the pre-release marker of a version.
type PreKind int

const (
	PreNone PreKind = iota
	PreDev
	PreAlpha
	PreBeta
	PreRC
)

var preKindNames = map[PreKind]string{
	PreDev:   "dev",
	PreAlpha: "alpha",
	PreBeta:  "beta",
	PreRC:    "rc",
}

func (k PreKind) String() string {
	return preKindNames[k]
}

func parsePreKind(s string) PreKind {
	for k, name := range preKindNames {
		if name == s {
			return k
		}
	}
	return PreNone
}

// Specific identifies a concrete server version ignoring build metadata. It is
// the identity used for install directories and "is this version in use" checks.
type Specific struct {
	Major uint64
	Minor uint64
	Pre   PreKind
	PreN  uint64
}

func (s Specific) String() string {
	base := fmt.Sprintf("%d.%d", s.Major, s.Minor)
	if s.Pre == PreNone {
		return base
	}
	return fmt.Sprintf("%s-%s.%d", base, s.Pre, s.PreN)
}

// Matches reports whether v has the same specific projection.
func (s Specific) Matches(v Version) bool {
	return v.Specific() == s
}

// Version is an installed server version. Two versions with equal Specific
// projections differ only by build metadata.
type Version struct {
	Major uint64
	Minor uint64
	Pre   PreKind
	PreN  uint64
	Meta  string
}

// Specific drops the build metadata.
func (v Version) Specific() Specific {
	return Specific{Major: v.Major, Minor: v.Minor, Pre: v.Pre, PreN: v.PreN}
}

// IsNightly reports whether v is a development build.
func (v Version) IsNightly() bool {
	return v.Pre == PreDev
}

func (v Version) String() string {
	if v.Meta == "" {
		return v.Specific().String()
	}
	return v.Specific().String() + "+" + v.Meta
}

// semver renders v in golang.org/x/mod/semver syntax for ordering. The
// pre-release kind is written as its numeric rank so dev < alpha < beta < rc
// holds; a release has no pre-release part and sorts above all of them.
func (v Version) semver() string {
	s := fmt.Sprintf("v%d.%d.0", v.Major, v.Minor)
	if v.Pre != PreNone {
		s += fmt.Sprintf("-%d.%d", int(v.Pre), v.PreN)
	}
	return s
}

// Compare orders versions by semantic precedence, breaking ties on build
// metadata so the order is total.
func Compare(a, b Version) int {
	if c := semver.Compare(a.semver(), b.semver()); c != 0 {
		return c
	}
	return strings.Compare(a.Meta, b.Meta)
}

const (
	numRe  = `(0|[1-9][0-9]*)`
	metaRe = `([0-9A-Za-z][0-9A-Za-z.-]*)`
)

var (
	filterRe   = regexp.MustCompile(`^` + numRe + `(?:\.` + numRe + `(?:-(alpha|beta|rc)\.` + numRe + `)?)?$`)
	specificRe = regexp.MustCompile(`^` + numRe + `\.` + numRe + `(?:-(dev|alpha|beta|rc)\.` + numRe + `)?$`)
	buildRe    = regexp.MustCompile(`^` + numRe + `\.` + numRe + `(?:-(dev|alpha|beta|rc)\.` + numRe + `)?\+` + metaRe + `$`)
	versionRe  = regexp.MustCompile(`^` + numRe + `\.` + numRe + `(?:-(dev|alpha|beta|rc)\.` + numRe + `)?(?:\+` + metaRe + `)?$`)
)

// ParseVersion parses a concrete version with optional build metadata.
func ParseVersion(s string) (Version, error) {
	m := versionRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, &ParseError{Input: s, Grammars: []string{"version"}}
	}
	sp, err := specificFromMatch(m[1:5])
	if err != nil {
		return Version{}, &ParseError{Input: s, Grammars: []string{"version"}, Err: err}
	}
	return Version{Major: sp.Major, Minor: sp.Minor, Pre: sp.Pre, PreN: sp.PreN, Meta: m[5]}, nil
}

// MustParseVersion is ParseVersion for literals known to be valid.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// specificFromMatch converts [major, minor, preKind, preN] submatches.
func specificFromMatch(m []string) (Specific, error) {
	var sp Specific
	var err error
	if sp.Major, err = strconv.ParseUint(m[0], 10, 64); err != nil {
		return sp, err
	}
	if m[1] != "" {
		if sp.Minor, err = strconv.ParseUint(m[1], 10, 64); err != nil {
			return sp, err
		}
	}
	if m[2] != "" {
		sp.Pre = parsePreKind(m[2])
		if sp.PreN, err = strconv.ParseUint(m[3], 10, 64); err != nil {
			return sp, err
		}
	}
	return sp, nil
}
