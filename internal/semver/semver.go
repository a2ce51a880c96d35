package semver

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is the semantic version a component type publishes for a service.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3. The zero
// Version is "unversioned" and only satisfies the wildcard constraint.
type Version struct {
	v *mm.Version
}

// Constraint restricts which service versions satisfy a reference.
//
// Examples:
// - ">=1.2.0 <2.0.0"
// - "^1.0.0"
// - "~1.4"
//
// The zero Constraint accepts any version, including an unversioned service.
type Constraint struct {
	c   *mm.Constraints
	raw string
}

// ParseVersion parses raw. An empty string yields the zero Version.
func ParseVersion(raw string) (Version, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Version{}, nil
	}
	v, err := mm.NewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseConstraint parses raw. An empty string and "*" both yield the
// wildcard constraint.
func ParseConstraint(raw string) (Constraint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return Constraint{}, nil
	}
	c, err := mm.NewConstraint(raw)
	if err != nil {
		return Constraint{}, fmt.Errorf("semver: parse constraint %q: %w", raw, err)
	}
	return Constraint{c: c, raw: raw}, nil
}

func MustParseConstraint(raw string) Constraint {
	c, err := ParseConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func (v Version) IsZero() bool { return v.v == nil }

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// IsAny reports whether c is the wildcard constraint.
func (c Constraint) IsAny() bool { return c.c == nil }

func (c Constraint) String() string {
	if c.c == nil {
		return "*"
	}
	return c.raw
}

// Satisfies reports whether v satisfies c. The wildcard accepts every
// version; an unversioned service satisfies nothing else.
func Satisfies(v Version, c Constraint) bool {
	if c.c == nil {
		return true
	}
	if v.v == nil {
		return false
	}
	return c.c.Check(v.v)
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
//
// The zero Version sorts before every parsed version.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// MaxSatisfying returns the highest version in candidates that satisfies c.
//
// If multiple versions are equal, the first encountered wins.
func MaxSatisfying(c Constraint, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !Satisfies(candidate, c) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}
