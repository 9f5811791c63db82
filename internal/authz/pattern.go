package authz

import (
	"fmt"
	"path"
	"strings"
)

// Pattern is an ant-style path pattern. Matching ignores case, the same
// way the HTTP router does by default, so a rule cannot be sidestepped by
// changing the case of a path.
//
//	literal  matches the same segment
//	*        matches exactly one segment
//	{name}   matches exactly one segment
//	**       matches zero or more segments
//	a*.html  glob within one segment (path.Match syntax)
type Pattern struct {
	raw      string
	segments []string
}

// ParsePattern validates and compiles raw.
func ParsePattern(raw string) (Pattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return Pattern{}, fmt.Errorf("pattern %q must start with /", raw)
	}
	segments := splitPath(strings.ToLower(raw))
	for _, seg := range segments {
		if seg == "**" || seg == "*" || isVariable(seg) {
			continue
		}
		if strings.Contains(seg, "**") {
			return Pattern{}, fmt.Errorf("pattern %q: ** must be a whole segment", raw)
		}
		if _, err := path.Match(seg, ""); err != nil {
			return Pattern{}, fmt.Errorf("pattern %q: %w", raw, err)
		}
	}
	return Pattern{raw: raw, segments: segments}, nil
}

// MustParsePattern is ParsePattern for statically known patterns.
func MustParsePattern(raw string) Pattern {
	p, err := ParsePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string { return p.raw }

// Match reports whether the request path matches the pattern.
func (p Pattern) Match(requestPath string) bool {
	return matchSegments(p.segments, splitPath(strings.ToLower(requestPath)))
}

// Subsumes reports whether every path matched by other is also matched by p.
// The check is conservative: false means "not provably covered".
func (p Pattern) Subsumes(other Pattern) bool {
	return subsumeSegments(p.segments, other.segments)
}

func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isVariable(seg string) bool {
	return len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}'
}

func isSingleWildcard(seg string) bool {
	return seg == "*" || isVariable(seg)
}

func isGlob(seg string) bool {
	return strings.ContainsAny(seg, "*?[")
}

func matchSegment(pattern, seg string) bool {
	if isSingleWildcard(pattern) {
		return true
	}
	if isGlob(pattern) {
		ok, _ := path.Match(pattern, seg)
		return ok
	}
	return pattern == seg
}

func matchSegments(pattern, segs []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			for i := 0; i <= len(segs); i++ {
				if matchSegments(pattern[1:], segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 || !matchSegment(pattern[0], segs[0]) {
			return false
		}
		pattern, segs = pattern[1:], segs[1:]
	}
	return len(segs) == 0
}

func subsumeSegments(a, b []string) bool {
	if len(a) == 0 {
		return len(b) == 0
	}
	if a[0] == "**" {
		for i := 0; i <= len(b); i++ {
			if subsumeSegments(a[1:], b[i:]) {
				return true
			}
		}
		return false
	}
	if len(b) == 0 || b[0] == "**" {
		return false
	}
	switch {
	case isSingleWildcard(a[0]):
	case isSingleWildcard(b[0]) || isGlob(b[0]):
		// only a whole-segment wildcard covers another wildcard
		if a[0] != b[0] {
			return false
		}
	case !matchSegment(a[0], b[0]):
		return false
	}
	return subsumeSegments(a[1:], b[1:])
}
