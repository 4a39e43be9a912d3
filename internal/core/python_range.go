package core

import (
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"

	"poetry-export/internal/types"
)

// pythonRange is an interval of interpreter versions. A nil bound is
// unbounded.
type pythonRange struct {
	lower          *pep440.Version
	upper          *pep440.Version
	lowerInclusive bool
	upperInclusive bool
}

func (r *pythonRange) raiseLower(v pep440.Version, inclusive bool) {
	if r.lower == nil || tighterLower(v, inclusive, *r.lower, r.lowerInclusive) {
		r.lower, r.lowerInclusive = &v, inclusive
	}
}

func (r *pythonRange) capUpper(v pep440.Version, inclusive bool) {
	if r.upper == nil || tighterUpper(v, inclusive, *r.upper, r.upperInclusive) {
		r.upper, r.upperInclusive = &v, inclusive
	}
}

// apply narrows the range by one comparison. Operators that do not bound
// an interval (!=, ===, membership) leave it unchanged.
func (r *pythonRange) apply(op string, value string) {
	if prefix, ok := strings.CutSuffix(value, ".*"); ok {
		if op != "==" {
			return
		}
		bounds, err := wildcardBounds(prefix)
		if err != nil {
			return
		}
		for _, bound := range bounds {
			r.apply(string(bound.Op), bound.Version)
		}
		return
	}
	v, err := pep440.Parse(value)
	if err != nil {
		return
	}
	switch op {
	case ">=":
		r.raiseLower(v, true)
	case ">":
		r.raiseLower(v, false)
	case "<=":
		r.capUpper(v, true)
	case "<":
		r.capUpper(v, false)
	case "==":
		r.raiseLower(v, true)
		r.capUpper(v, true)
	}
}

// applyMinor handles python_version, which only carries major.minor:
// `python_version <= "3.9"` admits 3.9.18, so inclusive upper bounds and
// pins widen to the next minor release.
func (r *pythonRange) applyMinor(op string, value string) {
	release, suffix := splitRelease(value)
	if strings.HasSuffix(value, ".*") || suffix != "" || len(release) == 0 {
		r.apply(op, value)
		return
	}
	next := bumpRelease(release, len(release)-1)
	switch op {
	case "<=":
		r.apply("<", next)
	case ">":
		r.apply(">=", next)
	case "==":
		r.apply(">=", value)
		r.apply("<", next)
	default:
		r.apply(op, value)
	}
}

// within reports whether every version in r is also in outer.
func (r pythonRange) within(outer pythonRange) bool {
	if outer.lower != nil {
		if r.lower == nil {
			return false
		}
		cmp := r.lower.Compare(*outer.lower)
		if cmp < 0 || (cmp == 0 && r.lowerInclusive && !outer.lowerInclusive) {
			return false
		}
	}
	if outer.upper != nil {
		if r.upper == nil {
			return false
		}
		cmp := r.upper.Compare(*outer.upper)
		if cmp > 0 || (cmp == 0 && r.upperInclusive && !outer.upperInclusive) {
			return false
		}
	}
	return true
}

// markerPythonRanges projects each clause of m onto the interpreter
// version, one range per clause. Clauses without python comparisons are
// unbounded.
func markerPythonRanges(m Marker) []pythonRange {
	if m.IsEmpty() {
		return nil
	}
	if m.IsAny() {
		return []pythonRange{{}}
	}
	ranges := make([]pythonRange, 0, len(m.clauses))
	for _, clause := range m.clauses {
		var r pythonRange
		for _, atom := range clause {
			if atom.Reversed {
				continue
			}
			switch atom.Name {
			case "python_version":
				r.applyMinor(atom.Op, atom.Value)
			case "python_full_version":
				r.apply(atom.Op, atom.Value)
			}
		}
		ranges = append(ranges, r)
	}
	return ranges
}

func constraintPythonRanges(c VersionConstraint) []pythonRange {
	if c.IsAny() {
		return []pythonRange{{}}
	}
	ranges := make([]pythonRange, 0, len(c.Ranges))
	for _, bounds := range c.Ranges {
		var r pythonRange
		for _, bound := range bounds {
			op := string(bound.Op)
			if bound.Op == types.ConstraintOpEq {
				op = "=="
			}
			r.apply(op, bound.Version)
		}
		ranges = append(ranges, r)
	}
	return ranges
}

// supportsPython reports whether a locked package's python-versions admit
// every interpreter in ranges. Missing or unreadable python-versions
// admit everything.
func supportsPython(pkg types.Package, ranges []pythonRange) bool {
	raw := strings.TrimSpace(pkg.PythonVersions)
	if raw == "" || raw == "*" {
		return true
	}
	constraint, err := ParseVersionConstraint(raw)
	if err != nil {
		return true
	}
	supported := constraintPythonRanges(constraint)
	for _, r := range ranges {
		inside := false
		for _, outer := range supported {
			if r.within(outer) {
				inside = true
				break
			}
		}
		if !inside {
			return false
		}
	}
	return true
}
