package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"

	"poetry-export/internal/types"
)

// opTokens is the ordered list of constraint operators tried during
// parsing. Longer tokens must precede shorter ones to avoid false matches
// (e.g. ">=" before ">").
var opTokens = []types.ConstraintOp{
	types.ConstraintOpGte,
	types.ConstraintOpLte,
	types.ConstraintOpCompat,
	types.ConstraintOpNe,
	types.ConstraintOpEq2,
	types.ConstraintOpEq,
	types.ConstraintOpGt,
	types.ConstraintOpLt,
	types.ConstraintOpCaret,
	types.ConstraintOpTilde,
}

// VersionConstraint is a parsed Poetry version constraint: a disjunction
// of ranges, each range a conjunction of PEP 440 bounds. A constraint
// with no ranges allows every version.
type VersionConstraint struct {
	Raw    string
	Ranges [][]types.Bound
	specs  []pep440.Specifiers
}

// IsAny reports whether the constraint allows every version.
func (c VersionConstraint) IsAny() bool {
	return len(c.Ranges) == 0
}

// ParseVersionConstraint understands the constraint syntax found in
// pyproject.toml and poetry.lock: "*", "^1.2", "~1.2", "~=1.2",
// comparison operators, "1.2.*" wildcards, "," or whitespace for "and"
// and "||" for "or".
func ParseVersionConstraint(raw string) (VersionConstraint, error) {
	constraint := VersionConstraint{Raw: strings.TrimSpace(raw)}
	if constraint.Raw == "" || constraint.Raw == "*" {
		return constraint, nil
	}
	for _, alternative := range strings.Split(constraint.Raw, "||") {
		var bounds []types.Bound
		anyVersion := false
		for _, term := range splitConstraintTerms(alternative) {
			parsed, err := parseConstraintTerm(term)
			if err != nil {
				return VersionConstraint{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("invalid version constraint: %s", constraint.Raw)).
					WithCause(err)
			}
			if parsed == nil {
				anyVersion = true
				continue
			}
			bounds = append(bounds, parsed...)
		}
		if len(bounds) == 0 && anyVersion {
			return VersionConstraint{Raw: constraint.Raw}, nil
		}
		if len(bounds) == 0 {
			continue
		}
		spec, err := pep440.NewSpecifiers(boundsSpecifier(bounds))
		if err != nil {
			return VersionConstraint{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid version constraint: %s", constraint.Raw)).
				WithCause(err)
		}
		constraint.Ranges = append(constraint.Ranges, bounds)
		constraint.specs = append(constraint.specs, spec)
	}
	return constraint, nil
}

// Allows reports whether version satisfies the constraint. Versions that
// are not valid PEP 440 are never filtered out.
func (c VersionConstraint) Allows(version string) bool {
	if c.IsAny() {
		return true
	}
	parsed, err := pep440.Parse(version)
	if err != nil {
		return true
	}
	for _, spec := range c.specs {
		if spec.Check(parsed) {
			return true
		}
	}
	return false
}

// ToMarker renders the constraint as an environment marker over the
// interpreter version, the way a project python requirement is applied
// to every exported line.
func (c VersionConstraint) ToMarker() (Marker, error) {
	if c.IsAny() {
		return AnyMarker(), nil
	}
	var parts []string
	for _, bounds := range c.Ranges {
		var atoms []string
		for _, bound := range bounds {
			atoms = append(atoms, pythonBoundMarker(bound))
		}
		parts = append(parts, strings.Join(atoms, " and "))
	}
	return ParseMarker(strings.Join(parts, " or "))
}

// String renders the constraint as a PEP 440 specifier set.
func (c VersionConstraint) String() string {
	if c.IsAny() {
		return ""
	}
	var parts []string
	for _, bounds := range c.Ranges {
		parts = append(parts, boundsSpecifier(bounds))
	}
	return strings.Join(parts, " || ")
}

func pythonBoundMarker(bound types.Bound) string {
	version := bound.Version
	variable := "python_version"
	release, suffix := splitRelease(strings.TrimSuffix(version, ".*"))
	if strings.HasSuffix(version, ".*") {
		if len(release) > 2 {
			variable = "python_full_version"
		}
		return fmt.Sprintf(`%s %s "%s"`, variable, bound.Op, version)
	}
	if suffix == "" && len(release) == 3 && release[2] == 0 && bound.Op != types.ConstraintOpEq2 && bound.Op != types.ConstraintOpNe {
		release = release[:2]
	}
	if suffix != "" || len(release) > 2 {
		variable = "python_full_version"
	} else {
		version = joinRelease(release)
	}
	return fmt.Sprintf(`%s %s "%s"`, variable, bound.Op, version)
}

func boundsSpecifier(bounds []types.Bound) string {
	parts := make([]string, 0, len(bounds))
	for _, bound := range bounds {
		parts = append(parts, fmt.Sprintf("%s%s", bound.Op, bound.Version))
	}
	return strings.Join(parts, ",")
}

// splitConstraintTerms splits a conjunction on commas and whitespace while
// keeping operators attached to their versions (">= 1.0" is one term).
func splitConstraintTerms(raw string) []string {
	fields := strings.Fields(strings.ReplaceAll(raw, ",", " "))
	var terms []string
	for i := 0; i < len(fields); i++ {
		field := fields[i]
		if isOperatorOnly(field) && i+1 < len(fields) {
			field += fields[i+1]
			i++
		}
		terms = append(terms, field)
	}
	return terms
}

func isOperatorOnly(value string) bool {
	for _, op := range opTokens {
		if value == string(op) {
			return true
		}
	}
	return false
}

// parseConstraintTerm expands a single term into PEP 440 bounds. A nil
// result means the term allows any version.
func parseConstraintTerm(term string) ([]types.Bound, error) {
	term = strings.TrimSpace(term)
	if term == "" || term == "*" {
		return nil, nil
	}
	op := types.ConstraintOpNone
	for _, candidate := range opTokens {
		if strings.HasPrefix(term, string(candidate)) {
			op = candidate
			break
		}
	}
	version := strings.TrimSpace(strings.TrimPrefix(term, string(op)))
	if version == "" {
		return nil, fmt.Errorf("missing version in %q", term)
	}
	if version == "*" {
		return nil, nil
	}
	if strings.HasSuffix(version, ".*") {
		if _, err := pep440.Parse(strings.TrimSuffix(version, ".*")); err != nil {
			return nil, err
		}
	} else if _, err := pep440.Parse(version); err != nil {
		return nil, err
	}

	switch op {
	case types.ConstraintOpNone, types.ConstraintOpEq, types.ConstraintOpEq2:
		if strings.HasSuffix(version, ".*") {
			return wildcardBounds(strings.TrimSuffix(version, ".*"))
		}
		return []types.Bound{{Op: types.ConstraintOpEq2, Version: version}}, nil
	case types.ConstraintOpCaret:
		return caretBounds(version)
	case types.ConstraintOpTilde:
		return tildeBounds(version)
	case types.ConstraintOpCompat:
		release, _ := splitRelease(version)
		if len(release) < 2 {
			return nil, fmt.Errorf("~= requires at least two release segments in %q", term)
		}
		return []types.Bound{
			{Op: types.ConstraintOpGte, Version: version},
			{Op: types.ConstraintOpLt, Version: bumpRelease(release, len(release)-2)},
		}, nil
	default:
		return []types.Bound{{Op: op, Version: version}}, nil
	}
}

func caretBounds(version string) ([]types.Bound, error) {
	release, _ := splitRelease(version)
	if len(release) == 0 {
		return nil, fmt.Errorf("invalid caret version %q", version)
	}
	index := len(release) - 1
	for i, part := range release {
		if part != 0 || i == len(release)-1 {
			index = i
			break
		}
	}
	return []types.Bound{
		{Op: types.ConstraintOpGte, Version: version},
		{Op: types.ConstraintOpLt, Version: bumpRelease(release, index)},
	}, nil
}

func tildeBounds(version string) ([]types.Bound, error) {
	release, _ := splitRelease(version)
	if len(release) == 0 {
		return nil, fmt.Errorf("invalid tilde version %q", version)
	}
	index := 0
	if len(release) > 1 {
		index = 1
	}
	return []types.Bound{
		{Op: types.ConstraintOpGte, Version: version},
		{Op: types.ConstraintOpLt, Version: bumpRelease(release, index)},
	}, nil
}

func wildcardBounds(prefix string) ([]types.Bound, error) {
	release, _ := splitRelease(prefix)
	if len(release) == 0 {
		return nil, fmt.Errorf("invalid wildcard version %q", prefix)
	}
	return []types.Bound{
		{Op: types.ConstraintOpGte, Version: joinRelease(release)},
		{Op: types.ConstraintOpLt, Version: bumpRelease(release, len(release)-1)},
	}, nil
}

// splitRelease returns the numeric release segments of a version and the
// remainder (pre/post/dev/local suffix).
func splitRelease(version string) ([]int, string) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	var release []int
	rest := version
	for rest != "" {
		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if end == 0 {
			break
		}
		value, err := strconv.Atoi(rest[:end])
		if err != nil {
			break
		}
		release = append(release, value)
		rest = rest[end:]
		if strings.HasPrefix(rest, ".") && len(rest) > 1 && rest[1] >= '0' && rest[1] <= '9' {
			rest = rest[1:]
			continue
		}
		break
	}
	return release, rest
}

// bumpRelease increments segment index and zeroes every later segment,
// keeping the segment count.
func bumpRelease(release []int, index int) string {
	bumped := make([]int, len(release))
	copy(bumped, release)
	bumped[index]++
	for i := index + 1; i < len(bumped); i++ {
		bumped[i] = 0
	}
	if len(bumped) == 1 {
		bumped = append(bumped, 0)
	}
	return joinRelease(bumped)
}

func joinRelease(release []int) string {
	parts := make([]string, len(release))
	for i, part := range release {
		parts[i] = strconv.Itoa(part)
	}
	return strings.Join(parts, ".")
}
