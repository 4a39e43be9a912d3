package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
)

// markerAtom is a single comparison such as `sys_platform == "linux"`.
// Reversed is only used for `"x" in var` style membership tests.
type markerAtom struct {
	Name     string
	Op       string
	Value    string
	Reversed bool
}

func (a markerAtom) key() string {
	if a.Reversed {
		return fmt.Sprintf("%q %s %s", a.Value, a.Op, a.Name)
	}
	return fmt.Sprintf("%s %s %q", a.Name, a.Op, a.Value)
}

func (a markerAtom) String() string {
	quoted := `"` + a.Value + `"`
	if strings.Contains(a.Value, `"`) {
		quoted = "'" + a.Value + "'"
	}
	if a.Reversed {
		return fmt.Sprintf("%s %s %s", quoted, a.Op, a.Name)
	}
	return fmt.Sprintf("%s %s %s", a.Name, a.Op, quoted)
}

// Marker is a PEP 508 environment marker kept in disjunctive normal form.
// The zero value is the marker that always applies.
type Marker struct {
	clauses [][]markerAtom
	empty   bool
}

// AnyMarker returns the marker that always applies.
func AnyMarker() Marker {
	return Marker{}
}

// EmptyMarker returns the marker that never applies.
func EmptyMarker() Marker {
	return Marker{empty: true}
}

func (m Marker) IsAny() bool {
	return !m.empty && len(m.clauses) == 0
}

func (m Marker) IsEmpty() bool {
	return m.empty
}

// String renders the marker without redundant parentheses: "and" binds
// tighter than "or" in PEP 508. The always-true marker renders as "".
func (m Marker) String() string {
	if m.empty {
		return "<empty>"
	}
	parts := make([]string, 0, len(m.clauses))
	for _, clause := range m.clauses {
		atoms := make([]string, 0, len(clause))
		for _, atom := range clause {
			atoms = append(atoms, atom.String())
		}
		parts = append(parts, strings.Join(atoms, " and "))
	}
	return strings.Join(parts, " or ")
}

// Union returns m OR other.
func (m Marker) Union(other Marker) Marker {
	switch {
	case m.empty:
		return other
	case other.empty:
		return m
	case m.IsAny() || other.IsAny():
		return AnyMarker()
	}
	clauses := make([][]markerAtom, 0, len(m.clauses)+len(other.clauses))
	clauses = append(clauses, m.clauses...)
	clauses = append(clauses, other.clauses...)
	return normalizeClauses(clauses)
}

// Intersect returns m AND other.
func (m Marker) Intersect(other Marker) Marker {
	switch {
	case m.empty || other.empty:
		return EmptyMarker()
	case m.IsAny():
		return other
	case other.IsAny():
		return m
	}
	clauses := make([][]markerAtom, 0, len(m.clauses)*len(other.clauses))
	for _, left := range m.clauses {
		for _, right := range other.clauses {
			merged := make([]markerAtom, 0, len(left)+len(right))
			merged = append(merged, left...)
			merged = append(merged, right...)
			clauses = append(clauses, merged)
		}
	}
	return normalizeClauses(clauses)
}

// WithoutExtras drops every `extra` comparison.
func (m Marker) WithoutExtras() Marker {
	return m.mapAtoms(func(atom markerAtom) (keep bool, truth *bool) {
		if atom.Name == "extra" {
			return false, nil
		}
		return true, nil
	})
}

// ReduceExtras evaluates `extra == "x"` and `extra != "x"` comparisons
// against the active extras and removes them.
func (m Marker) ReduceExtras(active []string) Marker {
	set := map[string]struct{}{}
	for _, extra := range active {
		set[normalizeExtraValue(extra)] = struct{}{}
	}
	return m.mapAtoms(func(atom markerAtom) (bool, *bool) {
		if atom.Name != "extra" || atom.Reversed {
			return true, nil
		}
		_, enabled := set[normalizeExtraValue(atom.Value)]
		var result bool
		switch atom.Op {
		case "==", "===":
			result = enabled
		case "!=":
			result = !enabled
		default:
			return true, nil
		}
		return false, &result
	})
}

// Equal compares markers structurally after normalization, so
// differently quoted or ordered spellings of one condition are equal.
func (m Marker) Equal(other Marker) bool {
	if m.empty || other.empty {
		return m.empty == other.empty
	}
	return m.canonicalKey() == other.canonicalKey()
}

// Covers reports whether other adds nothing to m, i.e. m OR other == m.
func (m Marker) Covers(other Marker) bool {
	return m.Union(other).Equal(m)
}

func (m Marker) canonicalKey() string {
	keys := make([]string, 0, len(m.clauses))
	for _, clause := range m.clauses {
		keys = append(keys, clauseKey(clause))
	}
	sort.Strings(keys)
	return strings.Join(keys, " | ")
}

func (m Marker) mapAtoms(fn func(markerAtom) (bool, *bool)) Marker {
	if m.empty || m.IsAny() {
		return m
	}
	var clauses [][]markerAtom
	for _, clause := range m.clauses {
		var kept []markerAtom
		dropped := false
		for _, atom := range clause {
			keep, truth := fn(atom)
			if keep {
				kept = append(kept, atom)
				continue
			}
			if truth != nil && !*truth {
				dropped = true
				break
			}
		}
		if dropped {
			continue
		}
		if len(kept) == 0 {
			return AnyMarker()
		}
		clauses = append(clauses, kept)
	}
	return normalizeClauses(clauses)
}

func clauseKey(clause []markerAtom) string {
	keys := make([]string, 0, len(clause))
	for _, atom := range clause {
		keys = append(keys, atom.key())
	}
	sort.Strings(keys)
	return strings.Join(keys, " & ")
}

// normalizeClauses de-duplicates atoms, drops contradictory clauses and
// removes clauses absorbed by a weaker one (a OR (a AND b) == a). Clause
// and atom order is otherwise preserved so output stays readable.
func normalizeClauses(clauses [][]markerAtom) Marker {
	type entry struct {
		atoms []markerAtom
		set   map[string]struct{}
	}
	var entries []entry
	for _, clause := range clauses {
		set := map[string]struct{}{}
		var atoms []markerAtom
		for _, atom := range clause {
			key := atom.key()
			if _, ok := set[key]; ok {
				continue
			}
			set[key] = struct{}{}
			atoms = append(atoms, atom)
		}
		if len(atoms) == 0 {
			return AnyMarker()
		}
		if contradicts(atoms) {
			continue
		}
		entries = append(entries, entry{atoms: atoms, set: set})
	}
	var out [][]markerAtom
	for i, candidate := range entries {
		absorbed := false
		for j, other := range entries {
			if i == j || len(other.set) > len(candidate.set) {
				continue
			}
			if !isSubset(other.set, candidate.set) {
				continue
			}
			if len(other.set) < len(candidate.set) || j < i {
				absorbed = true
				break
			}
		}
		if !absorbed {
			out = append(out, candidate.atoms)
		}
	}
	if len(out) == 0 {
		return EmptyMarker()
	}
	return Marker{clauses: out}
}

func isSubset(small map[string]struct{}, large map[string]struct{}) bool {
	for key := range small {
		if _, ok := large[key]; !ok {
			return false
		}
	}
	return true
}

// contradicts detects clauses that can never hold: two different
// equality pins on one variable (extras excepted, several can be active), `x == a and x != a`, or an empty
// interpreter version range.
func contradicts(atoms []markerAtom) bool {
	equals := map[string]string{}
	for _, atom := range atoms {
		if atom.Reversed || atom.Op != "==" || atom.Name == "extra" {
			continue
		}
		if previous, ok := equals[atom.Name]; ok && previous != atom.Value {
			return true
		}
		equals[atom.Name] = atom.Value
	}
	for _, atom := range atoms {
		if atom.Reversed || atom.Op != "!=" {
			continue
		}
		if value, ok := equals[atom.Name]; ok && value == atom.Value {
			return true
		}
	}
	return emptyVersionRange(atoms, "python_version") || emptyVersionRange(atoms, "python_full_version")
}

func emptyVersionRange(atoms []markerAtom, variable string) bool {
	var lower, upper *pep440.Version
	lowerInclusive, upperInclusive := true, true
	for _, atom := range atoms {
		if atom.Reversed || atom.Name != variable || strings.Contains(atom.Value, "*") {
			continue
		}
		parsed, err := pep440.Parse(atom.Value)
		if err != nil {
			return false
		}
		v := parsed
		switch atom.Op {
		case ">=", ">":
			inclusive := atom.Op == ">="
			if lower == nil || tighterLower(v, inclusive, *lower, lowerInclusive) {
				lower, lowerInclusive = &v, inclusive
			}
		case "<=", "<":
			inclusive := atom.Op == "<="
			if upper == nil || tighterUpper(v, inclusive, *upper, upperInclusive) {
				upper, upperInclusive = &v, inclusive
			}
		case "==":
			if lower == nil || tighterLower(v, true, *lower, lowerInclusive) {
				lower, lowerInclusive = &v, true
			}
			if upper == nil || tighterUpper(v, true, *upper, upperInclusive) {
				upper, upperInclusive = &v, true
			}
		}
	}
	if lower == nil || upper == nil {
		return false
	}
	cmp := lower.Compare(*upper)
	if cmp > 0 {
		return true
	}
	return cmp == 0 && !(lowerInclusive && upperInclusive)
}

func tighterLower(candidate pep440.Version, inclusive bool, current pep440.Version, currentInclusive bool) bool {
	cmp := candidate.Compare(current)
	return cmp > 0 || (cmp == 0 && currentInclusive && !inclusive)
}

func tighterUpper(candidate pep440.Version, inclusive bool, current pep440.Version, currentInclusive bool) bool {
	cmp := candidate.Compare(current)
	return cmp < 0 || (cmp == 0 && currentInclusive && !inclusive)
}

func normalizeExtraValue(value string) string {
	return strings.ReplaceAll(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "_", "-"), ".", "-")
}

// ParseMarker parses a PEP 508 marker expression. An empty string is the
// marker that always applies.
func ParseMarker(raw string) (Marker, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AnyMarker(), nil
	}
	tokens, err := tokenizeMarker(raw)
	if err != nil {
		return Marker{}, invalidMarker(raw, err)
	}
	p := markerParser{tokens: tokens}
	marker, err := p.parseOr()
	if err != nil {
		return Marker{}, invalidMarker(raw, err)
	}
	if p.pos != len(p.tokens) {
		return Marker{}, invalidMarker(raw, fmt.Errorf("unexpected %q", p.tokens[p.pos].text))
	}
	return marker, nil
}

// MustParseMarker is ParseMarker for literals known to be valid.
func MustParseMarker(raw string) Marker {
	marker, err := ParseMarker(raw)
	if err != nil {
		panic(err)
	}
	return marker
}

func invalidMarker(raw string, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid marker: %s", raw)).
		WithCause(cause)
}

type markerTokenKind int

const (
	tokenIdent markerTokenKind = iota
	tokenString
	tokenOp
	tokenLParen
	tokenRParen
	tokenAnd
	tokenOr
)

type markerToken struct {
	kind markerTokenKind
	text string
}

var markerOps = []string{"===", "==", "!=", "<=", ">=", "~=", "<", ">"}

func tokenizeMarker(raw string) ([]markerToken, error) {
	var tokens []markerToken
	for i := 0; i < len(raw); {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '(':
			tokens = append(tokens, markerToken{kind: tokenLParen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, markerToken{kind: tokenRParen, text: ")"})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(raw[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unterminated string at offset %d", i)
			}
			tokens = append(tokens, markerToken{kind: tokenString, text: raw[i+1 : i+1+end]})
			i += end + 2
		case isIdentByte(c):
			start := i
			for i < len(raw) && isIdentByte(raw[i]) {
				i++
			}
			word := raw[start:i]
			switch word {
			case "and":
				tokens = append(tokens, markerToken{kind: tokenAnd, text: word})
			case "or":
				tokens = append(tokens, markerToken{kind: tokenOr, text: word})
			case "in":
				tokens = append(tokens, markerToken{kind: tokenOp, text: "in"})
			case "not":
				rest := strings.TrimLeft(raw[i:], " \t")
				if !strings.HasPrefix(rest, "in") {
					return nil, fmt.Errorf("expected 'in' after 'not'")
				}
				i = len(raw) - len(rest) + 2
				tokens = append(tokens, markerToken{kind: tokenOp, text: "not in"})
			default:
				tokens = append(tokens, markerToken{kind: tokenIdent, text: word})
			}
		default:
			matched := false
			for _, op := range markerOps {
				if strings.HasPrefix(raw[i:], op) {
					tokens = append(tokens, markerToken{kind: tokenOp, text: op})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
			}
		}
	}
	return tokens, nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

type markerParser struct {
	tokens []markerToken
	pos    int
}

func (p *markerParser) peek() (markerToken, bool) {
	if p.pos >= len(p.tokens) {
		return markerToken{}, false
	}
	return p.tokens[p.pos], true
}

func (p *markerParser) parseOr() (Marker, error) {
	left, err := p.parseAnd()
	if err != nil {
		return Marker{}, err
	}
	for {
		token, ok := p.peek()
		if !ok || token.kind != tokenOr {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return Marker{}, err
		}
		left = left.Union(right)
	}
}

func (p *markerParser) parseAnd() (Marker, error) {
	left, err := p.parseAtom()
	if err != nil {
		return Marker{}, err
	}
	for {
		token, ok := p.peek()
		if !ok || token.kind != tokenAnd {
			return left, nil
		}
		p.pos++
		right, err := p.parseAtom()
		if err != nil {
			return Marker{}, err
		}
		left = left.Intersect(right)
	}
}

func (p *markerParser) parseAtom() (Marker, error) {
	token, ok := p.peek()
	if !ok {
		return Marker{}, fmt.Errorf("unexpected end of marker")
	}
	if token.kind == tokenLParen {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return Marker{}, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokenRParen {
			return Marker{}, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	}
	if p.pos+3 > len(p.tokens) {
		return Marker{}, fmt.Errorf("incomplete comparison")
	}
	left, op, right := p.tokens[p.pos], p.tokens[p.pos+1], p.tokens[p.pos+2]
	if op.kind != tokenOp {
		return Marker{}, fmt.Errorf("expected operator, got %q", op.text)
	}
	p.pos += 3
	atom, err := newMarkerAtom(left, op.text, right)
	if err != nil {
		return Marker{}, err
	}
	return Marker{clauses: [][]markerAtom{{atom}}}, nil
}

var flippedOps = map[string]string{
	"<":   ">",
	">":   "<",
	"<=":  ">=",
	">=":  "<=",
	"==":  "==",
	"!=":  "!=",
	"===": "===",
	"~=":  "~=",
}

func newMarkerAtom(left markerToken, op string, right markerToken) (markerAtom, error) {
	switch {
	case left.kind == tokenIdent && right.kind == tokenString:
		return markerAtom{Name: left.text, Op: op, Value: normalizeAtomValue(left.text, right.text)}, nil
	case left.kind == tokenString && right.kind == tokenIdent:
		if op == "in" || op == "not in" {
			return markerAtom{Name: right.text, Op: op, Value: left.text, Reversed: true}, nil
		}
		return markerAtom{Name: right.text, Op: flippedOps[op], Value: normalizeAtomValue(right.text, left.text)}, nil
	default:
		return markerAtom{}, fmt.Errorf("comparison needs one variable and one string")
	}
}

func normalizeAtomValue(name string, value string) string {
	if name == "extra" {
		return normalizeExtraValue(value)
	}
	return value
}
