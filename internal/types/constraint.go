package types

type ConstraintOp string

const (
	ConstraintOpNone   ConstraintOp = ""
	ConstraintOpEq     ConstraintOp = "="
	ConstraintOpEq2    ConstraintOp = "=="
	ConstraintOpNe     ConstraintOp = "!="
	ConstraintOpCompat ConstraintOp = "~="
	ConstraintOpGte    ConstraintOp = ">="
	ConstraintOpLte    ConstraintOp = "<="
	ConstraintOpGt     ConstraintOp = ">"
	ConstraintOpLt     ConstraintOp = "<"
	ConstraintOpCaret  ConstraintOp = "^"
	ConstraintOpTilde  ConstraintOp = "~"
)

// Bound is one PEP 440 comparison, e.g. ">= 3.8".
type Bound struct {
	Op      ConstraintOp
	Version string
}
