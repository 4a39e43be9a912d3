package ports

import "poetry-export/internal/types"

// DirectReferencePort decides how formats that only accept version pins
// handle packages locked as direct references. A false keep drops the
// package; warning is reported to the user.
type DirectReferencePort interface {
	Admit(pkg types.ResolvedPackage) (keep bool, warning string, err error)
}
