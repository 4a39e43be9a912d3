package policies

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"poetry-export/internal/types"
)

// DirectReferencePolicy handles path, URL, VCS and editable packages in
// formats that can only carry bare version pins.
type DirectReferencePolicy struct {
	Mode types.DirectReferenceMode
}

// ParseDirectReferenceMode accepts "omit" or "fail". Empty selects omit.
func ParseDirectReferenceMode(value string) (types.DirectReferenceMode, error) {
	switch types.DirectReferenceMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", types.DirectReferenceOmit:
		return types.DirectReferenceOmit, nil
	case types.DirectReferenceFail:
		return types.DirectReferenceFail, nil
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown direct reference mode: %s (expected omit or fail)", value))
	}
}

func NewDirectReferencePolicy(mode types.DirectReferenceMode) DirectReferencePolicy {
	if mode == "" {
		mode = types.DirectReferenceOmit
	}
	return DirectReferencePolicy{Mode: mode}
}

func (p DirectReferencePolicy) Admit(pkg types.ResolvedPackage) (bool, string, error) {
	kind := directReferenceKind(pkg.Package)
	if kind == "" {
		return true, "", nil
	}
	name := pkg.Package.DisplayName()
	switch p.Mode {
	case types.DirectReferenceFail:
		return false, "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("unrepresentable dependency: %s is locked as a %s, which constraints.txt cannot express", name, kind))
	case types.DirectReferenceOmit:
		return false, fmt.Sprintf("%s is locked as a %s, which is incompatible with the constraints.txt format; it was omitted", name, kind), nil
	default:
		return false, "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown direct reference mode: %s", p.Mode))
	}
}

func directReferenceKind(pkg types.Package) string {
	if pkg.Develop {
		return "develop (editable) package"
	}
	switch pkg.Source.Type {
	case types.SourceTypeGit:
		return "VCS reference"
	case types.SourceTypeDirectory, types.SourceTypeFile:
		return "local path reference"
	case types.SourceTypeURL:
		return "URL reference"
	default:
		return ""
	}
}
