package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"poetry-export/internal/ports"
	"poetry-export/internal/types"
)

// RenderEnv carries everything a renderer needs besides the package set.
type RenderEnv struct {
	Project   types.Project
	Selection types.Selection
	Options   types.ExportOptions
	// OutputDir anchors relative paths in pylock.toml.
	OutputDir        string
	Credentials      ports.CredentialPort
	DirectReferences ports.DirectReferencePort
}

// Renderer turns the walked package set into one export format. The set
// of renderers is closed; use RendererFor.
type Renderer interface {
	Format() types.ExportFormat
	Render(ctx context.Context, env RenderEnv, packages []types.ResolvedPackage) (types.ExportDocument, error)
}

func RendererFor(format types.ExportFormat) (Renderer, error) {
	switch format {
	case types.FormatRequirementsTxt:
		return requirementsRenderer{}, nil
	case types.FormatConstraintsTxt:
		return constraintsRenderer{}, nil
	case types.FormatPylockToml:
		return pylockRenderer{}, nil
	default:
		supported := make([]string, 0, len(types.ExportFormats))
		for _, candidate := range types.ExportFormats {
			supported = append(supported, string(candidate))
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid export format: %s (supported: %s)", format, strings.Join(supported, ", ")))
	}
}

func unrepresentable(pkg types.Package, reason string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("unrepresentable dependency: %s %s", pkg.DisplayName(), reason))
}
