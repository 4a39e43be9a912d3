package core

import (
	"context"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog/log"

	"poetry-export/internal/ports"
	"poetry-export/internal/types"
)

// Exporter runs selection, walk and rendering entirely in memory. It
// never touches the output sink.
type Exporter struct {
	Selection        SelectionResolver
	Credentials      ports.CredentialPort
	DirectReferences ports.DirectReferencePort
}

type ExportRequest struct {
	Graph     types.LockGraph
	Policy    types.SelectionPolicy
	Options   types.ExportOptions
	OutputDir string
}

func NewExporter(credentials ports.CredentialPort, directReferences ports.DirectReferencePort) Exporter {
	return Exporter{
		Selection:        NewSelectionResolver(),
		Credentials:      credentials,
		DirectReferences: directReferences,
	}
}

func (e Exporter) Export(ctx context.Context, req ExportRequest) (types.ExportDocument, error) {
	assert.NotEmpty(ctx, req.Graph.Project.Name, "project name must be set")

	renderer, err := RendererFor(req.Options.Format)
	if err != nil {
		return types.ExportDocument{}, err
	}
	selection, err := e.Selection.Resolve(ctx, req.Graph.Project, req.Policy)
	if err != nil {
		return types.ExportDocument{}, err
	}
	packages, err := NewWalker(req.Graph).Walk(ctx, selection)
	if err != nil {
		return types.ExportDocument{}, err
	}

	doc, err := renderer.Render(ctx, RenderEnv{
		Project:          req.Graph.Project,
		Selection:        selection,
		Options:          req.Options,
		OutputDir:        req.OutputDir,
		Credentials:      e.Credentials,
		DirectReferences: e.DirectReferences,
	}, packages)
	if err != nil {
		return types.ExportDocument{}, err
	}
	assert.NotEmpty(ctx, doc.Content, "rendered document must not be empty")

	log.Ctx(ctx).Info().
		Str("format", string(doc.Format)).
		Int("packages", len(doc.Packages)).
		Int("warnings", len(doc.Warnings)).
		Msg("export rendered")
	return doc, nil
}
