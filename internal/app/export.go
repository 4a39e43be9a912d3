package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"poetry-export/internal/core"
	"poetry-export/internal/policies"
	"poetry-export/internal/types"
)

// Export loads the lock graph, renders the requested format in memory and
// only then hands the document to the output sink, so configuration and
// representability errors never leave a file behind.
func (s Service) Export(ctx context.Context, req ExportRequest) (ExportResult, error) {
	if s.Output == nil {
		return ExportResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("export requires an output port")
	}
	options := req.Options
	if options.Format == "" {
		options.Format = types.FormatRequirementsTxt
	}
	if _, err := core.RendererFor(options.Format); err != nil {
		return ExportResult{}, err
	}

	graph, err := s.loadGraph(req.ProjectDir, req.GraphPath)
	if err != nil {
		return ExportResult{}, err
	}

	outputPath := strings.TrimSpace(req.OutputPath)
	outputDir := s.WorkDir
	if outputPath != "" {
		outputDir = filepath.Dir(s.resolvePath(outputPath))
	}

	exporter := core.NewExporter(s.Credentials, policies.NewDirectReferencePolicy(options.DirectReferences))
	doc, err := exporter.Export(ctx, core.ExportRequest{
		Graph:     graph,
		Policy:    req.Policy,
		Options:   options,
		OutputDir: outputDir,
	})
	if err != nil {
		return ExportResult{}, err
	}

	if err := s.Output.WriteDocument(outputPath, doc); err != nil {
		return ExportResult{}, err
	}
	result := ExportResult{
		Format:   doc.Format,
		Packages: len(doc.Packages),
		Warnings: doc.Warnings,
	}
	if outputPath != "" {
		result.OutputPath = s.resolvePath(outputPath)
	}
	log.Ctx(ctx).Debug().
		Str("project", graph.Project.Name).
		Str("output", result.OutputPath).
		Msg("export complete")
	return result, nil
}

func (s Service) loadGraph(projectDir string, graphPath string) (types.LockGraph, error) {
	if path := strings.TrimSpace(graphPath); path != "" {
		if s.SnapshotLoader == nil {
			return types.LockGraph{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("graph snapshots are not supported by this service")
		}
		return s.SnapshotLoader.LoadGraph(s.resolvePath(path))
	}
	if s.ProjectLoader == nil {
		return types.LockGraph{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("project loading is not supported by this service")
	}
	dir := strings.TrimSpace(projectDir)
	if dir == "" {
		dir = "."
	}
	return s.ProjectLoader.LoadGraph(s.resolvePath(dir))
}

func (s Service) resolvePath(path string) string {
	if filepath.IsAbs(path) || s.WorkDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(s.WorkDir, path)
}
