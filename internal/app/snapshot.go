package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
)

// Snapshot writes the project's lock graph as a YAML snapshot that can
// later be exported with a graph path instead of a project directory.
func (s Service) Snapshot(ctx context.Context, req SnapshotRequest) (SnapshotResult, error) {
	output := strings.TrimSpace(req.OutputPath)
	if output == "" {
		return SnapshotResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("snapshot output path is required")
	}
	if s.SnapshotWriter == nil {
		return SnapshotResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("snapshot writing is not supported by this service")
	}
	graph, err := s.loadGraph(req.ProjectDir, "")
	if err != nil {
		return SnapshotResult{}, err
	}
	path := s.resolvePath(output)
	if err := s.SnapshotWriter.WriteGraph(path, graph); err != nil {
		return SnapshotResult{}, err
	}
	log.Ctx(ctx).Info().Str("path", path).Int("packages", len(graph.Packages)).Msg("graph snapshot written")
	return SnapshotResult{
		Path:         path,
		ProjectName:  graph.Project.Name,
		PackageCount: len(graph.Packages),
	}, nil
}
