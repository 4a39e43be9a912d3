package adapters

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"poetry-export/internal/ports"
	"poetry-export/internal/types"
)

// GraphFileAdapter reads and writes lock graph snapshots as YAML.
type GraphFileAdapter struct{}

func NewGraphFileAdapter() GraphFileAdapter {
	return GraphFileAdapter{}
}

func (a GraphFileAdapter) LoadGraph(path string) (types.LockGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.LockGraph{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("graph snapshot not found: %s", path)).
			WithCause(err)
	}
	var graph types.LockGraph
	if err := yaml.Unmarshal(data, &graph); err != nil {
		return types.LockGraph{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse graph snapshot yaml").
			WithCause(err)
	}
	if graph.Project.Name == "" {
		return types.LockGraph{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("graph snapshot declares no project name")
	}
	if graph.Project.Dir == "" {
		abs, err := filepath.Abs(filepath.Dir(path))
		if err == nil {
			graph.Project.Dir = abs
		}
	}
	if _, ok := graph.Project.Group(types.MainGroup); !ok {
		graph.Project.Groups = append([]types.DependencyGroup{{Name: types.MainGroup}}, graph.Project.Groups...)
	}
	return graph, nil
}

func (a GraphFileAdapter) WriteGraph(path string, graph types.LockGraph) error {
	data, err := yaml.Marshal(graph)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode graph snapshot").
			WithCause(err)
	}
	return writeFileAtomic(path, data, 0o644)
}

var (
	_ ports.LockGraphPort       = GraphFileAdapter{}
	_ ports.LockGraphWriterPort = GraphFileAdapter{}
	_ ports.LockGraphPort       = PoetryProjectAdapter{}
)
