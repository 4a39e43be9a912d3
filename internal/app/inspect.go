package app

import (
	"sort"

	"poetry-export/internal/policies"
	"poetry-export/internal/types"
)

func (s Service) Inspect(req InspectRequest) (InspectResult, error) {
	graph, err := s.loadGraph(req.ProjectDir, req.GraphPath)
	if err != nil {
		return InspectResult{}, err
	}
	project := graph.Project

	var groups []InspectGroupSummary
	for _, group := range project.Groups {
		groups = append(groups, InspectGroupSummary{
			Name:         group.Name,
			Optional:     group.Optional,
			Dependencies: len(group.Dependencies),
		})
	}
	var extras []InspectExtraSummary
	for _, name := range sortedKeys(project.Extras) {
		packages := append([]string(nil), project.Extras[name]...)
		sort.Strings(packages)
		extras = append(extras, InspectExtraSummary{Name: name, Packages: packages})
	}
	sources := policies.NewIndexPolicy(project.Repositories)
	return InspectResult{
		ProjectName:      project.Name,
		ProjectVersion:   project.Version,
		PythonConstraint: project.PythonConstraint,
		LockVersion:      graph.LockVersion,
		Groups:           groups,
		Extras:           extras,
		Repositories:     sources.Repositories,
		PyPIActive:       sources.PyPIActive(),
		PackageCount:     countLocked(graph.Packages),
	}, nil
}

func countLocked(packages []types.Package) int {
	count := 0
	for _, pkg := range packages {
		if !pkg.Root {
			count++
		}
	}
	return count
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
