package adapters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"poetry-export/internal/shared"
	"poetry-export/internal/types"
)

// decodeDependencyTable converts a Poetry dependency table, where each
// value is a constraint string, a table or an array of tables (multiple
// constraints). Names are visited in sorted order.
func decodeDependencyTable(group string, raw map[string]any) ([]types.Dependency, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var deps []types.Dependency
	for _, name := range names {
		if strings.EqualFold(name, "python") {
			continue
		}
		decoded, err := decodeDependency(group, name, raw[name])
		if err != nil {
			return nil, err
		}
		deps = append(deps, decoded...)
	}
	return deps, nil
}

func decodeDependency(group string, name string, value any) ([]types.Dependency, error) {
	switch v := value.(type) {
	case string:
		return []types.Dependency{{
			Group:      group,
			Name:       shared.NormalizePipName(name),
			Constraint: strings.TrimSpace(v),
		}}, nil
	case map[string]any:
		return []types.Dependency{dependencyFromTable(group, name, v)}, nil
	case []any:
		deps := make([]types.Dependency, 0, len(v))
		for _, item := range v {
			table, ok := item.(map[string]any)
			if !ok {
				return nil, invalidDependency(name)
			}
			deps = append(deps, dependencyFromTable(group, name, table))
		}
		return deps, nil
	case []map[string]any:
		deps := make([]types.Dependency, 0, len(v))
		for _, table := range v {
			deps = append(deps, dependencyFromTable(group, name, table))
		}
		return deps, nil
	default:
		return nil, invalidDependency(name)
	}
}

func dependencyFromTable(group string, name string, table map[string]any) types.Dependency {
	dep := types.Dependency{
		Group:      group,
		Name:       shared.NormalizePipName(name),
		Constraint: stringValue(table, "version"),
		Marker:     stringValue(table, "markers"),
		Python:     stringValue(table, "python"),
		Optional:   boolValue(table, "optional"),
		Develop:    boolValue(table, "develop"),
		Extras:     shared.NormalizeNames(stringsValue(table, "extras")),
	}
	if platform := stringValue(table, "platform"); platform != "" {
		dep.Marker = joinMarkers(dep.Marker, fmt.Sprintf(`sys_platform == "%s"`, platform))
	}
	switch {
	case stringValue(table, "git") != "":
		reference := stringValue(table, "rev")
		for _, key := range []string{"tag", "branch"} {
			if reference == "" {
				reference = stringValue(table, key)
			}
		}
		dep.Source = types.PackageSource{
			Type:         types.SourceTypeGit,
			URL:          stringValue(table, "git"),
			Reference:    reference,
			Subdirectory: stringValue(table, "subdirectory"),
		}
	case stringValue(table, "path") != "":
		path := stringValue(table, "path")
		dep.Source = types.PackageSource{Type: localSourceType(path), URL: path}
	case stringValue(table, "url") != "":
		dep.Source = types.PackageSource{
			Type:         types.SourceTypeURL,
			URL:          stringValue(table, "url"),
			Subdirectory: stringValue(table, "subdirectory"),
		}
	}
	return dep
}

func joinMarkers(left string, right string) string {
	switch {
	case left == "":
		return right
	case right == "":
		return left
	default:
		return fmt.Sprintf("(%s) and (%s)", left, right)
	}
}

func stringValue(table map[string]any, key string) string {
	value, ok := table[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func boolValue(table map[string]any, key string) bool {
	value, ok := table[key].(bool)
	return ok && value
}

func stringsValue(table map[string]any, key string) []string {
	switch v := table[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

func invalidDependency(name string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("unsupported dependency specification for %s", name))
}
