package adapters

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"poetry-export/internal/shared"
	"poetry-export/internal/types"
)

const (
	PyprojectFile = "pyproject.toml"
	LockFile      = "poetry.lock"
)

// PoetryProjectAdapter decodes pyproject.toml and poetry.lock from a
// project directory. It only reads what Poetry already resolved.
type PoetryProjectAdapter struct{}

func NewPoetryProjectAdapter() PoetryProjectAdapter {
	return PoetryProjectAdapter{}
}

type pyprojectFile struct {
	Project struct {
		Name                 string              `toml:"name"`
		Version              string              `toml:"version"`
		RequiresPython       string              `toml:"requires-python"`
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	DependencyGroups map[string][]any `toml:"dependency-groups"`
	Tool             struct {
		Poetry poetrySection `toml:"poetry"`
	} `toml:"tool"`
}

type poetrySection struct {
	Name            string                 `toml:"name"`
	Version         string                 `toml:"version"`
	Dependencies    map[string]any         `toml:"dependencies"`
	DevDependencies map[string]any         `toml:"dev-dependencies"`
	Group           map[string]poetryGroup `toml:"group"`
	Extras          map[string][]string    `toml:"extras"`
	Source          []poetrySource         `toml:"source"`
}

type poetryGroup struct {
	Optional     bool           `toml:"optional"`
	Dependencies map[string]any `toml:"dependencies"`
}

type poetrySource struct {
	Name      string `toml:"name"`
	URL       string `toml:"url"`
	Priority  string `toml:"priority"`
	Default   bool   `toml:"default"`
	Secondary bool   `toml:"secondary"`
}

type lockFile struct {
	Packages []lockPackage       `toml:"package"`
	Extras   map[string][]string `toml:"extras"`
	Metadata lockMetadata        `toml:"metadata"`
}

type lockMetadata struct {
	LockVersion    string                     `toml:"lock-version"`
	PythonVersions string                     `toml:"python-versions"`
	Files          map[string][]lockFileEntry `toml:"files"`
}

type lockPackage struct {
	Name           string              `toml:"name"`
	Version        string              `toml:"version"`
	Description    string              `toml:"description"`
	Optional       bool                `toml:"optional"`
	PythonVersions string              `toml:"python-versions"`
	Develop        bool                `toml:"develop"`
	Groups         []string            `toml:"groups"`
	Markers        any                 `toml:"markers"`
	Files          []lockFileEntry     `toml:"files"`
	Dependencies   map[string]any      `toml:"dependencies"`
	Extras         map[string][]string `toml:"extras"`
	Source         lockSource          `toml:"source"`
}

type lockFileEntry struct {
	File       string `toml:"file"`
	Hash       string `toml:"hash"`
	URL        string `toml:"url"`
	UploadTime any    `toml:"upload-time"`
	Size       int64  `toml:"size"`
}

type lockSource struct {
	Type              string `toml:"type"`
	URL               string `toml:"url"`
	Reference         string `toml:"reference"`
	ResolvedReference string `toml:"resolved_reference"`
	Subdirectory      string `toml:"subdirectory"`
}

// LoadGraph reads the project rooted at location, which may be the
// project directory or its pyproject.toml.
func (a PoetryProjectAdapter) LoadGraph(location string) (types.LockGraph, error) {
	dir, err := projectDir(location)
	if err != nil {
		return types.LockGraph{}, err
	}

	var pyproject pyprojectFile
	if err := decodeTOMLFile(filepath.Join(dir, PyprojectFile), &pyproject); err != nil {
		return types.LockGraph{}, err
	}
	var lock lockFile
	if err := decodeTOMLFile(filepath.Join(dir, LockFile), &lock); err != nil {
		return types.LockGraph{}, err
	}

	project, err := buildProject(dir, pyproject, lock)
	if err != nil {
		return types.LockGraph{}, err
	}
	packages, err := buildPackages(lock)
	if err != nil {
		return types.LockGraph{}, err
	}
	log.Debug().
		Str("project", project.Name).
		Str("lock_version", lock.Metadata.LockVersion).
		Int("packages", len(packages)).
		Msg("poetry project loaded")

	return types.LockGraph{
		LockVersion: lock.Metadata.LockVersion,
		Project:     project,
		Packages:    packages,
	}, nil
}

func projectDir(location string) (string, error) {
	if location == "" {
		location = "."
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid project path: %s", location)).
			WithCause(err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("project path not found: %s", location)).
			WithCause(err)
	}
	if !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	return abs, nil
}

func decodeTOMLFile(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			msg := fmt.Sprintf("%s not found in %s", filepath.Base(path), filepath.Dir(path))
			if filepath.Base(path) == LockFile {
				msg += "; run poetry lock first"
			}
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(msg).
				WithCause(err)
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read %s", path)).
			WithCause(err)
	}
	if err := toml.Unmarshal(data, target); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to parse %s", filepath.Base(path))).
			WithCause(err)
	}
	return nil
}

func buildProject(dir string, pyproject pyprojectFile, lock lockFile) (types.Project, error) {
	poetry := pyproject.Tool.Poetry
	project := types.Project{
		Name:    firstNonEmpty(pyproject.Project.Name, poetry.Name),
		Version: firstNonEmpty(pyproject.Project.Version, poetry.Version),
		Dir:     dir,
		Extras:  map[string][]string{},
	}
	if project.Name == "" {
		return types.Project{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pyproject.toml declares no project name")
	}
	project.PythonConstraint = firstNonEmpty(
		stringValue(poetry.Dependencies, "python"),
		pyproject.Project.RequiresPython,
		lock.Metadata.PythonVersions,
		"*",
	)

	main, err := mainDependencies(pyproject)
	if err != nil {
		return types.Project{}, err
	}
	groups := map[string]types.DependencyGroup{
		types.MainGroup: {Name: types.MainGroup, Dependencies: main},
	}

	for name, group := range poetry.Group {
		normalized := shared.NormalizePipName(name)
		deps, err := decodeDependencyTable(normalized, group.Dependencies)
		if err != nil {
			return types.Project{}, err
		}
		merged := groups[normalized]
		merged.Name = normalized
		merged.Optional = merged.Optional || group.Optional
		merged.Dependencies = append(merged.Dependencies, deps...)
		groups[normalized] = merged
	}
	if len(poetry.DevDependencies) > 0 {
		deps, err := decodeDependencyTable("dev", poetry.DevDependencies)
		if err != nil {
			return types.Project{}, err
		}
		merged := groups["dev"]
		merged.Name = "dev"
		merged.Dependencies = append(merged.Dependencies, deps...)
		groups["dev"] = merged
	}
	if err := addDependencyGroups(groups, pyproject.DependencyGroups); err != nil {
		return types.Project{}, err
	}

	for extra, members := range poetry.Extras {
		addExtra(project.Extras, extra, members)
	}
	for extra, members := range pyproject.Project.OptionalDependencies {
		addExtra(project.Extras, extra, members)
	}
	for extra, members := range lock.Extras {
		if _, ok := project.Extras[shared.NormalizePipName(extra)]; !ok {
			addExtra(project.Extras, extra, members)
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if (names[i] == types.MainGroup) != (names[j] == types.MainGroup) {
			return names[i] == types.MainGroup
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		project.Groups = append(project.Groups, groups[name])
	}
	project.Repositories = buildRepositories(poetry.Source)
	return project, nil
}

// mainDependencies prefers PEP 621 [project] dependencies. Entries of
// [tool.poetry.dependencies] with the same name then only contribute
// their source and develop settings.
func mainDependencies(pyproject pyprojectFile) ([]types.Dependency, error) {
	poetryDeps, err := decodeDependencyTable(types.MainGroup, pyproject.Tool.Poetry.Dependencies)
	if err != nil {
		return nil, err
	}
	if len(pyproject.Project.Dependencies) == 0 && len(pyproject.Project.OptionalDependencies) == 0 {
		return poetryDeps, nil
	}

	enrich := map[string]types.Dependency{}
	for _, dep := range poetryDeps {
		enrich[dep.Name] = dep
	}
	var deps []types.Dependency
	add := func(raw string, optional bool) error {
		dep, err := parseRequirement(raw)
		if err != nil {
			return err
		}
		dep.Group = types.MainGroup
		dep.Optional = optional
		if extra, ok := enrich[dep.Name]; ok {
			if !dep.Source.IsDirectReference() {
				dep.Source = extra.Source
			}
			dep.Develop = extra.Develop
		}
		deps = append(deps, dep)
		return nil
	}
	for _, raw := range pyproject.Project.Dependencies {
		if err := add(raw, false); err != nil {
			return nil, err
		}
	}
	extras := make([]string, 0, len(pyproject.Project.OptionalDependencies))
	for extra := range pyproject.Project.OptionalDependencies {
		extras = append(extras, extra)
	}
	sort.Strings(extras)
	for _, extra := range extras {
		for _, raw := range pyproject.Project.OptionalDependencies[extra] {
			if err := add(raw, true); err != nil {
				return nil, err
			}
		}
	}
	return deps, nil
}

// addDependencyGroups merges PEP 735 [dependency-groups], resolving
// {include-group = "..."} entries.
func addDependencyGroups(groups map[string]types.DependencyGroup, raw map[string][]any) error {
	var expand func(name string, seen map[string]bool) ([]types.Dependency, error)
	expand = func(name string, seen map[string]bool) ([]types.Dependency, error) {
		if seen[name] {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("dependency group %s includes itself", name))
		}
		seen[name] = true
		defer delete(seen, name)

		var entries []any
		for key, values := range raw {
			if shared.NormalizePipName(key) == name {
				entries = append(entries, values...)
			}
		}
		var deps []types.Dependency
		for _, entry := range entries {
			switch v := entry.(type) {
			case string:
				dep, err := parseRequirement(v)
				if err != nil {
					return nil, err
				}
				deps = append(deps, dep)
			case map[string]any:
				included := shared.NormalizePipName(stringValue(v, "include-group"))
				if included == "" {
					return nil, invalidDependency(name)
				}
				nested, err := expand(included, seen)
				if err != nil {
					return nil, err
				}
				deps = append(deps, nested...)
			default:
				return nil, invalidDependency(name)
			}
		}
		return deps, nil
	}

	for key := range raw {
		name := shared.NormalizePipName(key)
		deps, err := expand(name, map[string]bool{})
		if err != nil {
			return err
		}
		merged := groups[name]
		merged.Name = name
		for _, dep := range deps {
			dep.Group = name
			merged.Dependencies = append(merged.Dependencies, dep)
		}
		groups[name] = merged
	}
	return nil
}

func addExtra(extras map[string][]string, extra string, members []string) {
	name := shared.NormalizePipName(extra)
	var names []string
	for _, member := range members {
		names = append(names, requirementName(member))
	}
	extras[name] = shared.UniqueSorted(append(extras[name], names...))
}

func buildRepositories(sources []poetrySource) []types.Repository {
	var repos []types.Repository
	for _, source := range sources {
		priority := types.RepositoryPriority(strings.ToLower(source.Priority))
		switch {
		case priority != "":
		case source.Secondary:
			priority = types.PrioritySupplemental
		default:
			priority = types.PriorityPrimary
		}
		repo := types.Repository{
			Name:     source.Name,
			URL:      strings.TrimRight(source.URL, "/"),
			Priority: priority,
		}
		if source.Default {
			repos = append([]types.Repository{repo}, repos...)
			continue
		}
		repos = append(repos, repo)
	}
	return repos
}

func buildPackages(lock lockFile) ([]types.Package, error) {
	legacyFiles := map[string][]lockFileEntry{}
	for name, files := range lock.Metadata.Files {
		legacyFiles[shared.NormalizePipName(name)] = files
	}

	packages := make([]types.Package, 0, len(lock.Packages))
	for _, locked := range lock.Packages {
		name := shared.NormalizePipName(locked.Name)
		deps, err := decodeDependencyTable("", locked.Dependencies)
		if err != nil {
			return nil, err
		}
		files := locked.Files
		if len(files) == 0 {
			files = legacyFiles[name]
		}
		pkg := types.Package{
			Name:           name,
			PrettyName:     locked.Name,
			Version:        locked.Version,
			Description:    locked.Description,
			PythonVersions: locked.PythonVersions,
			Optional:       locked.Optional,
			Develop:        locked.Develop,
			Source: types.PackageSource{
				Type:              types.SourceType(locked.Source.Type),
				URL:               locked.Source.URL,
				Reference:         locked.Source.Reference,
				ResolvedReference: locked.Source.ResolvedReference,
				Subdirectory:      locked.Source.Subdirectory,
			},
			Dependencies: deps,
			Groups:       shared.NormalizeNames(locked.Groups),
			Markers:      lockMarkers(locked),
		}
		for _, file := range files {
			pkg.Files = append(pkg.Files, types.PackageFile{
				File:       file.File,
				Hash:       file.Hash,
				URL:        file.URL,
				UploadTime: uploadTime(file.UploadTime),
				Size:       file.Size,
			})
		}
		if len(locked.Extras) > 0 {
			pkg.Extras = map[string][]string{}
			for extra, members := range locked.Extras {
				addExtra(pkg.Extras, extra, members)
			}
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

// lockMarkers normalizes the lock 2.1 markers field, which is either one
// marker for every group or a table keyed by group.
func lockMarkers(locked lockPackage) map[string]string {
	switch v := locked.Markers.(type) {
	case string:
		if v == "" {
			return nil
		}
		out := map[string]string{}
		for _, group := range locked.Groups {
			out[shared.NormalizePipName(group)] = v
		}
		if len(out) == 0 {
			out[types.MainGroup] = v
		}
		return out
	case map[string]any:
		out := map[string]string{}
		for group, marker := range v {
			if s, ok := marker.(string); ok {
				out[shared.NormalizePipName(group)] = s
			}
		}
		return out
	default:
		return nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
