package types

// MainGroup is the implicit dependency group of every project.
const MainGroup = "main"

type PackageSource struct {
	Type              SourceType `yaml:"type,omitempty"`
	URL               string     `yaml:"url,omitempty"`
	Reference         string     `yaml:"reference,omitempty"`
	ResolvedReference string     `yaml:"resolved_reference,omitempty"`
	Subdirectory      string     `yaml:"subdirectory,omitempty"`
}

// IsDirectReference reports whether the source pins a path, URL or VCS
// commit instead of a registry version.
func (s PackageSource) IsDirectReference() bool {
	switch s.Type {
	case SourceTypeGit, SourceTypeDirectory, SourceTypeFile, SourceTypeURL:
		return true
	default:
		return false
	}
}

type PackageFile struct {
	File       string `yaml:"file"`
	Hash       string `yaml:"hash"`
	URL        string `yaml:"url,omitempty"`
	UploadTime string `yaml:"upload_time,omitempty"`
	Size       int64  `yaml:"size,omitempty"`
}

// Dependency is an edge of the lock graph. Group is only set on edges
// leaving the root project.
type Dependency struct {
	Group      string   `yaml:"group,omitempty"`
	Name       string   `yaml:"name"`
	Constraint string   `yaml:"constraint,omitempty"`
	Extras     []string `yaml:"extras,omitempty"`
	Marker     string   `yaml:"marker,omitempty"`
	Python     string   `yaml:"python,omitempty"`
	Optional   bool     `yaml:"optional,omitempty"`
	Develop    bool     `yaml:"develop,omitempty"`
	// Source is set for path, URL and VCS requirements.
	Source PackageSource `yaml:"source,omitempty"`
}

type Package struct {
	Name           string              `yaml:"name"`
	PrettyName     string              `yaml:"pretty_name,omitempty"`
	Version        string              `yaml:"version"`
	Description    string              `yaml:"description,omitempty"`
	PythonVersions string              `yaml:"python_versions,omitempty"`
	Optional       bool                `yaml:"optional,omitempty"`
	Develop        bool                `yaml:"develop,omitempty"`
	Source         PackageSource       `yaml:"source,omitempty"`
	Files          []PackageFile       `yaml:"files,omitempty"`
	Dependencies   []Dependency        `yaml:"dependencies,omitempty"`
	Extras         map[string][]string `yaml:"extras,omitempty"`
	Groups         []string            `yaml:"groups,omitempty"`
	Markers        map[string]string   `yaml:"markers,omitempty"`
	Root           bool                `yaml:"root,omitempty"`
}

// DisplayName returns the name as written by the package author when known.
func (p Package) DisplayName() string {
	if p.PrettyName != "" {
		return p.PrettyName
	}
	return p.Name
}

type DependencyGroup struct {
	Name         string       `yaml:"name"`
	Optional     bool         `yaml:"optional,omitempty"`
	Dependencies []Dependency `yaml:"dependencies,omitempty"`
}

type Repository struct {
	Name     string             `yaml:"name"`
	URL      string             `yaml:"url"`
	Priority RepositoryPriority `yaml:"priority,omitempty"`
}

type Project struct {
	Name             string              `yaml:"name"`
	Version          string              `yaml:"version,omitempty"`
	PythonConstraint string              `yaml:"python,omitempty"`
	Dir              string              `yaml:"dir,omitempty"`
	Groups           []DependencyGroup   `yaml:"groups"`
	Extras           map[string][]string `yaml:"extras,omitempty"`
	Repositories     []Repository        `yaml:"repositories,omitempty"`
}

// Group looks up a declared dependency group by normalized name.
func (p Project) Group(name string) (DependencyGroup, bool) {
	for _, group := range p.Groups {
		if group.Name == name {
			return group, true
		}
	}
	return DependencyGroup{}, false
}

// GroupNames lists declared groups, main first.
func (p Project) GroupNames() []string {
	names := make([]string, 0, len(p.Groups))
	for _, group := range p.Groups {
		names = append(names, group.Name)
	}
	return names
}

// LockGraph is the already-resolved input of one export.
type LockGraph struct {
	LockVersion string    `yaml:"lock_version,omitempty"`
	Project     Project   `yaml:"project"`
	Packages    []Package `yaml:"packages"`
}
