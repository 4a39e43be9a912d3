package types

import "time"

// ResolvedPackage is one entry of the filtered export set.
type ResolvedPackage struct {
	Package Package
	// Marker is the normalized union of every path the package was
	// reached through. Empty means unconditional.
	Marker string
	Extras []string
}

type ExportDocument struct {
	Format   ExportFormat
	Content  string
	Packages []ResolvedPackage
	Warnings []string
}

type PylockDocument struct {
	LockVersion    string          `toml:"lock-version"`
	Environments   []string        `toml:"environments,omitempty"`
	RequiresPython string          `toml:"requires-python,omitempty"`
	CreatedBy      string          `toml:"created-by"`
	Packages       []PylockPackage `toml:"packages"`
	Tool           PylockTool      `toml:"tool"`
}

type PylockPackage struct {
	Name           string           `toml:"name"`
	Version        string           `toml:"version,omitempty"`
	Marker         string           `toml:"marker,omitempty"`
	RequiresPython string           `toml:"requires-python,omitempty"`
	Index          string           `toml:"index,omitempty"`
	VCS            *PylockVCS       `toml:"vcs,omitempty"`
	Directory      *PylockDirectory `toml:"directory,omitempty"`
	Archive        *PylockArchive   `toml:"archive,omitempty"`
	Sdist          *PylockArchive   `toml:"sdist,omitempty"`
	Wheels         []PylockArchive  `toml:"wheels,omitempty"`
}

type PylockVCS struct {
	Type              string `toml:"type"`
	URL               string `toml:"url"`
	RequestedRevision string `toml:"requested-revision,omitempty"`
	CommitID          string `toml:"commit-id"`
	Subdirectory      string `toml:"subdirectory,omitempty"`
}

type PylockDirectory struct {
	Path     string `toml:"path"`
	Editable bool   `toml:"editable,omitempty"`
}

type PylockArchive struct {
	Name         string            `toml:"name,omitempty"`
	URL          string            `toml:"url,omitempty"`
	Path         string            `toml:"path,omitempty"`
	UploadTime   *time.Time        `toml:"upload-time,omitempty"`
	Size         int64             `toml:"size,omitempty,omitzero"`
	Hashes       map[string]string `toml:"hashes"`
	Subdirectory string            `toml:"subdirectory,omitempty"`
}

type PylockTool struct {
	Export PylockToolSection `toml:"poetry-export"`
}

type PylockToolSection struct {
	Groups []string `toml:"groups"`
	Extras []string `toml:"extras"`
}
