package types

// SelectionPolicy is the user's group and extras request.
type SelectionPolicy struct {
	With      []string
	Without   []string
	Only      []string
	Extras    []string
	AllExtras bool
	AllGroups bool
	// Deprecated switches kept for command-line compatibility.
	Dev         bool
	DefaultOnly bool
}

// Selection is a validated SelectionPolicy.
type Selection struct {
	Groups []string
	Extras []string
}

func (s Selection) HasExtra(name string) bool {
	for _, extra := range s.Extras {
		if extra == name {
			return true
		}
	}
	return false
}

type ExportOptions struct {
	Format           ExportFormat
	WithHashes       bool
	WithCredentials  bool
	WithURLs         bool
	WithMarkers      bool
	DirectReferences DirectReferenceMode
}

// DefaultExportOptions mirrors the command-line defaults.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format:           FormatRequirementsTxt,
		WithHashes:       true,
		WithURLs:         true,
		WithMarkers:      true,
		DirectReferences: DirectReferenceOmit,
	}
}

// Credential is an HTTP basic username/password pair for a source.
type Credential struct {
	Username string
	Password string
}
