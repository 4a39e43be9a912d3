package types

type ExportFormat string

const (
	FormatRequirementsTxt ExportFormat = "requirements.txt"
	FormatConstraintsTxt  ExportFormat = "constraints.txt"
	FormatPylockToml      ExportFormat = "pylock.toml"
)

// ExportFormats lists the supported formats in help-text order.
var ExportFormats = []ExportFormat{
	FormatRequirementsTxt,
	FormatConstraintsTxt,
	FormatPylockToml,
}

type SourceType string

const (
	SourceTypeRegistry  SourceType = ""
	SourceTypeLegacy    SourceType = "legacy"
	SourceTypeGit       SourceType = "git"
	SourceTypeDirectory SourceType = "directory"
	SourceTypeFile      SourceType = "file"
	SourceTypeURL       SourceType = "url"
)

type RepositoryPriority string

const (
	PriorityPrimary      RepositoryPriority = "primary"
	PrioritySupplemental RepositoryPriority = "supplemental"
	PriorityExplicit     RepositoryPriority = "explicit"
)

// DirectReferenceMode decides what constraints.txt does with packages
// that can only be expressed as direct references.
type DirectReferenceMode string

const (
	DirectReferenceOmit DirectReferenceMode = "omit"
	DirectReferenceFail DirectReferenceMode = "fail"
)
