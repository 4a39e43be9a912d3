package app

import "poetry-export/internal/types"

type ExportRequest struct {
	ProjectDir string
	// GraphPath selects a YAML graph snapshot instead of ProjectDir.
	GraphPath string
	// OutputPath empty means standard output.
	OutputPath string
	Policy     types.SelectionPolicy
	Options    types.ExportOptions
}

type ExportResult struct {
	Format     types.ExportFormat
	OutputPath string
	Packages   int
	Warnings   []string
}

type InspectRequest struct {
	ProjectDir string
	GraphPath  string
}

type InspectGroupSummary struct {
	Name         string
	Optional     bool
	Dependencies int
}

type InspectExtraSummary struct {
	Name     string
	Packages []string
}

type InspectResult struct {
	ProjectName      string
	ProjectVersion   string
	PythonConstraint string
	LockVersion      string
	Groups           []InspectGroupSummary
	Extras           []InspectExtraSummary
	// Repositories are ordered by priority; PyPI is reported separately.
	Repositories []types.Repository
	PyPIActive   bool
	PackageCount int
}

type SnapshotRequest struct {
	ProjectDir string
	OutputPath string
}

type SnapshotResult struct {
	Path         string
	ProjectName  string
	PackageCount int
}
