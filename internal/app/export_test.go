package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poetry-export/internal/types"
)

func plainOptions(format types.ExportFormat) types.ExportOptions {
	options := types.DefaultExportOptions()
	options.Format = format
	options.WithHashes = false
	return options
}

func demoRequirements(projectDir string) string {
	lines := []string{
		"--extra-index-url https://pkgs.example.com/simple",
		"",
		"certifi==2023.7.22 ; " + pythonMarker,
		`colorama==0.4.6 ; sys_platform == "win32" and ` + pythonMarker,
		"idna==3.4 ; " + pythonMarker,
		"internal-tool==1.2.0 ; " + pythonMarker,
		"pysocks==1.7.1 ; " + pythonMarker,
		"requests[socks]==2.31.0 ; " + pythonMarker,
		"-e file://" + filepath.ToSlash(filepath.Join(projectDir, "libs", "shared-lib")) + " ; " + pythonMarker,
		"urllib3==2.0.7 ; " + pythonMarker,
		"vcs-lib @ git+https://github.com/example/vcs-lib.git@3f5e2a1b9c8d7e6f5a4b3c2d1e0f9a8b7c6d5e4f ; " + pythonMarker,
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestExportRequirementsToStdout(t *testing.T) {
	service, stdout := newTestService(t)
	projectDir := fixtureDir(t, "demo-app")

	result, err := service.Export(t.Context(), ExportRequest{
		ProjectDir: projectDir,
		Options:    plainOptions(types.FormatRequirementsTxt),
	})
	require.NoError(t, err)
	assert.Empty(t, result.OutputPath)
	assert.Equal(t, 9, result.Packages)
	assert.Empty(t, result.Warnings)
	if diff := cmp.Diff(demoRequirements(projectDir), stdout.String()); diff != "" {
		t.Fatalf("unexpected requirements.txt (-want +got):\n%s", diff)
	}
}

func TestExportIncludesHashesByDefault(t *testing.T) {
	service, stdout := newTestService(t)

	_, err := service.Export(t.Context(), ExportRequest{
		ProjectDir: fixtureDir(t, "demo-app"),
		Options:    types.DefaultExportOptions(),
	})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "requests[socks]==2.31.0 ; "+pythonMarker+" \\\n"+
		"    --hash=sha256:58cd2187c01e70e6e26505bca751777aa9f2ee0b7f4300988b709f44e013003f \\\n"+
		"    --hash=sha256:942c5a758f98d790eaed1a29cb6eefc7ffb0d1cf7af05c3d2791656dbd6ad1e1\n")
}

func TestExportOnlyGroup(t *testing.T) {
	service, _ := newTestService(t)

	result, err := service.Export(t.Context(), ExportRequest{
		ProjectDir: fixtureDir(t, "demo-app"),
		OutputPath: "requirements-db.txt",
		Policy:     types.SelectionPolicy{Only: []string{"db"}},
		Options:    plainOptions(types.FormatRequirementsTxt),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(service.WorkDir, "requirements-db.txt"), result.OutputPath)

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	want := "psycopg==3.1.12 ; " + pythonMarker + "\n" +
		"typing-extensions==4.8.0 ; " + pythonMarker + "\n" +
		`tzdata==2023.3 ; sys_platform == "win32" and ` + pythonMarker + "\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Fatalf("unexpected requirements.txt (-want +got):\n%s", diff)
	}
}

func TestExportUnknownGroupWritesNothing(t *testing.T) {
	service, stdout := newTestService(t)

	_, err := service.Export(t.Context(), ExportRequest{
		ProjectDir: fixtureDir(t, "demo-app"),
		OutputPath: "requirements.txt",
		Policy:     types.SelectionPolicy{Only: []string{"doesnotexist"}},
		Options:    plainOptions(types.FormatRequirementsTxt),
	})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "doesnotexist")

	_, statErr := os.Stat(filepath.Join(service.WorkDir, "requirements.txt"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, stdout.String())
}

func TestExportExtrasAndGroups(t *testing.T) {
	service, stdout := newTestService(t)

	_, err := service.Export(t.Context(), ExportRequest{
		ProjectDir: fixtureDir(t, "pep621-app"),
		Policy:     types.SelectionPolicy{With: []string{"test"}, Extras: []string{"yaml"}},
		Options:    plainOptions(types.FormatRequirementsTxt),
	})
	require.NoError(t, err)
	marker := `python_version >= "3.10"`
	want := strings.Join([]string{
		"attrs==23.1.0 ; " + marker,
		"click==8.1.7 ; " + marker,
		"pytest==7.4.3 ; " + marker,
		"pyyaml==6.0.1 ; " + marker,
		"ruff==0.1.6 ; " + marker,
		"vcs-lib @ git+https://github.com/example/vcs-lib.git@3f5e2a1b9c8d7e6f5a4b3c2d1e0f9a8b7c6d5e4f ; " + marker,
	}, "\n") + "\n"
	if diff := cmp.Diff(want, stdout.String()); diff != "" {
		t.Fatalf("unexpected requirements.txt (-want +got):\n%s", diff)
	}
}

func TestExportConstraintsOmitsDirectReferences(t *testing.T) {
	service, _ := newTestService(t)

	result, err := service.Export(t.Context(), ExportRequest{
		ProjectDir: fixtureDir(t, "demo-app"),
		OutputPath: "constraints.txt",
		Options:    plainOptions(types.FormatConstraintsTxt),
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "shared-lib is locked as a develop (editable) package")
	assert.Contains(t, result.Warnings[1], "vcs-lib is locked as a VCS reference")

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "requests==2.31.0 ; "+pythonMarker+"\n")
	assert.NotContains(t, content, "@ ")
	assert.NotContains(t, content, "-e ")
	assert.NotContains(t, content, "[socks]")
}

func TestExportConstraintsFailMode(t *testing.T) {
	service, _ := newTestService(t)
	options := plainOptions(types.FormatConstraintsTxt)
	options.DirectReferences = types.DirectReferenceFail

	_, err := service.Export(t.Context(), ExportRequest{
		ProjectDir: fixtureDir(t, "demo-app"),
		OutputPath: "constraints.txt",
		Options:    options,
	})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "unrepresentable dependency: shared-lib")

	_, statErr := os.Stat(filepath.Join(service.WorkDir, "constraints.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExportPylock(t *testing.T) {
	service, _ := newTestService(t)
	require.NoError(t, os.Mkdir(filepath.Join(service.WorkDir, "out"), 0o755))

	result, err := service.Export(t.Context(), ExportRequest{
		ProjectDir: fixtureDir(t, "demo-app"),
		OutputPath: "out/pylock.toml",
		Policy:     types.SelectionPolicy{With: []string{"dev"}},
		Options:    types.ExportOptions{Format: types.FormatPylockToml},
	})
	require.NoError(t, err)
	assert.Equal(t, types.FormatPylockToml, result.Format)

	data, err := os.ReadFile(filepath.Join(service.WorkDir, "out", "pylock.toml"))
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "lock-version = \"1.0\"\n"))
	assert.Contains(t, content, `requires-python = ">=3.9,<4.0"`)
	assert.Contains(t, content, `commit-id = "3f5e2a1b9c8d7e6f5a4b3c2d1e0f9a8b7c6d5e4f"`)
	assert.Contains(t, content, `path = "`+filepath.ToSlash(filepath.Join(fixtureDir(t, "demo-app"), "libs", "shared-lib"))+`"`)
	assert.Contains(t, content, `name = "pytest"`)
	assert.Contains(t, content, `groups = ["main", "dev"]`)
}

func TestExportFromSnapshotMatchesProject(t *testing.T) {
	service, stdout := newTestService(t)
	projectDir := fixtureDir(t, "demo-app")

	_, err := service.Snapshot(t.Context(), SnapshotRequest{ProjectDir: projectDir, OutputPath: "graph.yaml"})
	require.NoError(t, err)

	_, err = service.Export(t.Context(), ExportRequest{
		GraphPath: "graph.yaml",
		Options:   plainOptions(types.FormatRequirementsTxt),
	})
	require.NoError(t, err)
	if diff := cmp.Diff(demoRequirements(projectDir), stdout.String()); diff != "" {
		t.Fatalf("snapshot export differs from project export (-want +got):\n%s", diff)
	}
}

func TestExportErrors(t *testing.T) {
	tests := []struct {
		name string
		req  ExportRequest
		code errbuilder.ErrCode
	}{
		{
			name: "unknown format",
			req:  ExportRequest{ProjectDir: "does-not-exist", Options: types.ExportOptions{Format: "setup.cfg"}},
			code: errbuilder.CodeInvalidArgument,
		},
		{
			name: "missing project",
			req:  ExportRequest{ProjectDir: "does-not-exist", Options: types.DefaultExportOptions()},
			code: errbuilder.CodeNotFound,
		},
		{
			name: "missing snapshot",
			req:  ExportRequest{GraphPath: "missing.yaml", Options: types.DefaultExportOptions()},
			code: errbuilder.CodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestService(t)
			_, err := service.Export(t.Context(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, errbuilder.CodeOf(err))
		})
	}
}
