package core

import (
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poetry-export/internal/types"
)

func pylockEnv(python string) RenderEnv {
	return RenderEnv{
		Project:   types.Project{Name: "demo", Dir: "/work/project", PythonConstraint: python},
		Selection: types.Selection{Groups: []string{"dev", "main"}, Extras: []string{"db"}},
		Options:   types.DefaultExportOptions(),
		OutputDir: "/work/project",
	}
}

func decodePylock(t *testing.T, content string) types.PylockDocument {
	t.Helper()
	var lock types.PylockDocument
	_, err := toml.Decode(content, &lock)
	require.NoError(t, err)
	return lock
}

func TestPylockDocument(t *testing.T) {
	packages := []types.ResolvedPackage{
		{
			Package: types.Package{
				Name:           "requests",
				Version:        "2.31.0",
				PythonVersions: ">=3.7",
				Files: []types.PackageFile{
					{
						File:       "requests-2.31.0-py3-none-any.whl",
						Hash:       "sha256:aaa",
						URL:        "https://files.example.com/requests-2.31.0-py3-none-any.whl",
						UploadTime: "2023-05-22T15:12:42.313790Z",
						Size:       62574,
					},
					{File: "requests-2.31.0.tar.gz", Hash: "sha256:bbb"},
				},
			},
			Marker: `python_version >= "3.8"`,
		},
		{Package: types.Package{
			Name:    "lib",
			Version: "0.3.0",
			Source: types.PackageSource{
				Type:              types.SourceTypeGit,
				URL:               "https://github.com/org/lib.git",
				Reference:         "main",
				ResolvedReference: "abc123",
			},
		}},
		{Package: types.Package{
			Name:    "shared-lib",
			Version: "0.1.0",
			Develop: true,
			Source:  types.PackageSource{Type: types.SourceTypeDirectory, URL: "libs/shared"},
		}},
	}

	doc := render(t, types.FormatPylockToml, pylockEnv("^3.8"), packages...)
	assert.True(t, strings.HasPrefix(doc.Content, "lock-version = \"1.0\"\n"), doc.Content)

	lock := decodePylock(t, doc.Content)
	assert.Equal(t, "1.0", lock.LockVersion)
	assert.Equal(t, "poetry-export", lock.CreatedBy)
	assert.Equal(t, ">=3.8,<4.0", lock.RequiresPython)
	assert.Equal(t, []string{`python_version >= "3.8" and python_version < "4.0"`}, lock.Environments)
	if diff := cmp.Diff(types.PylockToolSection{Groups: []string{"main", "dev"}, Extras: []string{"db"}}, lock.Tool.Export); diff != "" {
		t.Fatalf("unexpected tool section (-want +got):\n%s", diff)
	}

	require.Len(t, lock.Packages, 3)
	var names []string
	for _, pkg := range lock.Packages {
		names = append(names, pkg.Name)
	}
	if diff := cmp.Diff([]string{"lib", "requests", "shared-lib"}, names); diff != "" {
		t.Fatalf("unexpected package order (-want +got):\n%s", diff)
	}

	vcs := lock.Packages[0]
	require.NotNil(t, vcs.VCS)
	assert.Equal(t, "abc123", vcs.VCS.CommitID)
	assert.Equal(t, "main", vcs.VCS.RequestedRevision)
	assert.Equal(t, "git", vcs.VCS.Type)

	requests := lock.Packages[1]
	assert.Equal(t, "2.31.0", requests.Version)
	assert.Equal(t, `python_version >= "3.8"`, requests.Marker)
	assert.Equal(t, ">=3.7", requests.RequiresPython)
	assert.Equal(t, "https://pypi.org/simple", requests.Index)
	require.NotNil(t, requests.Sdist)
	assert.Equal(t, "requests-2.31.0.tar.gz", requests.Sdist.Name)
	assert.Equal(t, map[string]string{"sha256": "bbb"}, requests.Sdist.Hashes)
	require.Len(t, requests.Wheels, 1)
	assert.Equal(t, "https://files.example.com/requests-2.31.0-py3-none-any.whl", requests.Wheels[0].URL)
	assert.Equal(t, int64(62574), requests.Wheels[0].Size)
	require.NotNil(t, requests.Wheels[0].UploadTime)
	assert.Equal(t, 2023, requests.Wheels[0].UploadTime.Year())

	directory := lock.Packages[2]
	assert.Empty(t, directory.Version)
	require.NotNil(t, directory.Directory)
	assert.Equal(t, "libs/shared", directory.Directory.Path)
	assert.True(t, directory.Directory.Editable)
}

func TestPylockEmptyExport(t *testing.T) {
	doc := render(t, types.FormatPylockToml, pylockEnv("*"))
	lock := decodePylock(t, doc.Content)
	assert.Empty(t, lock.Packages)
	assert.Empty(t, lock.RequiresPython)
	assert.Empty(t, lock.Environments)
	assert.Contains(t, doc.Content, "packages = []")
}

func TestPylockCommentsDisjunctiveRequiresPython(t *testing.T) {
	doc := render(t, types.FormatPylockToml, pylockEnv(">=3.8,<3.9 || >=3.10"))
	assert.Contains(t, doc.Content, "\n# requires-python = \">=3.8,<3.9 || >=3.10\"\n")

	lock := decodePylock(t, doc.Content)
	assert.Empty(t, lock.RequiresPython)
	assert.Equal(t, []string{`python_version >= "3.8" and python_version < "3.9" or python_version >= "3.10"`}, lock.Environments)
}

func TestPylockPathsOutsideOutputDir(t *testing.T) {
	env := pylockEnv("*")
	env.OutputDir = "/work/project/dist"
	doc := render(t, types.FormatPylockToml, env, types.ResolvedPackage{Package: types.Package{
		Name:   "wheel-file",
		Files:  []types.PackageFile{{File: "wheel_file-1.0-py3-none-any.whl", Hash: "sha256:ccc"}},
		Source: types.PackageSource{Type: types.SourceTypeFile, URL: "wheels/wheel_file-1.0-py3-none-any.whl"},
	}})

	lock := decodePylock(t, doc.Content)
	require.Len(t, lock.Packages, 1)
	require.NotNil(t, lock.Packages[0].Archive)
	assert.Equal(t, "/work/project/wheels/wheel_file-1.0-py3-none-any.whl", lock.Packages[0].Archive.Path)
	assert.Equal(t, map[string]string{"sha256": "ccc"}, lock.Packages[0].Archive.Hashes)
}

func TestPylockURLNeedsSingleFile(t *testing.T) {
	renderer, err := RendererFor(types.FormatPylockToml)
	require.NoError(t, err)
	_, err = renderer.Render(t.Context(), pylockEnv("*"), []types.ResolvedPackage{{Package: types.Package{
		Name:   "remote",
		Source: types.PackageSource{Type: types.SourceTypeURL, URL: "https://example.com/remote.tar.gz"},
	}}})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "unrepresentable dependency: remote must lock exactly one file")
}
