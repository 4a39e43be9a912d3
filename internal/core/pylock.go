package core

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"poetry-export/internal/shared"
	"poetry-export/internal/types"
)

const (
	pylockVersion = "1.0"
	pylockCreator = "poetry-export"
	defaultIndex  = "https://pypi.org/simple"
)

type pylockRenderer struct{}

func (pylockRenderer) Format() types.ExportFormat {
	return types.FormatPylockToml
}

func (pylockRenderer) Render(ctx context.Context, env RenderEnv, packages []types.ResolvedPackage) (types.ExportDocument, error) {
	lock := types.PylockDocument{
		LockVersion: pylockVersion,
		CreatedBy:   pylockCreator,
		Packages:    []types.PylockPackage{},
		Tool: types.PylockTool{Export: types.PylockToolSection{
			Groups: append([]string{}, orderGroups(env.Selection.Groups)...),
			Extras: append([]string{}, shared.UniqueSorted(env.Selection.Extras)...),
		}},
	}

	python := strings.TrimSpace(env.Project.PythonConstraint)
	if python != "" && python != "*" {
		constraint, err := ParseVersionConstraint(python)
		if err != nil {
			return types.ExportDocument{}, err
		}
		marker, err := constraint.ToMarker()
		if err != nil {
			return types.ExportDocument{}, err
		}
		if !marker.IsAny() {
			lock.Environments = []string{marker.String()}
		}
		lock.RequiresPython = constraint.String()
	}

	ordered := append([]types.ResolvedPackage(nil), packages...)
	sortResolved(ordered)
	for _, resolved := range ordered {
		entry, err := pylockPackage(env, resolved)
		if err != nil {
			return types.ExportDocument{}, err
		}
		lock.Packages = append(lock.Packages, entry)
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	encoder.Indent = ""
	if err := encoder.Encode(lock); err != nil {
		return types.ExportDocument{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode pylock.toml").
			WithCause(err)
	}
	log.Ctx(ctx).Debug().Int("packages", len(lock.Packages)).Msg("pylock.toml encoded")

	return types.ExportDocument{
		Format:   types.FormatPylockToml,
		Content:  commentDisjunctiveRequiresPython(buf.String()),
		Packages: ordered,
	}, nil
}

func pylockPackage(env RenderEnv, resolved types.ResolvedPackage) (types.PylockPackage, error) {
	pkg := resolved.Package
	entry := types.PylockPackage{
		Name:    shared.NormalizePipName(pkg.Name),
		Version: pkg.Version,
		Marker:  resolved.Marker,
	}
	if python := strings.TrimSpace(pkg.PythonVersions); python != "" && python != "*" {
		entry.RequiresPython = python
	}

	switch pkg.Source.Type {
	case types.SourceTypeGit:
		commit, err := vcsReference(pkg)
		if err != nil {
			return types.PylockPackage{}, err
		}
		entry.VCS = &types.PylockVCS{
			Type:              "git",
			URL:               pkg.Source.URL,
			RequestedRevision: pkg.Source.Reference,
			CommitID:          commit,
			Subdirectory:      pkg.Source.Subdirectory,
		}
	case types.SourceTypeDirectory:
		// Directory packages carry no version.
		entry.Version = ""
		entry.Directory = &types.PylockDirectory{
			Path:     outputRelativePath(env, pkg.Source.URL),
			Editable: pkg.Develop,
		}
	case types.SourceTypeFile:
		if len(pkg.Files) != 1 {
			return types.PylockPackage{}, unrepresentable(pkg, "must lock exactly one file")
		}
		archive := archiveEntry(pkg.Files[0], false)
		archive.Path = outputRelativePath(env, pkg.Source.URL)
		archive.Subdirectory = pkg.Source.Subdirectory
		entry.Archive = &archive
	case types.SourceTypeURL:
		if len(pkg.Files) != 1 {
			return types.PylockPackage{}, unrepresentable(pkg, "must lock exactly one file")
		}
		archive := archiveEntry(pkg.Files[0], false)
		archive.URL = pkg.Source.URL
		archive.Subdirectory = pkg.Source.Subdirectory
		entry.Archive = &archive
	default:
		entry.Index = defaultIndex
		if pkg.Source.URL != "" {
			entry.Index = pkg.Source.URL
		}
		for _, file := range pkg.Files {
			archive := archiveEntry(file, true)
			if strings.HasSuffix(file.File, ".whl") {
				entry.Wheels = append(entry.Wheels, archive)
				continue
			}
			if entry.Sdist == nil {
				entry.Sdist = &archive
			}
		}
	}
	return entry, nil
}

// archiveEntry converts a locked file. Index artifacts also carry the
// file name and the metadata recorded in the lock.
func archiveEntry(file types.PackageFile, fromIndex bool) types.PylockArchive {
	algorithm, digest := splitHash(file.Hash)
	archive := types.PylockArchive{
		Hashes: map[string]string{algorithm: digest},
	}
	if !fromIndex {
		return archive
	}
	archive.Name = file.File
	archive.URL = file.URL
	archive.Size = file.Size
	if file.UploadTime != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, file.UploadTime); err == nil {
			utc := parsed.UTC()
			archive.UploadTime = &utc
		}
	}
	return archive
}

// outputRelativePath expresses a local source path relative to the
// directory the document is written to, or absolute when it lies outside.
func outputRelativePath(env RenderEnv, source string) string {
	path := absoluteSourcePath(env.Project.Dir, source)
	if env.OutputDir == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(env.OutputDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// commentDisjunctiveRequiresPython comments out requires-python values
// joined with "||": other installers cannot parse them and the
// environment markers already carry the same restriction.
func commentDisjunctiveRequiresPython(content string) string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "requires-python = ") && strings.Contains(line, "||") {
			lines[i] = "# " + line
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
