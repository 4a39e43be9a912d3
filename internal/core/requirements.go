package core

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"poetry-export/internal/policies"
	"poetry-export/internal/ports"
	"poetry-export/internal/shared"
	"poetry-export/internal/types"
)

var allowedHashAlgorithms = map[string]struct{}{
	"sha256": {},
	"sha384": {},
	"sha512": {},
}

var commitPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

type requirementsRenderer struct{}

func (requirementsRenderer) Format() types.ExportFormat {
	return types.FormatRequirementsTxt
}

func (requirementsRenderer) Render(ctx context.Context, env RenderEnv, packages []types.ResolvedPackage) (types.ExportDocument, error) {
	return renderText(ctx, env, packages, textLayout{
		format:     types.FormatRequirementsTxt,
		withExtras: true,
	})
}

// constraintsRenderer emits bare pins only. Direct references go through
// the configured DirectReferencePort.
type constraintsRenderer struct{}

func (constraintsRenderer) Format() types.ExportFormat {
	return types.FormatConstraintsTxt
}

func (constraintsRenderer) Render(ctx context.Context, env RenderEnv, packages []types.ResolvedPackage) (types.ExportDocument, error) {
	return renderText(ctx, env, packages, textLayout{
		format:        types.FormatConstraintsTxt,
		directRefGate: true,
	})
}

type textLayout struct {
	format        types.ExportFormat
	withExtras    bool
	directRefGate bool
}

type textLine struct {
	name string
	text string
}

func renderText(ctx context.Context, env RenderEnv, packages []types.ResolvedPackage, layout textLayout) (types.ExportDocument, error) {
	doc := types.ExportDocument{Format: layout.format}
	lines := map[string]textLine{}
	indexes := map[string]struct{}{}
	sources := policies.NewIndexPolicy(env.Project.Repositories)

	var gate ports.DirectReferencePort
	if layout.directRefGate {
		gate = env.DirectReferences
		if gate == nil {
			gate = policies.NewDirectReferencePolicy(env.Options.DirectReferences)
		}
	}

	for _, resolved := range packages {
		if gate != nil {
			keep, warning, err := gate.Admit(resolved)
			if err != nil {
				return types.ExportDocument{}, err
			}
			if warning != "" {
				log.Ctx(ctx).Warn().Str("package", resolved.Package.DisplayName()).Msg(warning)
				doc.Warnings = append(doc.Warnings, warning)
			}
			if !keep {
				continue
			}
		}

		line, err := requirementLine(env, resolved, layout.withExtras)
		if err != nil {
			return types.ExportDocument{}, err
		}
		pkg := resolved.Package
		if pkg.Source.Type == types.SourceTypeLegacy && pkg.Source.URL != "" {
			if repo, ok := sources.Lookup(pkg.Source.URL); ok {
				indexes[repo.Name] = struct{}{}
			} else {
				log.Ctx(ctx).Warn().
					Str("package", pkg.DisplayName()).
					Str("source", pkg.Source.URL).
					Msg("package source is not declared in pyproject.toml, no index line written")
			}
		}
		if env.Options.WithHashes {
			for _, hash := range packageHashes(pkg) {
				line += fmt.Sprintf(" \\\n    --hash=%s", hash)
			}
		}
		lines[line] = textLine{name: shared.NormalizePipName(pkg.Name), text: line}
		doc.Packages = append(doc.Packages, resolved)
	}

	ordered := make([]textLine, 0, len(lines))
	for _, line := range lines {
		ordered = append(ordered, line)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].name != ordered[j].name {
			return ordered[i].name < ordered[j].name
		}
		return ordered[i].text < ordered[j].text
	})
	texts := make([]string, 0, len(ordered))
	for _, line := range ordered {
		texts = append(texts, line.text)
	}
	content := strings.Join(texts, "\n") + "\n"

	if len(indexes) > 0 && env.Options.WithURLs {
		header, err := indexHeader(env, sources, indexes)
		if err != nil {
			return types.ExportDocument{}, err
		}
		if header != "" {
			content = header + "\n" + content
		}
	}
	sortResolved(doc.Packages)
	doc.Content = content
	return doc, nil
}

// requirementLine renders one package without hashes.
func requirementLine(env RenderEnv, resolved types.ResolvedPackage, withExtras bool) (string, error) {
	pkg := resolved.Package
	name := shared.NormalizePipName(pkg.Name)
	marker := ""
	if env.Options.WithMarkers && resolved.Marker != "" {
		marker = " ; " + resolved.Marker
	}

	switch pkg.Source.Type {
	case types.SourceTypeGit:
		ref, err := vcsReference(pkg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s @ %s%s", name, vcsURL(pkg.Source, ref), marker), nil
	case types.SourceTypeURL:
		return fmt.Sprintf("%s @ %s%s", name, withSubdirectory(pkg.Source.URL, pkg.Source.Subdirectory), marker), nil
	case types.SourceTypeDirectory, types.SourceTypeFile:
		uri := fileURI(absoluteSourcePath(env.Project.Dir, pkg.Source.URL))
		if pkg.Develop {
			return fmt.Sprintf("-e %s%s", uri, marker), nil
		}
		return fmt.Sprintf("%s @ %s%s", name, uri, marker), nil
	}

	if withExtras && len(resolved.Extras) > 0 {
		name += "[" + strings.Join(resolved.Extras, ",") + "]"
	}
	return fmt.Sprintf("%s==%s%s", name, pkg.Version, marker), nil
}

// vcsReference returns the immutable commit a VCS package is locked to.
// Branch and tag names are never exported.
func vcsReference(pkg types.Package) (string, error) {
	if pkg.Source.ResolvedReference != "" {
		return pkg.Source.ResolvedReference, nil
	}
	if commitPattern.MatchString(pkg.Source.Reference) {
		return pkg.Source.Reference, nil
	}
	return "", unrepresentable(pkg, "has no resolved commit for its VCS reference")
}

func vcsURL(source types.PackageSource, ref string) string {
	location := source.URL
	if strings.HasPrefix(location, "git@") {
		location = "ssh://" + strings.Replace(location, ":", "/", 1)
	}
	if !strings.HasPrefix(location, "git+") {
		location = "git+" + location
	}
	return withSubdirectory(location+"@"+ref, source.Subdirectory)
}

func withSubdirectory(location string, subdirectory string) string {
	if subdirectory == "" {
		return location
	}
	return location + "#subdirectory=" + subdirectory
}

func absoluteSourcePath(projectDir string, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(projectDir, path)
}

func fileURI(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// packageHashes returns sorted "algo:digest" values, skipping algorithms
// pip does not accept. A bare digest is sha256.
func packageHashes(pkg types.Package) []string {
	var hashes []string
	for _, file := range pkg.Files {
		if file.Hash == "" {
			continue
		}
		algorithm, digest := splitHash(file.Hash)
		if _, ok := allowedHashAlgorithms[algorithm]; !ok {
			continue
		}
		hashes = append(hashes, algorithm+":"+digest)
	}
	return shared.UniqueSorted(hashes)
}

func splitHash(value string) (string, string) {
	algorithm, digest, found := strings.Cut(value, ":")
	if !found {
		return "sha256", value
	}
	return algorithm, digest
}

// indexHeader lists each source used by an exported package, highest
// priority first. used holds repository names.
func indexHeader(env RenderEnv, policy policies.IndexPolicy, used map[string]struct{}) (string, error) {
	var builder strings.Builder
	for _, repo := range policy.Repositories {
		if _, ok := used[repo.Name]; !ok {
			continue
		}
		location := strings.TrimRight(repo.URL, "/")
		if env.Options.WithCredentials {
			location = authenticatedURL(env.Credentials, repo.Name, location)
		}
		parsed, err := url.Parse(location)
		if err != nil {
			return "", invalidSource(repo, err)
		}
		if parsed.Scheme == "http" {
			fmt.Fprintf(&builder, "--trusted-host %s\n", parsed.Host)
		}
		if policy.IsDefaultIndex(repo) {
			fmt.Fprintf(&builder, "--index-url %s\n", location)
		} else {
			fmt.Fprintf(&builder, "--extra-index-url %s\n", location)
		}
	}
	return builder.String(), nil
}

func authenticatedURL(credentials ports.CredentialPort, source string, location string) string {
	if credentials == nil {
		return location
	}
	credential, ok := credentials.Credentials(source)
	if !ok || credential.Username == "" {
		return location
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return location
	}
	if credential.Password == "" {
		parsed.User = url.User(credential.Username)
	} else {
		parsed.User = url.UserPassword(credential.Username, credential.Password)
	}
	return parsed.String()
}

func invalidSource(repo types.Repository, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid source url for %s: %s", repo.Name, repo.URL)).
		WithCause(cause)
}

func sortResolved(packages []types.ResolvedPackage) {
	sort.SliceStable(packages, func(i, j int) bool {
		left := shared.NormalizePipName(packages[i].Package.Name)
		right := shared.NormalizePipName(packages[j].Package.Name)
		if left != right {
			return left < right
		}
		return packages[i].Package.Version < packages[j].Package.Version
	})
}
