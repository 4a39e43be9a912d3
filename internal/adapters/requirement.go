package adapters

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"poetry-export/internal/shared"
	"poetry-export/internal/types"
)

var requirementPattern = regexp.MustCompile(`^\s*([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*(\[[^\]]*\])?\s*(.*)$`)

// parseRequirement reads a PEP 508 requirement such as
// `requests[socks] (>=2.0,<3) ; python_version >= "3.8"` or
// `pkg @ git+https://host/repo.git@v1`.
func parseRequirement(raw string) (types.Dependency, error) {
	match := requirementPattern.FindStringSubmatch(raw)
	if match == nil {
		return types.Dependency{}, invalidRequirement(raw)
	}
	dep := types.Dependency{Name: shared.NormalizePipName(match[1])}
	if match[2] != "" {
		dep.Extras = shared.NormalizeNames(strings.Split(strings.Trim(match[2], "[]"), ","))
	}
	rest := strings.TrimSpace(match[3])

	if strings.HasPrefix(rest, "@") {
		location := strings.TrimSpace(strings.TrimPrefix(rest, "@"))
		if idx := strings.Index(location, " ;"); idx >= 0 {
			dep.Marker = strings.TrimSpace(location[idx+2:])
			location = strings.TrimSpace(location[:idx])
		}
		source, err := sourceFromURL(location)
		if err != nil {
			return types.Dependency{}, invalidRequirement(raw)
		}
		dep.Source = source
		return dep, nil
	}

	if spec, marker, found := strings.Cut(rest, ";"); found {
		rest = spec
		dep.Marker = strings.TrimSpace(marker)
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
	dep.Constraint = strings.TrimSpace(rest)
	return dep, nil
}

// requirementName extracts only the distribution name, as used by extras
// tables that list "name (>=1.0)" or "name[extra] ; marker".
func requirementName(raw string) string {
	match := requirementPattern.FindStringSubmatch(raw)
	if match == nil {
		return shared.NormalizePipName(raw)
	}
	return shared.NormalizePipName(match[1])
}

// sourceFromURL classifies a direct reference URL.
func sourceFromURL(location string) (types.PackageSource, error) {
	if strings.HasPrefix(location, "git+") {
		trimmed := strings.TrimPrefix(location, "git+")
		subdirectory := ""
		if base, fragment, found := strings.Cut(trimmed, "#"); found {
			trimmed = base
			values, err := url.ParseQuery(fragment)
			if err == nil {
				subdirectory = values.Get("subdirectory")
			}
		}
		reference := ""
		if idx := strings.LastIndex(trimmed, "@"); idx > strings.Index(trimmed, "://")+2 {
			if !strings.Contains(trimmed[idx:], "/") {
				reference = trimmed[idx+1:]
				trimmed = trimmed[:idx]
			}
		}
		return types.PackageSource{
			Type:         types.SourceTypeGit,
			URL:          trimmed,
			Reference:    reference,
			Subdirectory: subdirectory,
		}, nil
	}
	parsed, err := url.Parse(location)
	if err != nil || parsed.Scheme == "" {
		return types.PackageSource{}, fmt.Errorf("unsupported direct reference %q", location)
	}
	if parsed.Scheme == "file" {
		return types.PackageSource{Type: localSourceType(parsed.Path), URL: parsed.Path}, nil
	}
	return types.PackageSource{Type: types.SourceTypeURL, URL: location}, nil
}

func localSourceType(path string) types.SourceType {
	lower := strings.ToLower(path)
	for _, suffix := range []string{".whl", ".tar.gz", ".zip", ".tar.bz2", ".tgz"} {
		if strings.HasSuffix(lower, suffix) {
			return types.SourceTypeFile
		}
	}
	return types.SourceTypeDirectory
}

func invalidRequirement(raw string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid requirement: %s", raw))
}
