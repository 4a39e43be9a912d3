package core

import (
	"sort"

	pep440 "github.com/aquasecurity/go-pep440-version"

	"poetry-export/internal/types"
)

// versionCache memoizes parsed PEP 440 versions to avoid repeated parsing
// while ordering locked candidates.
type versionCache struct {
	pep map[string]pep440.Version
	bad map[string]struct{}
}

func newVersionCache() *versionCache {
	return &versionCache{
		pep: map[string]pep440.Version{},
		bad: map[string]struct{}{},
	}
}

// pepVersion returns a parsed PEP 440 version, caching the result.
func (c *versionCache) pepVersion(value string) (pep440.Version, bool) {
	if parsed, ok := c.pep[value]; ok {
		return parsed, true
	}
	if _, ok := c.bad[value]; ok {
		return pep440.Version{}, false
	}
	parsed, err := pep440.Parse(value)
	if err != nil {
		c.bad[value] = struct{}{}
		return pep440.Version{}, false
	}
	c.pep[value] = parsed
	return parsed, true
}

// compare returns -1, 0, or 1 comparing two version strings. Unparseable
// versions sort below valid ones and compare lexically among themselves.
func (c *versionCache) compare(a string, b string) int {
	v1, ok1 := c.pepVersion(a)
	v2, ok2 := c.pepVersion(b)
	switch {
	case ok1 && ok2:
		return v1.Compare(v2)
	case ok1:
		return 1
	case ok2:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// sortPackagesByVersionDesc orders same-named locked packages so that the
// highest version is preferred, as the host does when several versions of
// one package are locked for different environments.
func sortPackagesByVersionDesc(packages []types.Package, cache *versionCache) {
	sort.SliceStable(packages, func(i, j int) bool {
		return cache.compare(packages[i].Version, packages[j].Version) > 0
	})
}
