package policies

import (
	"strings"

	"poetry-export/internal/types"
)

// PyPIName is the name Poetry reserves for the default index.
const PyPIName = "pypi"

// IndexPolicy orders package sources the way the package manager
// consults them: primary sources in declaration order, then PyPI when it
// is active, then supplemental and explicit sources.
type IndexPolicy struct {
	Repositories []types.Repository
	pypiActive   bool
}

func NewIndexPolicy(repositories []types.Repository) IndexPolicy {
	var primary, supplemental, explicit []types.Repository
	declaredPyPI := false
	for _, repo := range repositories {
		if strings.EqualFold(repo.Name, PyPIName) {
			declaredPyPI = true
			continue
		}
		switch repo.Priority {
		case types.PrioritySupplemental:
			supplemental = append(supplemental, repo)
		case types.PriorityExplicit:
			explicit = append(explicit, repo)
		default:
			primary = append(primary, repo)
		}
	}
	policy := IndexPolicy{pypiActive: declaredPyPI || len(primary) == 0}
	policy.Repositories = append(policy.Repositories, primary...)
	policy.Repositories = append(policy.Repositories, supplemental...)
	policy.Repositories = append(policy.Repositories, explicit...)
	return policy
}

// PyPIActive reports whether the default index stays enabled.
func (p IndexPolicy) PyPIActive() bool {
	return p.pypiActive
}

// IsDefaultIndex reports whether repo replaces the default index, i.e.
// it is the highest priority source and PyPI is deactivated.
func (p IndexPolicy) IsDefaultIndex(repo types.Repository) bool {
	if p.pypiActive || len(p.Repositories) == 0 {
		return false
	}
	return p.Repositories[0].Name == repo.Name
}

// Lookup finds a declared source by URL, ignoring trailing slashes.
func (p IndexPolicy) Lookup(url string) (types.Repository, bool) {
	target := strings.TrimRight(url, "/")
	for _, repo := range p.Repositories {
		if strings.TrimRight(repo.URL, "/") == target {
			return repo, true
		}
	}
	return types.Repository{}, false
}
