package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"poetry-export/internal/shared"
	"poetry-export/internal/types"
)

// SelectionResolver turns a SelectionPolicy into the concrete set of
// active groups and extras for a project.
type SelectionResolver struct{}

func NewSelectionResolver() SelectionResolver {
	return SelectionResolver{}
}

func (r SelectionResolver) Resolve(ctx context.Context, project types.Project, policy types.SelectionPolicy) (types.Selection, error) {
	with := shared.NormalizeNames(policy.With)
	without := shared.NormalizeNames(policy.Without)
	only := shared.NormalizeNames(policy.Only)
	extras := shared.NormalizeNames(policy.Extras)

	if policy.AllGroups && (len(with) > 0 || len(without) > 0 || len(only) > 0 || policy.Dev || policy.DefaultOnly) {
		return types.Selection{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cannot combine --with, --without or --only with --all-groups")
	}
	if policy.AllExtras && len(extras) > 0 {
		return types.Selection{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cannot combine --extras with --all-extras")
	}
	if policy.DefaultOnly {
		log.Ctx(ctx).Warn().Msg("--default is deprecated, use --only main instead")
		only = appendMissing(only, types.MainGroup)
	}
	if policy.Dev {
		log.Ctx(ctx).Warn().Msg("--dev is deprecated, use --with dev instead")
		with = appendMissing(with, "dev")
	}

	known := map[string]struct{}{types.MainGroup: {}}
	for _, name := range project.GroupNames() {
		known[name] = struct{}{}
	}
	if err := checkGroupsExist(known, map[string][]string{
		"--with":    with,
		"--without": without,
		"--only":    only,
	}); err != nil {
		return types.Selection{}, err
	}

	var groups []string
	switch {
	case policy.AllGroups:
		for name := range known {
			groups = append(groups, name)
		}
	case len(only) > 0:
		groups = append(groups, only...)
	default:
		excluded := map[string]struct{}{}
		for _, name := range without {
			excluded[name] = struct{}{}
		}
		for _, name := range appendMissing([]string{types.MainGroup}, with...) {
			if _, skip := excluded[name]; !skip {
				groups = append(groups, name)
			}
		}
	}

	activeExtras, err := resolveExtras(project, extras, policy.AllExtras)
	if err != nil {
		return types.Selection{}, err
	}

	selection := types.Selection{
		Groups: orderGroups(groups),
		Extras: activeExtras,
	}
	log.Ctx(ctx).Debug().
		Strs("groups", selection.Groups).
		Strs("extras", selection.Extras).
		Msg("selection resolved")
	return selection, nil
}

func resolveExtras(project types.Project, requested []string, all bool) ([]string, error) {
	declared := map[string]struct{}{}
	for name := range project.Extras {
		declared[shared.NormalizePipName(name)] = struct{}{}
	}
	if all {
		out := make([]string, 0, len(declared))
		for name := range declared {
			out = append(out, name)
		}
		sort.Strings(out)
		return out, nil
	}
	var missing []string
	for _, name := range requested {
		if _, ok := declared[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("extra %s is not specified", shared.QuoteList(missing)))
	}
	return shared.UniqueSorted(requested), nil
}

func checkGroupsExist(known map[string]struct{}, requested map[string][]string) error {
	var problems []string
	for _, flag := range []string{"--with", "--without", "--only"} {
		var missing []string
		for _, name := range requested[flag] {
			if _, ok := known[name]; !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			problems = append(problems, fmt.Sprintf("%s (via %s)", strings.Join(missing, ", "), flag))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("group(s) not found: %s", strings.Join(problems, ", ")))
}

// orderGroups puts main first and sorts the rest.
func orderGroups(groups []string) []string {
	out := shared.UniqueSorted(groups)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i] == types.MainGroup && out[j] != types.MainGroup
	})
	return out
}

func appendMissing(values []string, extra ...string) []string {
	out := append([]string(nil), values...)
	for _, candidate := range extra {
		found := false
		for _, value := range out {
			if value == candidate {
				found = true
				break
			}
		}
		if !found {
			out = append(out, candidate)
		}
	}
	return out
}
