package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"poetry-export/internal/shared"
	"poetry-export/internal/types"
)

// Walker computes the part of a lock graph reachable from the root project
// through the active groups and extras.
type Walker struct {
	graph  types.LockGraph
	byName map[string][]types.Package
	root   string
}

type walkRequirement struct {
	dep        types.Dependency
	constraint VersionConstraint
	marker     Marker
	features   []string
}

type walkEntry struct {
	pkg    types.Package
	marker Marker
	extras []string
}

func NewWalker(graph types.LockGraph) Walker {
	cache := newVersionCache()
	byName := map[string][]types.Package{}
	for _, pkg := range graph.Packages {
		if pkg.Root {
			continue
		}
		name := shared.NormalizePipName(pkg.Name)
		byName[name] = append(byName[name], pkg)
	}
	for name := range byName {
		sortPackagesByVersionDesc(byName[name], cache)
	}
	return Walker{
		graph:  graph,
		byName: byName,
		root:   shared.NormalizePipName(graph.Project.Name),
	}
}

// Walk returns one entry per reachable locked package, in discovery order.
// A package reached along several paths carries the union of their
// markers and requested extras.
func (w Walker) Walk(ctx context.Context, selection types.Selection) ([]types.ResolvedPackage, error) {
	pythonMarker, err := projectPythonMarker(w.graph.Project)
	if err != nil {
		return nil, err
	}
	extraPackages := w.extraPackageNames(selection)

	queue, err := w.seed(ctx, selection, pythonMarker, extraPackages)
	if err != nil {
		return nil, err
	}

	entries := map[string]*walkEntry{}
	var order []string
	for len(queue) > 0 {
		req := queue[0]
		queue = queue[1:]

		if shared.NormalizePipName(req.dep.Name) == w.root {
			continue
		}
		locked, err := w.lockedPackage(ctx, req, entries)
		if err != nil {
			return nil, err
		}
		key := packageKey(locked)
		entry, seen := entries[key]
		if seen {
			newFeatures := missingValues(entry.extras, req.features)
			if entry.marker.Covers(req.marker) && len(newFeatures) == 0 {
				continue
			}
			entry.marker = entry.marker.Union(req.marker)
			entry.extras = shared.UniqueSorted(append(entry.extras, newFeatures...))
		} else {
			entry = &walkEntry{
				pkg:    locked,
				marker: req.marker,
				extras: shared.UniqueSorted(req.features),
			}
			entries[key] = entry
			order = append(order, key)
		}

		children, err := w.children(entry)
		if err != nil {
			return nil, err
		}
		queue = append(queue, children...)
	}

	resolved := make([]types.ResolvedPackage, 0, len(order))
	for _, key := range order {
		entry := entries[key]
		marker := ""
		if !entry.marker.IsAny() {
			marker = entry.marker.String()
		}
		resolved = append(resolved, types.ResolvedPackage{
			Package: entry.pkg,
			Marker:  marker,
			Extras:  entry.extras,
		})
	}
	log.Ctx(ctx).Debug().Int("packages", len(resolved)).Msg("dependency walk finished")
	return resolved, nil
}

func (w Walker) seed(ctx context.Context, selection types.Selection, pythonMarker Marker, extraPackages map[string]struct{}) ([]walkRequirement, error) {
	var queue []walkRequirement
	for _, groupName := range selection.Groups {
		group, ok := w.graph.Project.Group(groupName)
		if !ok {
			continue
		}
		for _, dep := range group.Dependencies {
			name := shared.NormalizePipName(dep.Name)
			if dep.Optional {
				if _, enabled := extraPackages[name]; !enabled {
					log.Ctx(ctx).Debug().Str("package", name).Msg("optional dependency not requested by any extra")
					continue
				}
			}
			req, ok, err := newWalkRequirement(dep, pythonMarker, selection.Extras)
			if err != nil {
				return nil, err
			}
			if ok {
				queue = append(queue, req)
			}
		}
	}
	return queue, nil
}

func (w Walker) children(entry *walkEntry) ([]walkRequirement, error) {
	parentMarker := entry.marker.WithoutExtras()
	var out []walkRequirement
	for _, dep := range entry.pkg.Dependencies {
		if dep.Optional && !enabledByFeatures(entry.pkg, dep.Name, entry.extras) {
			continue
		}
		req, ok, err := newWalkRequirement(dep, parentMarker, entry.extras)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, req)
		}
	}
	return out, nil
}

// newWalkRequirement applies the parent marker and the dependency's own
// python restriction. ok is false when the edge can never apply.
func newWalkRequirement(dep types.Dependency, parent Marker, features []string) (walkRequirement, bool, error) {
	marker, err := ParseMarker(dep.Marker)
	if err != nil {
		return walkRequirement{}, false, err
	}
	marker = marker.ReduceExtras(features)
	if dep.Python != "" {
		python, err := ParseVersionConstraint(dep.Python)
		if err != nil {
			return walkRequirement{}, false, err
		}
		pythonMarker, err := python.ToMarker()
		if err != nil {
			return walkRequirement{}, false, err
		}
		marker = marker.Intersect(pythonMarker)
	}
	marker = marker.Intersect(parent)
	if marker.IsEmpty() {
		return walkRequirement{}, false, nil
	}
	constraint, err := ParseVersionConstraint(dep.Constraint)
	if err != nil {
		log.Debug().Str("package", dep.Name).Str("constraint", dep.Constraint).Msg("unparseable constraint treated as any version")
		constraint = VersionConstraint{Raw: dep.Constraint}
	}
	return walkRequirement{
		dep:        dep,
		constraint: constraint,
		marker:     marker,
		features:   shared.NormalizeNames(dep.Extras),
	}, true, nil
}

// lockedPackage picks the locked package satisfying req. Candidates must
// allow the version constraint and support every interpreter version the
// requirement's marker admits. A package that was already chosen for an
// overlapping environment wins; otherwise the highest version is used.
func (w Walker) lockedPackage(ctx context.Context, req walkRequirement, entries map[string]*walkEntry) (types.Package, error) {
	name := shared.NormalizePipName(req.dep.Name)
	pythonRanges := markerPythonRanges(req.marker)
	var allowed, candidates []types.Package
	for _, pkg := range w.byName[name] {
		if !req.dep.Source.IsDirectReference() && !req.constraint.Allows(pkg.Version) {
			continue
		}
		allowed = append(allowed, pkg)
		if supportsPython(pkg, pythonRanges) {
			candidates = append(candidates, pkg)
		}
	}
	if len(candidates) == 0 && len(allowed) > 0 {
		// Locks written by older tools may record python-versions narrower
		// than the project range; fall back to the version constraint alone.
		log.Ctx(ctx).Debug().
			Str("package", name).
			Str("marker", req.marker.String()).
			Msg("no locked version supports the full python range")
		candidates = allowed
	}
	for _, pkg := range candidates {
		entry, ok := entries[packageKey(pkg)]
		if ok && !entry.marker.Intersect(req.marker).IsEmpty() {
			return pkg, nil
		}
	}
	if len(candidates) == 0 {
		return types.Package{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("dependency walk failed at %s", describeDependency(req.dep)))
	}
	return candidates[0], nil
}

// extraPackageNames is the transitive set of package names pulled in by
// the active extras of the root project.
func (w Walker) extraPackageNames(selection types.Selection) map[string]struct{} {
	names := map[string]struct{}{}
	var stack []string
	for extra, members := range w.graph.Project.Extras {
		if !selection.HasExtra(shared.NormalizePipName(extra)) {
			continue
		}
		for _, member := range members {
			stack = append(stack, shared.NormalizePipName(member))
		}
	}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := names[name]; ok {
			continue
		}
		names[name] = struct{}{}
		for _, pkg := range w.byName[name] {
			for _, dep := range pkg.Dependencies {
				stack = append(stack, shared.NormalizePipName(dep.Name))
			}
		}
	}
	return names
}

func projectPythonMarker(project types.Project) (Marker, error) {
	constraint, err := ParseVersionConstraint(project.PythonConstraint)
	if err != nil {
		return Marker{}, err
	}
	return constraint.ToMarker()
}

func enabledByFeatures(pkg types.Package, depName string, features []string) bool {
	name := shared.NormalizePipName(depName)
	for extra, members := range pkg.Extras {
		if !containsValue(features, shared.NormalizePipName(extra)) {
			continue
		}
		for _, member := range members {
			if shared.NormalizePipName(member) == name {
				return true
			}
		}
	}
	return false
}

func packageKey(pkg types.Package) string {
	return fmt.Sprintf("%s==%s@%s", shared.NormalizePipName(pkg.Name), pkg.Version, pkg.Source.URL)
}

func describeDependency(dep types.Dependency) string {
	if dep.Constraint == "" {
		return dep.Name
	}
	return fmt.Sprintf("%s (%s)", dep.Name, dep.Constraint)
}

func missingValues(existing []string, incoming []string) []string {
	var out []string
	for _, value := range incoming {
		if !containsValue(existing, value) && !containsValue(out, value) {
			out = append(out, value)
		}
	}
	sort.Strings(out)
	return out
}

func containsValue(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
