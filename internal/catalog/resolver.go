package catalog

import (
	"sort"
)

// Policy selects how a requested plugin set is completed or validated.
type Policy string

const (
	// PolicyAutoResolve transitively adds missing hard dependencies plus the
	// mandatory core plugins.
	PolicyAutoResolve Policy = "auto"
	// PolicyAutoResolveRecommended additionally pulls in recommended (soft)
	// dependencies.
	PolicyAutoResolveRecommended Policy = "auto_recommended"
	// PolicyStrict injects only the core plugins and fails when any requested
	// plugin is missing a hard dependency.
	PolicyStrict Policy = "strict"
	// PolicyManual returns exactly the requested set with no injection and no
	// validation.
	PolicyManual Policy = "manual"
)

// Valid reports whether the policy is one of the recognized values.
func (p Policy) Valid() bool {
	switch p {
	case PolicyAutoResolve, PolicyAutoResolveRecommended, PolicyStrict, PolicyManual:
		return true
	}
	return false
}

// Resolve completes the requested plugin set under the given policy.
// Duplicate requests collapse; the result is sorted for determinism. The
// resolver only adds plugins — subtracting an explicit "removed" set is the
// caller's responsibility after resolution.
func (c *Catalog) Resolve(requested []string, policy Policy) ([]string, error) {
	set := make(map[string]struct{}, len(requested)+2)
	for _, name := range requested {
		set[name] = struct{}{}
	}

	switch policy {
	case PolicyManual:
		return sortedKeys(set), nil

	case PolicyStrict:
		missing := c.ValidateDependencies(requested)
		if len(missing) > 0 {
			return nil, ErrMissingDependencies{Missing: missing}
		}
		for _, core := range CorePlugins() {
			set[core] = struct{}{}
		}
		return sortedKeys(set), nil

	case PolicyAutoResolve, PolicyAutoResolveRecommended:
		for _, core := range CorePlugins() {
			set[core] = struct{}{}
		}
		c.close(set, policy == PolicyAutoResolveRecommended)
		return sortedKeys(set), nil

	default:
		return nil, ErrUnknownPolicy{Policy: policy}
	}
}

// ValidateDependencies inspects the requested set without mutating it and
// reports, for each plugin missing at least one hard dependency, the missing
// dependency names. An empty map means the set is fully satisfied.
func (c *Catalog) ValidateDependencies(requested []string) map[string][]string {
	present := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		present[name] = struct{}{}
	}

	missing := make(map[string][]string)
	for name := range present {
		entry, ok := c.entries[name]
		if !ok {
			continue
		}
		var lacking []string
		for _, dep := range entry.Requires {
			if _, ok := present[dep]; !ok {
				lacking = append(lacking, dep)
			}
		}
		if len(lacking) > 0 {
			sort.Strings(lacking)
			missing[name] = lacking
		}
	}
	return missing
}

// close expands the set over hard (and optionally recommended) dependencies
// until a fixed point. The visited set makes it terminate even on a cyclic
// catalog, which New rejects but the resolver never assumes.
func (c *Catalog) close(set map[string]struct{}, recommended bool) {
	queue := make([]string, 0, len(set))
	for name := range set {
		queue = append(queue, name)
	}
	visited := make(map[string]struct{}, len(set))

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, seen := visited[name]; seen {
			continue
		}
		visited[name] = struct{}{}

		entry, ok := c.entries[name]
		if !ok {
			continue
		}

		deps := entry.Requires
		if recommended {
			deps = append(append([]string(nil), entry.Requires...), entry.Recommends...)
		}
		for _, dep := range deps {
			if _, ok := set[dep]; !ok {
				set[dep] = struct{}{}
			}
			queue = append(queue, dep)
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
