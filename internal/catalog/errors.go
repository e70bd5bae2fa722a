package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// ErrMissingDependencies is returned by the strict policy when requested
// plugins lack hard dependencies. It names each offending plugin together
// with the dependencies it is missing.
type ErrMissingDependencies struct {
	Missing map[string][]string
}

func (e ErrMissingDependencies) Error() string {
	if len(e.Missing) == 0 {
		return "missing plugin dependencies"
	}

	plugins := make([]string, 0, len(e.Missing))
	for name := range e.Missing {
		plugins = append(plugins, name)
	}
	sort.Strings(plugins)

	lines := make([]string, 0, len(plugins))
	for _, name := range plugins {
		lines = append(lines, fmt.Sprintf("%s is missing %s", name, strings.Join(e.Missing[name], ", ")))
	}
	return fmt.Sprintf(
		"unresolved plugin dependencies: %s\nHint: add the missing plugins or switch to the auto-resolve policy",
		strings.Join(lines, "; "),
	)
}

// ErrCircularDependency is returned when the catalog declares a dependency
// cycle.
type ErrCircularDependency struct {
	Cycle []string
}

func (e ErrCircularDependency) Error() string {
	if len(e.Cycle) == 0 {
		return "circular plugin dependency detected"
	}
	sequence := append(append([]string{}, e.Cycle...), e.Cycle[0])
	return fmt.Sprintf("circular plugin dependency detected: %s", strings.Join(sequence, " -> "))
}

// ErrUnknownPolicy is returned when Resolve receives an unrecognized policy.
type ErrUnknownPolicy struct {
	Policy Policy
}

func (e ErrUnknownPolicy) Error() string {
	return fmt.Sprintf("unknown dependency resolution policy '%s'", e.Policy)
}
