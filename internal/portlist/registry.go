// Package portlist resolves named port groups into concrete port-to-label
// maps. Groups come from configuration and are read-only once loaded; the
// registry only derives views over them.
package portlist

import (
	"sort"
	"strings"

	"github.com/anstrom/portscout/internal/logging"
)

// AllName is the reserved group name meaning the union of every group.
const AllName = "all"

// Group is a named collection of ports with expected-service labels.
// The label is a hint for display, not an authoritative identification.
type Group struct {
	Name        string
	Description string
	Ports       map[int]string
}

// Registry holds the configured port groups in a deterministic iteration
// order (ascending by name).
type Registry struct {
	groups map[string]Group
	order  []string
}

// NewRegistry creates a registry over the given groups.
func NewRegistry(groups map[string]Group) *Registry {
	order := make([]string, 0, len(groups))
	for name := range groups {
		order = append(order, name)
	}
	sort.Strings(order)

	return &Registry{groups: groups, order: order}
}

// Names returns all group names in registry iteration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Get returns the group with the given name.
func (r *Registry) Get(name string) (Group, bool) {
	g, ok := r.groups[name]
	return g, ok
}

// Groups returns all groups in registry iteration order.
func (r *Registry) Groups() []Group {
	groups := make([]Group, 0, len(r.order))
	for _, name := range r.order {
		groups = append(groups, r.groups[name])
	}
	return groups
}

// Len returns the number of configured groups.
func (r *Registry) Len() int {
	return len(r.order)
}

// Resolve merges the named groups into a single port-to-label map.
//
// Names are matched case-insensitively after trimming. If any name equals
// "all", the result is the union of every group, each port labeled by the
// first group (in registry order) that defines it. Otherwise names are
// merged in the order given, keeping the first-seen label on collision.
// Unrecognized names produce a warning and are skipped; an empty result
// means nothing resolved.
func (r *Registry) Resolve(names []string) map[int]string {
	ports := make(map[int]string)

	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), AllName) {
			for _, groupName := range r.order {
				mergePorts(ports, r.groups[groupName].Ports)
			}
			return ports
		}
	}

	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		group, ok := r.groups[name]
		if !ok {
			logging.WarnConfig("Port list not found", "name", name,
				"available", strings.Join(r.order, ", "))
			continue
		}
		mergePorts(ports, group.Ports)
	}

	return ports
}

// mergePorts copies src entries into dst without overwriting existing keys.
func mergePorts(dst map[int]string, src map[int]string) {
	// Port keys are iterated in ascending order so that label collisions
	// inside a single group resolve deterministically.
	keys := make([]int, 0, len(src))
	for port := range src {
		keys = append(keys, port)
	}
	sort.Ints(keys)

	for _, port := range keys {
		if _, exists := dst[port]; !exists {
			dst[port] = src[port]
		}
	}
}
