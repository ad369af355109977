package portlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGroups() map[string]Group {
	return map[string]Group{
		"web": {
			Name:        "web",
			Description: "Web servers",
			Ports:       map[int]string{80: "HTTP", 443: "HTTPS", 8080: "HTTP Proxy"},
		},
		"database": {
			Name:        "database",
			Description: "Database servers",
			Ports:       map[int]string{5432: "PostgreSQL", 6379: "Redis", 8080: "Dashboard"},
		},
		"common": {
			Name:        "common",
			Description: "Basic common ports",
			Ports:       map[int]string{22: "SSH", 80: "Web"},
		},
	}
}

func TestResolveSingleList(t *testing.T) {
	registry := NewRegistry(testGroups())

	ports := registry.Resolve([]string{"web"})
	assert.Equal(t, map[int]string{80: "HTTP", 443: "HTTPS", 8080: "HTTP Proxy"}, ports)
}

func TestResolveMergeKeepsFirstSeenLabel(t *testing.T) {
	registry := NewRegistry(testGroups())

	// database is requested first, so its 8080 label wins.
	ports := registry.Resolve([]string{"database", "web"})
	assert.Equal(t, "Dashboard", ports[8080])
	assert.Equal(t, "HTTP", ports[80])
	assert.Len(t, ports, 5)
}

func TestResolveAll(t *testing.T) {
	registry := NewRegistry(testGroups())

	ports := registry.Resolve([]string{"web", "all"})

	// Union of every group, no duplicates.
	assert.Len(t, ports, 6)

	// Registry iteration order is ascending by name: common before database
	// before web, so "common" provides the label for port 80 and "database"
	// for port 8080.
	assert.Equal(t, "Web", ports[80])
	assert.Equal(t, "Dashboard", ports[8080])
	assert.Equal(t, "SSH", ports[22])
}

func TestResolveIdempotent(t *testing.T) {
	registry := NewRegistry(testGroups())

	once := registry.Resolve([]string{"web"})
	twice := registry.Resolve([]string{"web", "web"})
	assert.Equal(t, once, twice)
}

func TestResolveCaseInsensitiveAndTrimmed(t *testing.T) {
	registry := NewRegistry(testGroups())

	ports := registry.Resolve([]string{"  WEB "})
	assert.Len(t, ports, 3)

	ports = registry.Resolve([]string{" ALL"})
	assert.Len(t, ports, 6)
}

func TestResolveUnknownNameIsNotFatal(t *testing.T) {
	registry := NewRegistry(testGroups())

	ports := registry.Resolve([]string{"notalist", "web"})
	assert.Len(t, ports, 3, "remaining names must still resolve")

	ports = registry.Resolve([]string{"notalist"})
	assert.Empty(t, ports)
}

func TestNamesAndGroupsOrdered(t *testing.T) {
	registry := NewRegistry(testGroups())

	require.Equal(t, []string{"common", "database", "web"}, registry.Names())

	groups := registry.Groups()
	require.Len(t, groups, 3)
	assert.Equal(t, "common", groups[0].Name)
	assert.Equal(t, "web", groups[2].Name)
}

func TestGet(t *testing.T) {
	registry := NewRegistry(testGroups())

	group, ok := registry.Get("web")
	require.True(t, ok)
	assert.Equal(t, "Web servers", group.Description)

	_, ok = registry.Get("missing")
	assert.False(t, ok)
}
