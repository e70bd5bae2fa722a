package catalog

import "sort"

// dependencyGraph tracks hard-dependency edges between catalog entries so a
// malformed (cyclic) catalog is rejected at construction time.
type dependencyGraph struct {
	nodes    map[string]struct{}
	outgoing map[string]map[string]struct{}
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		nodes:    make(map[string]struct{}),
		outgoing: make(map[string]map[string]struct{}),
	}
}

// AddNode ensures the plugin exists within the graph.
func (g *dependencyGraph) AddNode(name string) {
	if _, exists := g.nodes[name]; exists {
		return
	}
	g.nodes[name] = struct{}{}
	g.outgoing[name] = make(map[string]struct{})
}

// AddEdge records that dependent requires dependency.
func (g *dependencyGraph) AddEdge(dependent, dependency string) {
	g.AddNode(dependent)
	g.AddNode(dependency)
	g.outgoing[dependent][dependency] = struct{}{}
}

// DetectCycles returns one cycle if present or nil when the graph is acyclic.
func (g *dependencyGraph) DetectCycles() []string {
	visited := make(map[string]bool)
	stack := make(map[string]bool)
	path := []string{}

	var cycle []string
	var dfs func(node string) bool

	dfs = func(node string) bool {
		visited[node] = true
		stack[node] = true
		path = append(path, node)

		for dependency := range g.outgoing[node] {
			if !visited[dependency] {
				if dfs(dependency) {
					return true
				}
			} else if stack[dependency] {
				idx := len(path) - 1
				for idx >= 0 && path[idx] != dependency {
					idx--
				}
				if idx >= 0 {
					cycle = append([]string{}, path[idx:]...)
					return true
				}
			}
		}

		stack[node] = false
		path = path[:len(path)-1]
		return false
	}

	for _, node := range g.sortedNodes() {
		if !visited[node] {
			if dfs(node) {
				break
			}
		}
	}

	return cycle
}

func (g *dependencyGraph) sortedNodes() []string {
	nodes := make([]string, 0, len(g.nodes))
	for node := range g.nodes {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}
