package ir

// DependencyGraph is a name-keyed adjacency map for one resolution pass.
//
// Edges[a] lists the names a's value references, in first-seen order.
// Dependents is the reverse map. Nodes preserves discovery order so that
// traversals and serialized edge lists are deterministic.
type DependencyGraph struct {
	Nodes      []string            `json:"nodes"`
	Edges      map[string][]string `json:"edges"`
	Dependents map[string][]string `json:"dependents"`
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		Edges:      make(map[string][]string),
		Dependents: make(map[string][]string),
	}
}

// AddNode registers name if it is not already present.
// Returns true if the node was added.
func (g *DependencyGraph) AddNode(name string) bool {
	if _, ok := g.Edges[name]; ok {
		return false
	}
	g.Nodes = append(g.Nodes, name)
	g.Edges[name] = []string{}
	return true
}

// Has reports whether name is a node.
func (g *DependencyGraph) Has(name string) bool {
	_, ok := g.Edges[name]
	return ok
}

// AddEdge records from -> to, adding both nodes as needed.
// Duplicate edges are ignored.
func (g *DependencyGraph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	for _, existing := range g.Edges[from] {
		if existing == to {
			return
		}
	}
	g.Edges[from] = append(g.Edges[from], to)
	g.Dependents[to] = append(g.Dependents[to], from)
}

// EdgeList flattens the graph into edges ordered by node discovery order.
func (g *DependencyGraph) EdgeList() []Edge {
	var edges []Edge
	for _, from := range g.Nodes {
		for _, to := range g.Edges[from] {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	if edges == nil {
		edges = []Edge{}
	}
	return edges
}
