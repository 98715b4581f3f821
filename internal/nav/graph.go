package nav

import (
	"math"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/data"
)

// Graph is the navigable waypoint mesh: one node per waypoint of every
// path, adjacency lists keyed by node index. Edges are consecutive
// points within a path plus cross-path bridges within bridgeDist.
// Index-based adjacency keeps the graph flat and reusable across calls.
type Graph struct {
	Nodes []data.Point
	adj   [][]edge
}

type edge struct {
	to     int
	weight float64
}

// Build constructs the mesh from the static path table. bridgeDist is
// the maximum distance at which nodes of different paths get linked.
func Build(paths *data.PathTable, bridgeDist float64) *Graph {
	g := &Graph{}
	pathOf := []int{} // node index -> source path index, for bridging

	for pi, p := range paths.All() {
		start := len(g.Nodes)
		for _, pt := range p.Points {
			g.Nodes = append(g.Nodes, pt)
			g.adj = append(g.adj, nil)
			pathOf = append(pathOf, pi)
		}
		for i := start; i < len(g.Nodes)-1; i++ {
			g.link(i, i+1)
		}
		if p.Loop && len(p.Points) > 2 {
			g.link(start, len(g.Nodes)-1)
		}
	}

	// Bridge nodes of different paths that sit close together.
	for i := 0; i < len(g.Nodes); i++ {
		for j := i + 1; j < len(g.Nodes); j++ {
			if pathOf[i] == pathOf[j] {
				continue
			}
			if dist(g.Nodes[i], g.Nodes[j]) <= bridgeDist {
				g.link(i, j)
			}
		}
	}
	return g
}

func (g *Graph) link(a, b int) {
	w := dist(g.Nodes[a], g.Nodes[b])
	g.adj[a] = append(g.adj[a], edge{to: b, weight: w})
	g.adj[b] = append(g.adj[b], edge{to: a, weight: w})
}

// Nearest returns the index of the node closest to (x,y), or -1 for an
// empty graph.
func (g *Graph) Nearest(x, y float64) int {
	best := -1
	bestD := math.Inf(1)
	for i, n := range g.Nodes {
		d := dist(n, data.Point{X: x, Y: y})
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func dist(a, b data.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
