package nav

import (
	"container/heap"
	"errors"
	"math"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/data"
)

// ErrNoRoute means the target is unreachable: empty path data or a
// disconnected graph. Callers must not start a walk on this error.
var ErrNoRoute = errors.New("no route to target")

// FindRoute computes the minimum-weight waypoint sequence from the
// node nearest (fromX,fromY) to the node nearest (toX,toY), with the
// literal requested target appended as the final step so the walker
// arrives exactly where the player clicked.
func FindRoute(g *Graph, fromX, fromY, toX, toY float64) ([]data.Point, error) {
	start := g.Nearest(fromX, fromY)
	goal := g.Nearest(toX, toY)
	if start < 0 || goal < 0 {
		return nil, ErrNoRoute
	}

	const unvisited = -1
	distTo := make([]float64, len(g.Nodes))
	prev := make([]int, len(g.Nodes))
	for i := range distTo {
		distTo[i] = math.Inf(1)
		prev[i] = unvisited
	}
	distTo[start] = 0

	pq := &nodeQueue{}
	heap.Init(pq)
	heap.Push(pq, queued{node: start, dist: 0})

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(queued)
		if cur.dist > distTo[cur.node] {
			continue // stale queue entry
		}
		if cur.node == goal {
			break
		}
		for _, e := range g.adj[cur.node] {
			// Standard relaxation; strict < keeps the first-discovered
			// predecessor on equal-weight alternatives.
			if nd := cur.dist + e.weight; nd < distTo[e.to] {
				distTo[e.to] = nd
				prev[e.to] = cur.node
				heap.Push(pq, queued{node: e.to, dist: nd})
			}
		}
	}

	if math.IsInf(distTo[goal], 1) {
		return nil, ErrNoRoute
	}

	var route []data.Point
	for n := goal; n != unvisited; n = prev[n] {
		route = append(route, g.Nodes[n])
		if n == start {
			break
		}
	}
	reverse(route)
	return append(route, data.Point{X: toX, Y: toY}), nil
}

func reverse(pts []data.Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

type queued struct {
	node int
	dist float64
}

// nodeQueue is a min-heap over tentative distances.
type nodeQueue []queued

func (q nodeQueue) Len() int           { return len(q) }
func (q nodeQueue) Less(i, j int) bool { return q[i].dist < q[j].dist }
func (q nodeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)        { *q = append(*q, x.(queued)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
