package nav

import (
	"errors"
	"math"
	"testing"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/data"
)

func line(name string, pts ...data.Point) data.WaypointPath {
	return data.WaypointPath{Name: name, Points: pts}
}

func TestBuildLinksConsecutiveWaypoints(t *testing.T) {
	g := Build(data.NewPathTable([]data.WaypointPath{
		line("road", data.Point{X: 0, Y: 0}, data.Point{X: 10, Y: 0}, data.Point{X: 20, Y: 0}),
	}), 5)
	if len(g.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(g.Nodes))
	}
	route, err := FindRoute(g, 0, 0, 20, 0)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	// 3 waypoints + appended literal target.
	if len(route) != 4 {
		t.Fatalf("expected 4 steps, got %d: %v", len(route), route)
	}
	last := route[len(route)-1]
	if last.X != 20 || last.Y != 0 {
		t.Fatalf("route must end at the literal target, got %v", last)
	}
}

func TestBridgeJoinsSeparatePaths(t *testing.T) {
	a := line("a", data.Point{X: 0, Y: 0}, data.Point{X: 10, Y: 0})
	b := line("b", data.Point{X: 12, Y: 0}, data.Point{X: 30, Y: 0})

	// Too far to bridge: no route between the paths.
	g := Build(data.NewPathTable([]data.WaypointPath{a, b}), 1)
	if _, err := FindRoute(g, 0, 0, 30, 0); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute across unbridged paths, got %v", err)
	}

	// Within threshold: the 2-unit gap gets bridged.
	g = Build(data.NewPathTable([]data.WaypointPath{a, b}), 3)
	route, err := FindRoute(g, 0, 0, 30, 0)
	if err != nil {
		t.Fatalf("FindRoute over bridged paths: %v", err)
	}
	if len(route) < 4 {
		t.Fatalf("expected route through both paths, got %v", route)
	}
}

func TestDijkstraPicksMinimumWeight(t *testing.T) {
	// Two ways from (0,0) to (10,0): direct path "short" and a detour
	// "long" through (5,40). Bridges connect the endpoints of both.
	short := line("short", data.Point{X: 0, Y: 0}, data.Point{X: 10, Y: 0})
	long := line("long", data.Point{X: 0, Y: 1}, data.Point{X: 5, Y: 40}, data.Point{X: 10, Y: 1})
	g := Build(data.NewPathTable([]data.WaypointPath{short, long}), 2)

	route, err := FindRoute(g, 0, 0, 10, 0)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	total := 0.0
	for i := 1; i < len(route); i++ {
		total += math.Hypot(route[i].X-route[i-1].X, route[i].Y-route[i-1].Y)
	}
	if total > 15 {
		t.Fatalf("expected the short route (weight ~10), got weight %.1f via %v", total, route)
	}
}

func TestLoopPathClosesRing(t *testing.T) {
	ring := data.WaypointPath{
		Name: "ring",
		Loop: true,
		Points: []data.Point{
			{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
		},
	}
	g := Build(data.NewPathTable([]data.WaypointPath{ring}), 0)
	route, err := FindRoute(g, 0, 0, 0, 10)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	// With the ring closed, (0,0)->(0,10) is one hop (plus the appended
	// literal target), not a walk around three sides.
	if len(route) != 3 {
		t.Fatalf("expected direct hop around the closed ring, got %v", route)
	}
}

func TestEmptyGraphSignalsNoRoute(t *testing.T) {
	g := Build(data.NewPathTable(nil), 5)
	if _, err := FindRoute(g, 0, 0, 1, 1); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute on empty graph, got %v", err)
	}
}
