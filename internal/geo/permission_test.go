package geo

import (
	"testing"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/data"
)

func square(name, typ, realm string, walkable bool) data.Region {
	return data.Region{
		Name:     name,
		Type:     typ,
		Realm:    realm,
		Walkable: walkable,
		Polygon: []data.Point{
			{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0},
		},
	}
}

func TestAllowedInsideNeutralWalkableSquare(t *testing.T) {
	c := NewChecker(data.NewRegionTable([]data.Region{square("plains", "realm", "", true)}))
	if !c.Allowed(5, 5, "Syrtis") {
		t.Fatal("expected (5,5) inside neutral walkable square to be allowed")
	}
}

func TestDeniedOutsideEveryPolygon(t *testing.T) {
	c := NewChecker(data.NewRegionTable([]data.Region{square("plains", "realm", "", true)}))
	if c.Allowed(50, 50, "Syrtis") {
		t.Fatal("expected (50,50) outside all polygons to be denied as water")
	}
}

func TestOwnedRegionAdmitsOwnerOnly(t *testing.T) {
	c := NewChecker(data.NewRegionTable([]data.Region{square("keep", "realm", "Ignis", true)}))
	if !c.Allowed(5, 5, "Ignis") {
		t.Fatal("owner realm should enter its own region")
	}
	if c.Allowed(5, 5, "Alsius") {
		t.Fatal("foreign realm should be denied in owned region")
	}
}

func TestWarzoneIgnoresOwnerAndWalkable(t *testing.T) {
	c := NewChecker(data.NewRegionTable([]data.Region{square("bridge", "warzone", "Ignis", false)}))
	if !c.Allowed(5, 5, "Alsius") {
		t.Fatal("warzone should admit any realm")
	}
}

func TestUnwalkableRegionDenied(t *testing.T) {
	c := NewChecker(data.NewRegionTable([]data.Region{square("cliff", "realm", "", false)}))
	if c.Allowed(5, 5, "Syrtis") {
		t.Fatal("unwalkable region should be denied")
	}
}

func TestFirstMatchWins(t *testing.T) {
	inner := square("inner", "realm", "", false)
	outer := square("outer", "realm", "", true)
	c := NewChecker(data.NewRegionTable([]data.Region{inner, outer}))
	if c.Allowed(5, 5, "Syrtis") {
		t.Fatal("first containing polygon (unwalkable) should decide")
	}
}

func TestPointInPolygonConcave(t *testing.T) {
	// L-shaped polygon: the notch at (7,7) is outside.
	l := data.Region{
		Name: "l", Type: "realm", Walkable: true,
		Polygon: []data.Point{
			{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5},
			{X: 5, Y: 5}, {X: 5, Y: 10}, {X: 0, Y: 10},
		},
	}
	c := NewChecker(data.NewRegionTable([]data.Region{l}))
	if !c.Allowed(2, 2, "Syrtis") {
		t.Fatal("(2,2) is inside the L shape")
	}
	if c.Allowed(7, 7, "Syrtis") {
		t.Fatal("(7,7) is in the notch, outside the L shape")
	}
}
