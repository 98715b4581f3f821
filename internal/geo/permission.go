package geo

import (
	"errors"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/data"
)

// ErrRegionDenied rejects movement into ground the requester's realm
// may not enter (or open water outside every polygon).
var ErrRegionDenied = errors.New("coordinate not enterable for realm")

// Checker answers "may realm R stand at (x,y)". Pure geometry over the
// static region snapshot — both the 2D move path and the per-input 3D
// validation share one instance, so this must stay allocation-free.
type Checker struct {
	regions *data.RegionTable
}

func NewChecker(regions *data.RegionTable) *Checker {
	return &Checker{regions: regions}
}

// Allowed evaluates region permission at a coordinate. The first
// polygon containing the point decides; no containing polygon means
// out-of-bounds water, which is always denied.
func (c *Checker) Allowed(x, y float64, realm string) bool {
	for _, r := range c.regions.All() {
		if !pointInPolygon(x, y, r.Polygon) {
			continue
		}
		if r.Type == "warzone" {
			return true
		}
		return r.Walkable && (r.Realm == "" || r.Realm == realm)
	}
	return false
}

// RegionAt returns the first region containing the point, or nil.
func (c *Checker) RegionAt(x, y float64) *data.Region {
	for i, r := range c.regions.All() {
		if pointInPolygon(x, y, r.Polygon) {
			return &c.regions.All()[i]
		}
	}
	return nil
}

// pointInPolygon is the standard even-odd ray cast: count edges a
// horizontal ray from the point crosses.
func pointInPolygon(x, y float64, poly []data.Point) bool {
	inside := false
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		pi, pj := poly[i], poly[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}
