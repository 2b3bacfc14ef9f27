package evtsim

import (
	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/engine"
)

// waypointPath interpolates linearly between trace waypoints. Queries are
// total: before the first waypoint the vehicle sits at it, after the last
// it parks there, and an empty path pins the vehicle to the origin. The
// antenna height rides along as a constant Z.
type waypointPath struct {
	points []core.Waypoint
	height float64
}

var _ engine.PositionProvider = (*waypointPath)(nil)

func newWaypointPath(points []core.Waypoint, height float64) *waypointPath {
	return &waypointPath{points: points, height: height}
}

func (p *waypointPath) PositionAt(t float64) engine.Position {
	pos := engine.Position{Z: p.height}
	if len(p.points) == 0 {
		return pos
	}

	first := p.points[0]
	if t <= first.Time {
		pos.X, pos.Y = first.X, first.Y
		return pos
	}
	last := p.points[len(p.points)-1]
	if t >= last.Time {
		pos.X, pos.Y = last.X, last.Y
		return pos
	}

	for i := 0; i+1 < len(p.points); i++ {
		a, b := p.points[i], p.points[i+1]
		if t < a.Time || t > b.Time {
			continue
		}
		dt := b.Time - a.Time
		if dt <= 0 {
			// repeated timestamp, treat as an instantaneous jump
			pos.X, pos.Y = b.X, b.Y
			return pos
		}
		frac := (t - a.Time) / dt
		pos.X = a.X + (b.X-a.X)*frac
		pos.Y = a.Y + (b.Y-a.Y)*frac
		return pos
	}

	// timestamps out of order and t fell between segments, park at the end
	pos.X, pos.Y = last.X, last.Y
	return pos
}
