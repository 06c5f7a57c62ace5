package arena

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AreaPair describes a cuboid area via two opposing corner locations. Both
// corners are optional until setup completes which allows setting them
// independently.
type AreaPair struct {
	positionOne    Location
	positionOneSet bool
	positionTwo    Location
	positionTwoSet bool
}

// NewAreaPair creates an AreaPair with both corners already set.
func NewAreaPair(positionOne Location, positionTwo Location) AreaPair {
	return AreaPair{
		positionOne:    positionOne,
		positionOneSet: true,
		positionTwo:    positionTwo,
		positionTwoSet: true,
	}
}

// SetPositionOne sets the first corner.
func (p *AreaPair) SetPositionOne(l Location) {
	p.positionOne = l
	p.positionOneSet = true
}

// SetPositionTwo sets the second corner.
func (p *AreaPair) SetPositionTwo(l Location) {
	p.positionTwo = l
	p.positionTwoSet = true
}

// PositionOne returns the first corner and whether it has been set.
func (p AreaPair) PositionOne() (Location, bool) {
	return p.positionOne, p.positionOneSet
}

// PositionTwo returns the second corner and whether it has been set.
func (p AreaPair) PositionTwo() (Location, bool) {
	return p.positionTwo, p.positionTwoSet
}

// BothSet reports whether both corners have been set.
func (p AreaPair) BothSet() bool {
	return p.positionOneSet && p.positionTwoSet
}

// FloorY returns the block height of the first corner. This is the height
// participants get placed at within the area.
func (p AreaPair) FloorY() float64 {
	return math.Floor(p.positionOne.Point.Y())
}

// Contains checks whether the given location lies within the block cuboid
// spanned by both corners. Coordinates are compared at block resolution so a
// location on the edge block still counts as contained. Returns false when
// the worlds differ or a corner is missing.
func (p AreaPair) Contains(l Location) bool {
	if !p.BothSet() {
		return false
	}
	if l.World != p.positionOne.World {
		return false
	}
	for axis := 0; axis < 3; axis++ {
		lo := math.Min(math.Floor(p.positionOne.Point[axis]), math.Floor(p.positionTwo.Point[axis]))
		hi := math.Max(math.Floor(p.positionOne.Point[axis]), math.Floor(p.positionTwo.Point[axis]))
		v := math.Floor(l.Point[axis])
		if v < lo || v > hi {
			return false
		}
	}
	return true
}

// RandomPointAt returns the location at the given fractions of the area's x
// and z extent, placed at FloorY plus one so the point rests on top of the
// floor block. Fractions are expected in [0,1).
func (p AreaPair) RandomPointAt(fracX, fracZ float64) Location {
	minX := math.Min(p.positionOne.Point.X(), p.positionTwo.Point.X())
	maxX := math.Max(p.positionOne.Point.X(), p.positionTwo.Point.X())
	minZ := math.Min(p.positionOne.Point.Z(), p.positionTwo.Point.Z())
	maxZ := math.Max(p.positionOne.Point.Z(), p.positionTwo.Point.Z())
	return Location{
		World: p.positionOne.World,
		Point: mgl64.Vec3{
			minX + fracX*(maxX-minX),
			p.FloorY() + 1,
			minZ + fracZ*(maxZ-minZ),
		},
	}
}
