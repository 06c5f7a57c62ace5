// Package arena provides location and area primitives for dodgeball arenas.
package arena

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lefinal/dodgeball-server/errors"
)

// Location is a point in a named world with optional view direction.
type Location struct {
	// World is the name of the world the location belongs to.
	World string
	// Point is the position within World.
	Point mgl64.Vec3
	// Yaw is the horizontal view rotation in degrees.
	Yaw float64
	// Pitch is the vertical view rotation in degrees.
	Pitch float64
}

// NewLocation creates a Location without view direction.
func NewLocation(world string, x, y, z float64) Location {
	return Location{
		World: world,
		Point: mgl64.Vec3{x, y, z},
	}
}

// String encodes the Location in the persisted wire format
// world,x,y,z,yaw,pitch. The counterpart is ParseLocation.
func (l Location) String() string {
	return fmt.Sprintf("%s,%s,%s,%s,%s,%s", l.World,
		formatCoord(l.Point.X()), formatCoord(l.Point.Y()), formatCoord(l.Point.Z()),
		formatCoord(l.Yaw), formatCoord(l.Pitch))
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseLocation parses a Location from its persisted string representation.
// Accepted are world,x,y,z as well as world,x,y,z,yaw,pitch.
func ParseLocation(s string) (Location, error) {
	segments := strings.Split(s, ",")
	if len(segments) != 4 && len(segments) != 6 {
		return Location{}, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindMalformedLocation,
			Message: "unexpected segment count",
			Details: errors.Details{"was": s, "segments": len(segments)},
		}
	}
	loc := Location{World: segments[0]}
	coords := make([]float64, 0, 5)
	for _, segment := range segments[1:] {
		v, err := strconv.ParseFloat(segment, 64)
		if err != nil {
			return Location{}, errors.Error{
				Code:    errors.ErrBadRequest,
				Kind:    errors.KindMalformedLocation,
				Err:     err,
				Message: "parse coordinate",
				Details: errors.Details{"was": s, "segment": segment},
			}
		}
		coords = append(coords, v)
	}
	loc.Point = mgl64.Vec3{coords[0], coords[1], coords[2]}
	if len(coords) == 5 {
		loc.Yaw = coords[3]
		loc.Pitch = coords[4]
	}
	return loc, nil
}

// SquaredDistanceTo returns the squared euclidean distance between the points
// of both locations. Worlds are not compared.
func (l Location) SquaredDistanceTo(other Location) float64 {
	d := l.Point.Sub(other.Point)
	return d.Dot(d)
}
