package game

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lefinal/dodgeball-server/arena"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnAllocator_Allocate(t *testing.T) {
	allocator := NewSpawnAllocator(nil, rand.New(rand.NewSource(1)))
	area := arena.NewAreaPair(arena.NewLocation("arena_1", 0, 64, 0), arena.NewLocation("arena_1", 30, 64, 30))
	points := allocator.Allocate(area, 6)
	require.Len(t, points, 6, "should place all participants")
	for i, point := range points {
		assert.Equal(t, "arena_1", point.World, "should place in arena world")
		assert.Equal(t, 65.0, point.Point.Y(), "should place on top of floor height")
		assert.True(t, area.Contains(point), "point %d should lie within area", i)
		for j := 0; j < i; j++ {
			assert.GreaterOrEqual(t, point.SquaredDistanceTo(points[j]), 1.0,
				"points %d and %d should keep minimum distance", i, j)
		}
	}
}

// Allocation in an area too small for the requested count must terminate and
// still yield a point for everyone even though spacing cannot be satisfied.
func TestSpawnAllocator_AllocateGracefulDegradation(t *testing.T) {
	allocator := NewSpawnAllocator(nil, rand.New(rand.NewSource(1)))
	area := arena.NewAreaPair(arena.NewLocation("arena_1", 0, 64, 0), arena.NewLocation("arena_1", 1, 64, 1))
	points := allocator.Allocate(area, 5)
	require.Len(t, points, 5, "should place all participants despite small area")
	for _, point := range points {
		assert.True(t, area.Contains(point), "fallback points should still lie within area")
	}
}

func TestSpawnAllocator_AllocateWithProbe(t *testing.T) {
	// Only the half with positive x is passable.
	probe := func(_ string, point mgl64.Vec3) bool {
		return point.X() >= 15
	}
	allocator := NewSpawnAllocator(probe, rand.New(rand.NewSource(1)))
	area := arena.NewAreaPair(arena.NewLocation("arena_1", 0, 64, 0), arena.NewLocation("arena_1", 30, 64, 30))
	points := allocator.Allocate(area, 4)
	require.Len(t, points, 4, "should place all participants")
	for i, point := range points {
		assert.GreaterOrEqual(t, point.Point.X(), 15.0, "point %d should satisfy probe", i)
	}
}
