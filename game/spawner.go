package game

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lefinal/dodgeball-server/arena"
)

// minSpawnSquaredDistance is the minimum squared distance between two spawn
// points generated within a single allocation.
const minSpawnSquaredDistance = 1.0

// defaultSpawnAttempts is how often a candidate point is sampled per
// participant before spacing and passability constraints are dropped. Keeps
// allocation bounded for areas too small for the participant count.
const defaultSpawnAttempts = 32

// PassabilityProbe reports whether the given point in the given world is free
// to stand in. A nil probe treats every point as passable.
type PassabilityProbe func(world string, point mgl64.Vec3) bool

// SpawnAllocator places participants on random non-overlapping points within
// a team area. Points are generated at the floor height of the area's first
// corner.
type SpawnAllocator struct {
	probe       PassabilityProbe
	rnd         *rand.Rand
	maxAttempts int
}

// NewSpawnAllocator creates a SpawnAllocator using the given probe and random
// source.
func NewSpawnAllocator(probe PassabilityProbe, rnd *rand.Rand) *SpawnAllocator {
	return &SpawnAllocator{
		probe:       probe,
		rnd:         rnd,
		maxAttempts: defaultSpawnAttempts,
	}
}

// Allocate generates count spawn points within the given area. Each point
// keeps a minimum distance to all points generated earlier in the same call
// and satisfies the passability probe. When no such point is found within the
// attempt budget, the last sampled candidate is used regardless of the
// constraints so allocation always terminates with count points.
func (a *SpawnAllocator) Allocate(area arena.AreaPair, count int) []arena.Location {
	occupied := make([]arena.Location, 0, count)
	for i := 0; i < count; i++ {
		var candidate arena.Location
		for attempt := 0; attempt < a.maxAttempts; attempt++ {
			candidate = area.RandomPointAt(a.rnd.Float64(), a.rnd.Float64())
			if !a.acceptable(candidate, occupied) {
				continue
			}
			break
		}
		occupied = append(occupied, candidate)
	}
	return occupied
}

func (a *SpawnAllocator) acceptable(candidate arena.Location, occupied []arena.Location) bool {
	if a.probe != nil && !a.probe(candidate.World, candidate.Point) {
		return false
	}
	for _, other := range occupied {
		if candidate.SquaredDistanceTo(other) < minSpawnSquaredDistance {
			return false
		}
	}
	return true
}
