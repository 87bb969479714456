package game

import (
	"context"
	"fmt"
	"time"

	"github.com/4cecoder/blobarena/config"
	"github.com/4cecoder/blobarena/models"
	"golang.org/x/exp/rand"
)

// Spawner drops one pellet into the world per period.
type Spawner struct {
	world   *World
	rng     *rand.Rand
	minMass int
	maxMass int
	period  time.Duration
}

// NewSpawner seeds its own source; the spawner goroutine is the only user of it.
func NewSpawner(world *World, cfg config.Game, seed uint64) *Spawner {
	cfg = cfg.Normalize()
	return &Spawner{
		world:   world,
		rng:     rand.New(rand.NewSource(seed)),
		minMass: cfg.Pellets.MinMass,
		maxMass: cfg.Pellets.MaxMass,
		period:  cfg.SpawnDelay(),
	}
}

// NewPellet draws a pellet uniformly over [0,width) x [0,height) with an
// integer mass in [minMass, maxMass].
func (s *Spawner) NewPellet() *models.Pellet {
	arena := s.world.Arena()
	return &models.Pellet{
		X:     s.rng.Float64() * arena.Width,
		Y:     s.rng.Float64() * arena.Height,
		Mass:  float64(s.minMass + s.rng.Intn(s.maxMass-s.minMass+1)),
		Color: fmt.Sprintf("#%06x", s.rng.Intn(0xFFFFFF)),
	}
}

// Spawn adds one pellet and reports whether the world had room for it.
func (s *Spawner) Spawn() bool {
	return s.world.AddPellet(s.NewPellet())
}

// Run spawns every period until ctx is done.
func (s *Spawner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Spawn()
		}
	}
}
