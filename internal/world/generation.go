// Map generation using layered simplex noise.
// Elevation and moisture layers drive terrain types, water, plant cover
// and rivers traced downhill through the regular editing rules.
package world

import (
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Terrain type indices painted by the generator.
const (
	TerrainSand = iota
	TerrainGrass
	TerrainMud
	TerrainStone
	TerrainSnow
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Seed         int64 // Random seed (0 = random)
	MaxElevation int   // Highest elevation level produced
	WaterLevel   int   // Sea level applied to every cell
	Rivers       int   // Maximum number of rivers to trace
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:         0,
		MaxElevation: 6,
		WaterLevel:   1,
		Rivers:       6,
	}
}

// Generate fills every cell of g with noise-driven terrain.
func Generate(g *Grid, cfg GenConfig) {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)

	moisture := make([]float64, len(g.cells))

	for _, c := range g.cells {
		// Sample in cell-sized units so frequencies do not depend on radius.
		x := c.x / (InnerRadius * 2)
		y := c.z / (OuterRadius * 1.5)

		elev := octaveNoise(elevNoise, x, y, 4, 0.08, 0.5)
		moist := octaveNoise(moistNoise, x, y, 3, 0.06, 0.5)
		moisture[c.Index] = moist

		// Push the border down so maps tend to be surrounded by water.
		col, row := c.Coordinates.Offset()
		edge := math.Min(
			math.Min(float64(col), float64(g.cellCountX-1-col)),
			math.Min(float64(row), float64(g.cellCountZ-1-row)),
		)
		if edge < 2 {
			elev *= 0.5 + edge*0.25
		}

		level := int(math.Round(elev * float64(cfg.MaxElevation)))
		c.SetElevation(level)
		c.SetWaterLevel(cfg.WaterLevel)
	}

	for _, c := range g.cells {
		moist := moisture[c.Index]
		c.SetTerrainTypeIndex(deriveTerrain(c.elevation, moist, cfg))
		if !c.IsUnderwater() {
			c.SetPlantLevel(clampLevel(int(moist * 4)))
			if c.elevation <= cfg.WaterLevel+1 && moist > 0.45 {
				c.SetFarmLevel(clampLevel(int((moist - 0.45) * 8)))
			}
		}
	}

	placeRivers(g, cfg, seed)
}

// deriveTerrain determines the terrain type from elevation and moisture.
func deriveTerrain(elevation int, moist float64, cfg GenConfig) int {
	switch {
	case elevation <= cfg.WaterLevel:
		return TerrainSand
	case elevation >= cfg.MaxElevation-1:
		return TerrainSnow
	case elevation >= cfg.MaxElevation-2:
		return TerrainStone
	case moist > 0.6:
		return TerrainMud
	default:
		return TerrainGrass
	}
}

// placeRivers traces rivers from the highest dry cells down to the water.
func placeRivers(g *Grid, cfg GenConfig, seed int64) {
	rng := rand.New(rand.NewSource(seed + 100))

	var sources []*Cell
	for _, c := range g.cells {
		if !c.IsUnderwater() && c.elevation >= cfg.MaxElevation-2 {
			sources = append(sources, c)
		}
	}

	// Highest first, random among equals.
	rng.Shuffle(len(sources), func(i, j int) {
		sources[i], sources[j] = sources[j], sources[i]
	})
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].elevation > sources[j].elevation
	})

	placed := 0
	for _, src := range sources {
		if placed >= cfg.Rivers {
			break
		}
		if src.HasRiver() {
			continue
		}
		if traceRiver(src) > 1 {
			placed++
		}
	}
}

// traceRiver follows the steepest descent from a source cell until it
// reaches water or runs out of downhill path. It returns the river length.
func traceRiver(start *Cell) int {
	current := start
	length := 0
	maxSteps := 50

	for step := 0; step < maxSteps; step++ {
		if current.IsUnderwater() || current.hasOutgoingRiver {
			break
		}

		var best *Cell
		var bestDir Direction
		for _, d := range Directions {
			n := current.neighbors[d]
			if n == nil || n.HasRiver() || !current.IsValidRiverDestination(n) {
				continue
			}
			if best == nil || n.elevation < best.elevation {
				best = n
				bestDir = d
			}
		}

		if best == nil {
			break // No downhill path; the river ends in a lake bed.
		}
		current.SetOutgoingRiver(bestDir)
		if !current.hasOutgoingRiver {
			break
		}
		length++
		current = best
	}
	return length
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

func clampLevel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 3 {
		return 3
	}
	return v
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(g *Grid) map[int]int {
	counts := make(map[int]int)
	for _, c := range g.cells {
		counts[c.terrainTypeIndex]++
	}
	return counts
}

// TerrainName returns a human-readable name for a terrain type index.
func TerrainName(t int) string {
	switch t {
	case TerrainSand:
		return "Sand"
	case TerrainGrass:
		return "Grass"
	case TerrainMud:
		return "Mud"
	case TerrainStone:
		return "Stone"
	case TerrainSnow:
		return "Snow"
	default:
		return "Unknown"
	}
}
