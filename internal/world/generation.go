// Resource field generation using layered simplex noise. Node density per
// kind follows independent noise layers so forests, rock fields, and
// farmland clump naturally instead of scattering uniformly.
package world

import (
	"math"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds resource field generation parameters.
type GenConfig struct {
	Size    float64 // half-extent of the square world
	Count   int     // target node count across all kinds
	RichMin int     // minimum starting stock per node
	RichMax int     // maximum starting stock per node
	Seed    int64
}

// GenerateNodes populates a NodeStore with resource nodes. Placement is
// rejection-sampled against a per-kind noise field, so the same seed always
// yields the same world.
func GenerateNodes(cfg GenConfig, store *NodeStore) int {
	kinds := [4]NodeKind{NodeTree, NodeRock, NodeIronDeposit, NodeFarm}
	// Rough mix: forests and farmland dominate, ore is scarce.
	shares := [4]float64{0.40, 0.25, 0.10, 0.25}

	noises := [4]opensimplex.Noise{}
	for i := range noises {
		noises[i] = opensimplex.NewNormalized(cfg.Seed + int64(i))
	}

	// Deterministic low-discrepancy walk over candidate positions.
	placed := 0
	golden := (math.Sqrt(5) - 1) / 2
	for i := 0; placed < cfg.Count && i < cfg.Count*20; i++ {
		u := math.Mod(float64(i)*golden, 1)
		v := math.Mod(float64(i)*golden*golden, 1)
		pos := Position{
			X: (u*2 - 1) * cfg.Size,
			Z: (v*2 - 1) * cfg.Size,
		}

		// Weighted round-robin over kinds keeps the mix near the target
		// shares without a second sampling pass.
		ki := i % 4
		density := noises[ki].Eval2(pos.X/cfg.Size*3, pos.Z/cfg.Size*3)
		if density < 1-shares[ki]*1.6 {
			continue
		}

		rich := cfg.RichMin
		span := cfg.RichMax - cfg.RichMin
		if span > 0 {
			rich += int(density * float64(span))
			if rich > cfg.RichMax {
				rich = cfg.RichMax
			}
		}

		store.Add(&ResourceNode{
			ID:       uuid.New(),
			Kind:     kinds[ki],
			Position: pos,
			Quantity: rich,
		})
		placed++
	}
	return placed
}
