package engine

import (
	"log/slog"

	"github.com/talgya/crownworks/internal/agents"
	"github.com/talgya/crownworks/internal/config"
	"github.com/talgya/crownworks/internal/economy"
	"github.com/talgya/crownworks/internal/entropy"
	"github.com/talgya/crownworks/internal/world"
)

// Bootstrap builds a fresh world from configuration: resource fields,
// markets, the seeded population with its kingdoms, and the currency
// baseline. The same seed always yields the same world.
func Bootstrap(cfg config.Config) *Simulation {
	rng := entropy.NewSource(cfg.Seed)
	spawner := agents.NewSpawner(rng, cfg.CarryCapacity, cfg.WorldSize)
	sim := NewSimulation(cfg, rng, spawner)

	placed := world.GenerateNodes(world.GenConfig{
		Size:    cfg.WorldSize,
		Count:   cfg.NodeCount,
		RichMin: cfg.NodeRichMin,
		RichMax: cfg.NodeRichMax,
		Seed:    cfg.Seed,
	}, sim.Nodes)

	basePrices := make(map[world.ResourceKind]float64, len(cfg.BasePrices))
	for name, price := range cfg.BasePrices {
		if kind, ok := world.ResourceKindFromString(name); ok {
			basePrices[kind] = price
		}
	}

	// Three venues spread across the map; harvesters and builders route
	// to whichever is nearest.
	half := cfg.WorldSize / 2
	for _, venue := range []struct {
		name string
		pos  world.Position
		spec economy.Specialty
	}{
		{"Crown Square", world.Position{}, economy.SpecGeneral},
		{"Harvest Row", world.Position{X: -half, Z: half}, economy.SpecFood},
		{"Masons' Yard", world.Position{X: half, Z: -half}, economy.SpecMaterials},
	} {
		sim.Markets.Add(economy.NewMarket(venue.name, venue.pos, venue.spec, basePrices, cfg.MarketTreasury))
	}

	spawned := spawner.SpawnPopulation(sim.Agents, cfg.SpawnCount, 0)
	for _, a := range spawned {
		if a.Rank == agents.RankKing {
			sim.Kingdoms.EnsureKingdom(a.ID, a.Position)
		}
	}

	initial := sim.Agents.TotalWealth() + sim.Markets.TotalTreasury()
	sim.Currency.SetInitialSupply(initial)

	slog.Info("world bootstrapped",
		"seed", cfg.Seed,
		"nodes", placed,
		"population", sim.Agents.CountLiving(),
		"markets", len(sim.Markets.IDs()),
		"initial_supply", initial,
	)
	sim.updateStats()
	return sim
}
