// Package config holds the simulation tunables. Thresholds, wages, and
// rates are configuration, not contracts: the mechanisms that consume them
// are fixed, the numbers are not.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full tunable surface of the simulator.
type Config struct {
	Seed int64 `yaml:"seed"`

	// Tick cadences, expressed in fast ticks.
	SlowEvery     uint64 `yaml:"slow_every"`      // economy + construction
	VerySlowEvery uint64 `yaml:"very_slow_every"` // hierarchy + wages + reports

	// World generation.
	WorldSize   float64 `yaml:"world_size"`   // half-extent of the square world
	NodeCount   int     `yaml:"node_count"`   // target harvestable node count
	NodeRichMin int     `yaml:"node_rich_min"`
	NodeRichMax int     `yaml:"node_rich_max"`

	// Population.
	SpawnCount int `yaml:"spawn_count"`

	// Economy.
	BasePrices     map[string]float64 `yaml:"base_prices"`
	PriceClampMin  float64            `yaml:"price_clamp_min"`  // × base
	PriceClampMax  float64            `yaml:"price_clamp_max"`  // × base
	PriceStep      float64            `yaml:"price_step"`       // fraction of gap closed per reprice
	ReferenceStock float64            `yaml:"reference_stock"`  // scarcity baseline when book is empty
	MarketTreasury float64            `yaml:"market_treasury"`  // seed treasury per market

	// Wages per rank, minted on the very-slow cadence.
	Wages map[string]float64 `yaml:"wages"`

	// Construction.
	ProgressPerBuilder float64 `yaml:"progress_per_builder"` // progress fraction per builder per slow tick
	BuildRadius        float64 `yaml:"build_radius"`         // builder counts as present within this range
	ArriveRadius       float64 `yaml:"arrive_radius"`        // market / node arrival range

	// Carry capacity (inventory weight ceiling) per rank.
	CarryCapacity map[string]int `yaml:"carry_capacity"`

	// Hierarchy thresholds and odds.
	FoodPerCapitaMin     float64 `yaml:"food_per_capita_min"`
	MaterialPerCapitaMin float64 `yaml:"material_per_capita_min"`
	PopulationLarge      int     `yaml:"population_large"`
	NobleOrderChance     float64 `yaml:"noble_order_chance"`   // per noble per hierarchy tick
	SelfBuildChance      float64 `yaml:"self_build_chance"`    // per laborer per hierarchy tick
	SelfBuildRadius      float64 `yaml:"self_build_radius"`    // qualifying-structure search range
	OrderSiteRadius      float64 `yaml:"order_site_radius"`    // how far from the noble a site may land

	// Persistence.
	DBPath        string `yaml:"db_path"`
	SnapshotEvery uint64 `yaml:"snapshot_every"` // fast ticks between auto-saves, 0 = off

	// API.
	APIPort  int    `yaml:"api_port"`
	AdminKey string `yaml:"admin_key"`
}

// Default returns the stock tuning.
func Default() Config {
	return Config{
		Seed:          42,
		SlowEvery:     10,
		VerySlowEvery: 600,

		WorldSize:   100,
		NodeCount:   120,
		NodeRichMin: 200,
		NodeRichMax: 800,

		SpawnCount: 100,

		BasePrices: map[string]float64{
			"wood": 5, "stone": 3, "iron": 15, "food": 10,
		},
		PriceClampMin:  0.5,
		PriceClampMax:  5.0,
		PriceStep:      0.25,
		ReferenceStock: 100,
		MarketTreasury: 500,

		Wages: map[string]float64{
			"king": 20, "noble": 12, "knight": 8, "soldier": 6,
			"merchant": 7, "burgher": 7, "cleric": 5, "peasant": 4,
		},

		ProgressPerBuilder: 0.02,
		BuildRadius:        5,
		ArriveRadius:       3,

		CarryCapacity: map[string]int{
			"king": 10, "noble": 15, "knight": 25, "soldier": 25,
			"merchant": 30, "burgher": 25, "cleric": 15, "peasant": 20,
		},

		FoodPerCapitaMin:     15,
		MaterialPerCapitaMin: 20,
		PopulationLarge:      150,
		NobleOrderChance:     0.25,
		SelfBuildChance:      0.10,
		SelfBuildRadius:      20,
		OrderSiteRadius:      15,

		DBPath:        "data/crownworks.db",
		SnapshotEvery: 6000,

		APIPort: 8080,
	}
}

// Load reads a yaml config over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.SlowEvery == 0 || c.VerySlowEvery == 0 {
		return fmt.Errorf("cadences must be positive")
	}
	if c.PriceClampMin <= 0 || c.PriceClampMax < c.PriceClampMin {
		return fmt.Errorf("bad price clamp [%v, %v]", c.PriceClampMin, c.PriceClampMax)
	}
	if c.PriceStep <= 0 || c.PriceStep > 1 {
		return fmt.Errorf("price step must be in (0, 1]")
	}
	if c.ProgressPerBuilder <= 0 || c.ProgressPerBuilder > 1 {
		return fmt.Errorf("progress per builder must be in (0, 1]")
	}
	return nil
}
