package social

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crownworks/internal/agents"
	"github.com/talgya/crownworks/internal/world"
)

var testThresholds = Thresholds{
	FoodPerCapitaMin:     15,
	MaterialPerCapitaMin: 20,
	PopulationLarge:      150,
}

func TestGoalLadderFoodBeatsMaterials(t *testing.T) {
	// Both stores are short; the food rule sits higher on the ladder and
	// must win regardless of how deep the material deficit is.
	obs := Observables{FoodPerCapita: 8, MaterialsPerCapita: 3, Population: 100}
	assert.Equal(t, GrowPopulation, ResolveGoal(obs, testThresholds))
}

func TestGoalLadderOrder(t *testing.T) {
	cases := []struct {
		name string
		obs  Observables
		want Goal
	}{
		{"hostilities trump everything", Observables{Hostilities: true, FoodPerCapita: 1, MaterialsPerCapita: 1}, DefendTerritory},
		{"food shortage", Observables{FoodPerCapita: 14.9, MaterialsPerCapita: 100}, GrowPopulation},
		{"material shortage", Observables{FoodPerCapita: 50, MaterialsPerCapita: 19}, ExpandResources},
		{"large population", Observables{FoodPerCapita: 50, MaterialsPerCapita: 50, Population: 151}, ImproveInfrastructure},
		{"nothing pressing", Observables{FoodPerCapita: 50, MaterialsPerCapita: 50, Population: 100}, Consolidate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveGoal(tc.obs, testThresholds))
		})
	}
}

func TestGoalLadderIsDeterministic(t *testing.T) {
	obs := Observables{FoodPerCapita: 10, MaterialsPerCapita: 10, Population: 200}
	first := ResolveGoal(obs, testThresholds)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, ResolveGoal(obs, testThresholds))
	}
}

func TestPeasantCannotOrderFortifications(t *testing.T) {
	assert.False(t, CanOrder(agents.RankPeasant, world.Walls))
	assert.False(t, CanOrder(agents.RankPeasant, world.Barracks))
	assert.False(t, CanOrder(agents.RankPeasant, world.MarketHall))
	assert.True(t, CanOrder(agents.RankPeasant, world.PeasantHouse))
	assert.True(t, CanOrder(agents.RankPeasant, world.FarmingShed))
}

func TestPermissionMatrixByRank(t *testing.T) {
	// Sovereign orders anything.
	for _, bt := range []world.BuildingType{world.Walls, world.MarketHall, world.PeasantHouse, world.NobleEstate} {
		assert.True(t, CanOrder(agents.RankKing, bt))
	}

	assert.True(t, CanOrder(agents.RankNoble, world.Barracks))
	assert.True(t, CanOrder(agents.RankNoble, world.NobleEstate))

	assert.True(t, CanOrder(agents.RankMerchant, world.MarketHall))
	assert.True(t, CanOrder(agents.RankMerchant, world.Warehouse))
	assert.False(t, CanOrder(agents.RankMerchant, world.Walls))

	assert.False(t, CanOrder(agents.RankSoldier, world.Barracks))
	assert.True(t, CanOrder(agents.RankSoldier, world.PeasantHouse))

	// Same inputs, same answer, always.
	for i := 0; i < 50; i++ {
		require.False(t, CanOrder(agents.RankPeasant, world.Walls))
	}
}

func TestOrderLifecycle(t *testing.T) {
	store := NewKingdomStore()
	noble := uuid.New()
	o := NewNobleOrder(noble, world.Barracks, world.Position{X: 5}, 0.8)
	store.AddOrder(o)

	require.Len(t, store.PendingOrders(), 1)
	assert.Equal(t, 1, store.OpenOrderCount(noble))

	buildingID := uuid.New()
	crew := []uuid.UUID{uuid.New(), uuid.New()}
	require.True(t, store.StartOrder(o.ID, buildingID, crew))
	assert.False(t, store.StartOrder(o.ID, buildingID, crew), "only pending orders start")
	assert.Empty(t, store.PendingOrders())
	assert.Equal(t, 1, store.OpenOrderCount(noble), "in-progress still counts as open")

	assert.Equal(t, 1, store.CompleteForBuilding(buildingID))
	assert.Zero(t, store.OpenOrderCount(noble))

	// Completed is terminal.
	assert.Zero(t, store.CompleteForBuilding(buildingID))
	assert.Zero(t, store.CancelForBuilding(buildingID))
	orders := store.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, OrderCompleted, orders[0].Status)
}

func TestCancelPaths(t *testing.T) {
	store := NewKingdomStore()
	noble := uuid.New()

	// Site destroyed mid-build.
	a := NewNobleOrder(noble, world.Farm, world.Position{}, 0.5)
	store.AddOrder(a)
	site := uuid.New()
	store.StartOrder(a.ID, site, nil)
	assert.Equal(t, 1, store.CancelForBuilding(site))

	// Noble dies with work open.
	b := NewNobleOrder(noble, world.Mine, world.Position{}, 0.5)
	store.AddOrder(b)
	assert.Equal(t, 1, store.CancelOrdersBy(noble))
	assert.Zero(t, store.OpenOrderCount(noble))
}

func TestEnsureKingdomIsLazyAndIdempotent(t *testing.T) {
	store := NewKingdomStore()
	king := uuid.New()

	k1 := store.EnsureKingdom(king, world.Position{X: 3})
	k2 := store.EnsureKingdom(king, world.Position{X: 99})
	assert.Equal(t, k1.ID, k2.ID, "a sovereign founds at most one realm")
	assert.Equal(t, 3.0, k2.TerritoryCenter.X, "the original center sticks")
	assert.Equal(t, Consolidate, k1.CurrentGoal)

	noble := uuid.New()
	store.AttachNoble(k1.ID, noble)
	store.AttachNoble(k1.ID, noble)
	got, ok := store.KingdomOf(noble)
	require.True(t, ok)
	assert.Len(t, got.NobleIDs, 1, "attachment is idempotent")

	_, ok = store.KingdomOf(uuid.New())
	assert.False(t, ok)
}

func TestSetGoalReportsChanges(t *testing.T) {
	store := NewKingdomStore()
	k := store.EnsureKingdom(uuid.New(), world.Position{})

	assert.True(t, store.SetGoal(k.ID, DefendTerritory, 0.9, 100))
	assert.False(t, store.SetGoal(k.ID, DefendTerritory, 0.9, 200), "same goal is not a change")

	got := store.Kingdoms()[0]
	assert.Equal(t, DefendTerritory, got.CurrentGoal)
	assert.Equal(t, uint64(100), got.GoalSetTick, "tick records the change, not the repeat")
}

func TestGoalBuildingCandidates(t *testing.T) {
	assert.Contains(t, DefendTerritory.BuildingTypes(), world.Walls)
	assert.Contains(t, GrowPopulation.BuildingTypes(), world.Farm)
	assert.Contains(t, ImproveInfrastructure.BuildingTypes(), world.MarketHall)
	assert.Empty(t, Consolidate.BuildingTypes(), "consolidation starts no projects")
}
