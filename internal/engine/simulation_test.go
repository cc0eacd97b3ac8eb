package engine

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crownworks/internal/agents"
	"github.com/talgya/crownworks/internal/config"
	"github.com/talgya/crownworks/internal/economy"
	"github.com/talgya/crownworks/internal/entropy"
	"github.com/talgya/crownworks/internal/lockcheck"
	"github.com/talgya/crownworks/internal/social"
	"github.com/talgya/crownworks/internal/world"
)

func testSim(t *testing.T) *Simulation {
	t.Helper()
	cfg := config.Default()
	cfg.SpawnCount = 0 // tests add their own cast
	rng := entropy.NewSource(cfg.Seed)
	return NewSimulation(cfg, rng, agents.NewSpawner(rng, cfg.CarryCapacity, cfg.WorldSize))
}

func addMarket(s *Simulation, treasury float64) *economy.Market {
	m := economy.NewMarket("test square", world.Position{}, economy.SpecGeneral,
		map[world.ResourceKind]float64{world.Wood: 5, world.Stone: 3, world.Iron: 15, world.Food: 10},
		treasury)
	s.Markets.Add(m)
	return m
}

func addAgent(s *Simulation, rank agents.SocialRank, job agents.Job, wallet float64, capacity int) *agents.Agent {
	a := s.Spawner.Spawn(rank, 0)
	a.Job = job
	a.Wallet = wallet
	a.Capacity = capacity
	a.Position = world.Position{}
	a.Needs = map[world.ResourceKind]int{}
	s.Agents.Add(a)
	return a
}

func TestSettlementCycleEndToEnd(t *testing.T) {
	sim := testSim(t)
	m := addMarket(sim, 500)

	seller := addAgent(sim, agents.RankPeasant, agents.JobWoodcutter, 0, 100)
	buyer := addAgent(sim, agents.RankPeasant, agents.JobBuilder, 200, 100)
	sim.Agents.Mutate(seller.ID, func(a *agents.Agent) { a.Inventory[world.Wood] = 50 })

	_, err := sim.Markets.PlaceOrder(m.ID, economy.Sell, seller.ID, world.Wood, 20, 4.5, 50)
	require.NoError(t, err)
	_, err = sim.Markets.PlaceOrder(m.ID, economy.Buy, buyer.ID, world.Wood, 20, 6.0, 0)
	require.NoError(t, err)

	sim.settleMarkets(1)

	// One trade at the mean of the limits: 20 × 5.25 = 105 coin moved.
	b, _ := sim.Agents.Get(buyer.ID)
	s, _ := sim.Agents.Get(seller.ID)
	assert.InDelta(t, 95.0, b.Wallet, 1e-9)
	assert.InDelta(t, 105.0, s.Wallet, 1e-9)
	assert.Equal(t, 20, b.Inventory[world.Wood])
	assert.Equal(t, 30, s.Inventory[world.Wood])

	got, _ := sim.Markets.Get(m.ID)
	assert.Equal(t, uint64(1), got.Transactions)
	assert.Empty(t, got.Buys)
	assert.Empty(t, got.Sells)

	cur := sim.Currency.Snapshot()
	assert.InDelta(t, 105.0, cur.TxnVolume, 1e-9)
	assert.Equal(t, uint64(1), cur.TxnCount)
}

func TestBuilderHaulsInCapacityTrips(t *testing.T) {
	sim := testSim(t)
	m := addMarket(sim, 0)

	// Shelves stocked with everything a peasant house needs (wood 30,
	// stone 10); the builder pays out of pocket.
	creditStock(sim, m.ID, world.Wood, 100)
	creditStock(sim, m.ID, world.Stone, 10)

	site := world.NewBuilding(world.PeasantHouse, "house", world.Owner{}, world.Position{})
	sim.Buildings.Add(site)

	builder := addAgent(sim, agents.RankPeasant, agents.JobBuilder, 10000, 20)
	sim.assignBuilder(builder.ID, site.ID)

	// Market, site, and builder share a position, so every slow pass is
	// either a buy or a delivery with no walking in between.
	trips := 0
	for i := 0; i < 40; i++ {
		before, _ := sim.Agents.Get(builder.ID)
		sim.builderLogistics(uint64(i))
		after, _ := sim.Agents.Get(builder.ID)
		if after.Carrying != nil && !after.Carrying.Empty() && (before.Carrying == nil || before.Carrying.Empty()) {
			trips++
		}
		b, _ := sim.Buildings.Get(site.ID)
		for kind, req := range b.Required {
			require.LessOrEqual(t, b.Delivered[kind], req, "on-site material never exceeds the requirement")
		}
		if done := b.Remaining(); len(done) == 0 {
			break
		}
	}

	b, _ := sim.Buildings.Get(site.ID)
	assert.Empty(t, b.Remaining(), "the full bill of materials arrives")
	// 40 units of material at 20 carry capacity: two full loads.
	assert.Equal(t, 2, trips)
}

func TestConstructionAdvanceScalesWithCrew(t *testing.T) {
	sim := testSim(t)
	site := world.NewBuilding(world.FarmingShed, "shed", world.Owner{}, world.Position{})
	sim.Buildings.Add(site)
	sim.Buildings.Deliver(site.ID, site.Type.RequiredResources())

	for i := 0; i < 3; i++ {
		b := addAgent(sim, agents.RankPeasant, agents.JobBuilder, 0, 20)
		sim.assignBuilder(b.ID, site.ID)
	}

	sim.advanceConstruction(1)
	b, _ := sim.Buildings.Get(site.ID)
	assert.InDelta(t, 3*sim.Cfg.ProgressPerBuilder, b.Progress, 1e-9)
}

func TestCompletionReleasesCrewAndClosesOrders(t *testing.T) {
	sim := testSim(t)
	noble := addAgent(sim, agents.RankNoble, agents.JobNone, 500, 15)

	order := newTestOrder(sim, noble.ID, world.FarmingShed)
	site := world.NewBuilding(world.FarmingShed, "shed", world.Owner{}, world.Position{})
	sim.Buildings.Add(site)

	builder := addAgent(sim, agents.RankPeasant, agents.JobBuilder, 0, 20)
	sim.assignBuilder(builder.ID, site.ID)
	sim.Kingdoms.StartOrder(order, site.ID, nil)

	// Drive it to completion with constant resupply.
	for i := 0; i < 200; i++ {
		sim.Buildings.Deliver(site.ID, site.Type.RequiredResources())
		sim.advanceConstruction(uint64(i))
		if b, _ := sim.Buildings.Get(site.ID); b.Complete() {
			break
		}
	}

	b, _ := sim.Buildings.Get(site.ID)
	require.True(t, b.Complete())

	released, _ := sim.Agents.Get(builder.ID)
	assert.Nil(t, released.Carrying, "crew released on completion")

	assert.Zero(t, sim.Kingdoms.OpenOrderCount(noble.ID), "order marked completed")
}

func TestTickCycleHoldsOneLockAtATime(t *testing.T) {
	cfg := config.Default()
	cfg.SpawnCount = 40
	cfg.NodeCount = 30
	sim := Bootstrap(cfg)

	rec := &lockcheck.Recorder{}
	sim.Agents.SetAuditor(rec)
	sim.Markets.SetAuditor(rec)
	sim.Buildings.SetAuditor(rec)
	sim.Kingdoms.SetAuditor(rec)
	sim.Currency.SetAuditor(rec)
	sim.Nodes.SetAuditor(rec)
	sim.SetMetaAuditor(rec)

	for tick := uint64(1); tick <= 60; tick++ {
		sim.TickFast(tick)
		if tick%10 == 0 {
			sim.TickSlow(tick)
		}
		if tick%30 == 0 {
			sim.TickVerySlow(tick)
		}
	}

	assert.Empty(t, rec.Violations)
	assert.Equal(t, 1, rec.MaxDepth, "no code path ever holds two container write locks")
	assert.Positive(t, rec.Acquires)
}

// Snapshot accessors serve the HTTP handlers from their own goroutines
// while the simulation goroutine ticks. Run under -race.
func TestSnapshotReadersAreSafeDuringTicks(t *testing.T) {
	cfg := config.Default()
	cfg.SpawnCount = 30
	cfg.NodeCount = 20
	sim := Bootstrap(cfg)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				_ = sim.RecentEvents(10)
				_ = sim.StatsSnapshot()
				_ = sim.CurrentTick()
			}
		}
	}()

	for tick := uint64(1); tick <= 300; tick++ {
		sim.TickFast(tick)
		if tick%10 == 0 {
			sim.TickSlow(tick)
		}
		if tick%60 == 0 {
			sim.TickVerySlow(tick)
		}
	}
	close(done)
	wg.Wait()

	assert.Equal(t, uint64(300), sim.CurrentTick())
	assert.Positive(t, sim.StatsSnapshot().Population)
}

// An agent who dies with orders still queued must not leave them behind:
// the lifecycle pass purges its bids and asks from every book.
func TestDeadAgentsLeaveTheBooks(t *testing.T) {
	sim := testSim(t)
	m := addMarket(sim, 500)

	seller := addAgent(sim, agents.RankPeasant, agents.JobWoodcutter, 40, 100)
	sim.Agents.Mutate(seller.ID, func(a *agents.Agent) { a.Inventory[world.Wood] = 10 })
	_, err := sim.Markets.PlaceOrder(m.ID, economy.Sell, seller.ID, world.Wood, 10, 4.0, 10)
	require.NoError(t, err)

	// No food anywhere, so the seller starves; death is probabilistic per
	// cycle, so run the lifecycle until it lands.
	for i := uint64(1); i <= 2000 && sim.Agents.CountLiving() > 0; i++ {
		sim.feedAndReap(i)
	}
	require.Zero(t, sim.Agents.CountLiving(), "the unfed seller dies")

	buys, sells, ok := sim.Markets.BookCopy(m.ID)
	require.True(t, ok)
	assert.Empty(t, buys)
	assert.Empty(t, sells, "the dead seller's ask is purged")

	got, _ := sim.Markets.Get(m.ID)
	assert.InDelta(t, 540.0, got.Treasury, 1e-9, "the wallet escheats to the market")
}

func TestMoneyIsConservedAcrossTheCycle(t *testing.T) {
	cfg := config.Default()
	cfg.SpawnCount = 40
	cfg.NodeCount = 30
	sim := Bootstrap(cfg)

	check := func(tick uint64) {
		circulating := sim.Agents.TotalWealth() + sim.Markets.TotalTreasury()
		assert.InDelta(t, sim.Currency.Snapshot().TotalSupply, circulating, 0.01,
			"tick %d: circulating money equals ledger supply", tick)
	}
	check(0)

	for tick := uint64(1); tick <= 120; tick++ {
		sim.TickFast(tick)
		if tick%10 == 0 {
			sim.TickSlow(tick)
		}
		if tick%60 == 0 {
			sim.TickVerySlow(tick)
		}
		check(tick)
	}
}

func TestGoalFollowsScarcityObservables(t *testing.T) {
	sim := testSim(t)
	addMarket(sim, 500)
	king := addAgent(sim, agents.RankKing, agents.JobNone, 1000, 10)

	// A hungry world: almost no food anywhere.
	for i := 0; i < 10; i++ {
		addAgent(sim, agents.RankPeasant, agents.JobFarmer, 50, 20)
	}

	sim.kingDecisions(1)

	kingdom, ok := sim.Kingdoms.KingdomOf(king.ID)
	require.True(t, ok)
	assert.Equal(t, "grow_population", kingdom.CurrentGoal.String())
}

func TestWagesMintIntoSupply(t *testing.T) {
	sim := testSim(t)
	addAgent(sim, agents.RankKing, agents.JobNone, 0, 10)
	addAgent(sim, agents.RankPeasant, agents.JobFarmer, 0, 20)
	sim.Currency.SetInitialSupply(0)

	sim.payWages(1)

	// King 20 + peasant 4 from the default wage table.
	assert.InDelta(t, 24.0, sim.Agents.TotalWealth(), 1e-9)
	assert.InDelta(t, 24.0, sim.Currency.Snapshot().TotalSupply, 1e-9)
	assert.InDelta(t, 24.0, sim.Currency.Snapshot().MintTotal, 1e-9)
}

// creditStock places goods on a market's shelves, standing in for earlier
// harvester sales: the purchase is funded and then drains the same amount
// back out of the treasury, leaving only the stock.
func creditStock(sim *Simulation, marketID uuid.UUID, kind world.ResourceKind, qty int) {
	sim.Markets.CreditTreasury(marketID, float64(qty))
	sim.Markets.ApplyStockPurchase(marketID, kind, qty, 1)
}

func newTestOrder(sim *Simulation, nobleID uuid.UUID, t world.BuildingType) uuid.UUID {
	o := social.NewNobleOrder(nobleID, t, world.Position{}, 0.5)
	sim.Kingdoms.AddOrder(o)
	return o.ID
}
