// Simulation ties the state containers together and runs the per-cadence
// systems over them. Every phase follows the same locking shape: read a
// copy from one container, compute, write back through another container's
// methods — one lock at a time, never nested.
package engine

import (
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/talgya/crownworks/internal/agents"
	"github.com/talgya/crownworks/internal/config"
	"github.com/talgya/crownworks/internal/economy"
	"github.com/talgya/crownworks/internal/entropy"
	"github.com/talgya/crownworks/internal/lockcheck"
	"github.com/talgya/crownworks/internal/social"
	"github.com/talgya/crownworks/internal/world"
)

const (
	moveSpeed      = 1.5 // world units per fast tick
	harvestPerTick = 2   // units pulled from a node per fast tick
	maxCrew        = 3   // builders recruited per construction order
	maxEvents      = 1000
)

// Simulation holds the complete world state.
type Simulation struct {
	Cfg config.Config
	Rng *entropy.Source

	Agents    *agents.Store
	Markets   *economy.MarketStore
	Buildings *world.BuildingStore
	Kingdoms  *social.KingdomStore
	Currency  *economy.Ledger
	Nodes     *world.NodeStore
	Spawner   *agents.Spawner

	// meta guards the fields below: the simulation goroutine writes them,
	// the HTTP snapshot handlers read them.
	meta     lockcheck.Guarded
	events   []Event
	lastTick uint64
	stats    SimStats
}

// Event is a notable occurrence, kept in a bounded recent-history buffer.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "economy", "construction", "hierarchy", "lifecycle", "wages"
}

// SimStats is the aggregate snapshot refreshed on the very slow cadence.
type SimStats struct {
	Population     int     `json:"population"`
	AgentWealth    float64 `json:"agent_wealth"`
	TreasuryWealth float64 `json:"treasury_wealth"`
	MoneySupply    float64 `json:"money_supply"`
	Buildings      int     `json:"buildings"`
	Completed      int     `json:"completed_buildings"`
	OpenOrders     int     `json:"open_orders"`
	Deaths         int     `json:"deaths"`
	Births         int     `json:"births"`
}

// NewSimulation wires a simulation from its containers.
func NewSimulation(cfg config.Config, rng *entropy.Source, spawner *agents.Spawner) *Simulation {
	return &Simulation{
		Cfg:       cfg,
		Rng:       rng,
		Agents:    agents.NewStore(),
		Markets:   economy.NewMarketStore(),
		Buildings: world.NewBuildingStore(),
		Kingdoms:  social.NewKingdomStore(),
		Currency:  economy.NewLedger(),
		Nodes:     world.NewNodeStore(),
		Spawner:   spawner,
		meta:      lockcheck.NewGuarded(lockcheck.RankMeta),
	}
}

// SetMetaAuditor installs a lock auditor on the events/stats guard for
// tests.
func (s *Simulation) SetMetaAuditor(a lockcheck.Auditor) { s.meta.SetAuditor(a) }

// CurrentTick returns the most recently processed tick.
func (s *Simulation) CurrentTick() uint64 {
	s.meta.RLock()
	defer s.meta.RUnlock()
	return s.lastTick
}

// TickFast runs every tick: movement, harvesting, hauling arrivals.
func (s *Simulation) TickFast(tick uint64) {
	s.meta.Lock()
	s.lastTick = tick
	s.meta.Unlock()
	s.moveAgents(tick)
	s.workNodes(tick)
}

// TickSlow runs the economy and construction cycle.
func (s *Simulation) TickSlow(tick uint64) {
	s.placeOrders(tick)
	s.settleMarkets(tick)
	s.materializeOrders(tick)
	s.builderLogistics(tick)
	s.advanceConstruction(tick)
}

// TickVerySlow runs hierarchy decisions, wages, lifecycle, and reporting.
func (s *Simulation) TickVerySlow(tick uint64) {
	s.kingDecisions(tick)
	s.nobleDecisions(tick)
	s.selfBuildDecisions(tick)
	s.payWages(tick)
	s.feedAndReap(tick)
	s.updateStats()
	s.report(tick)
}

func (s *Simulation) record(tick uint64, category, description string) {
	s.meta.Lock()
	defer s.meta.Unlock()
	s.events = append(s.events, Event{Tick: tick, Description: description, Category: category})
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

// RecentEvents returns up to n of the latest events, newest last.
func (s *Simulation) RecentEvents(n int) []Event {
	s.meta.RLock()
	defer s.meta.RUnlock()
	if n <= 0 || n > len(s.events) {
		n = len(s.events)
	}
	out := make([]Event, n)
	copy(out, s.events[len(s.events)-n:])
	return out
}

// StatsSnapshot returns the aggregates as of the last very-slow refresh.
func (s *Simulation) StatsSnapshot() SimStats {
	s.meta.RLock()
	defer s.meta.RUnlock()
	return s.stats
}

func (s *Simulation) updateStats() {
	buildings := s.Buildings.Snapshot()
	completed := 0
	for _, b := range buildings {
		if b.Complete() {
			completed++
		}
	}
	open := 0
	for _, o := range s.Kingdoms.Orders() {
		if o.Status == social.OrderPending || o.Status == social.OrderInProgress {
			open++
		}
	}
	population := s.Agents.CountLiving()
	agentWealth := s.Agents.TotalWealth()
	treasuries := s.Markets.TotalTreasury()

	s.meta.Lock()
	defer s.meta.Unlock()
	s.stats.Population = population
	s.stats.AgentWealth = agentWealth
	s.stats.TreasuryWealth = treasuries
	s.stats.MoneySupply = agentWealth + treasuries
	s.stats.Buildings = len(buildings)
	s.stats.Completed = completed
	s.stats.OpenOrders = open
}

func (s *Simulation) bumpLifecycle(deaths, births int) {
	s.meta.Lock()
	defer s.meta.Unlock()
	s.stats.Deaths += deaths
	s.stats.Births += births
}

func (s *Simulation) report(tick uint64) {
	st := s.StatsSnapshot()
	cur := s.Currency.Snapshot()

	slog.Info("world report",
		"tick", tick,
		"time", SimTime(tick),
		"population", st.Population,
		"agent_wealth", humanize.CommafWithDigits(st.AgentWealth, 0),
		"treasuries", humanize.CommafWithDigits(st.TreasuryWealth, 0),
		"buildings", st.Buildings,
		"completed", st.Completed,
		"open_orders", st.OpenOrders,
		"deaths", st.Deaths,
		"births", st.Births,
		"money_supply", humanize.CommafWithDigits(cur.TotalSupply, 0),
		"purchasing_power", humanize.CommafWithDigits(cur.PurchasingPower, 1),
		"inflation", humanize.CommafWithDigits(cur.InflationRate*100, 2),
	)

	// Circulating money must equal the ledger's supply: wages are the only
	// faucet and escheat keeps death from being a drain.
	if drift := st.MoneySupply - cur.TotalSupply; drift > 0.01 || drift < -0.01 {
		slog.Warn("money supply drift", "tick", tick, "circulating", st.MoneySupply, "ledger", cur.TotalSupply)
	}

	s.Currency.Measure()
}
