package engine

import (
	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/agents"
	"github.com/talgya/crownworks/internal/world"
)

// Movement tasks. The slow phases set a destination and a task; the fast
// movement pass walks the agent there and flips the state on arrival.
const (
	taskHarvest = "harvest"
	taskMarket  = "market"
	taskHaul    = "haul"
	taskBuild   = "build"
)

// moveAgents advances every moving agent one step and transitions arrivals
// into the state their task names.
func (s *Simulation) moveAgents(tick uint64) {
	size := s.Cfg.WorldSize
	s.Agents.MutateLiving(func(a *agents.Agent) {
		if a.State.Kind != agents.StateMoving || a.State.Destination == nil {
			return
		}
		dest := *a.State.Destination
		a.Position = a.Position.StepToward(dest, moveSpeed).Clamp(size)
		if a.Position.DistanceTo(dest) > 0 {
			return
		}
		switch a.State.Task {
		case taskHarvest:
			a.State = agents.State{Kind: agents.StateWorking, Target: a.State.Target}
		case taskMarket:
			a.State = agents.State{Kind: agents.StateTrading, Target: a.State.Target}
		case taskHaul, taskBuild:
			a.State = agents.State{Kind: agents.StateBuilding, Target: a.State.Target}
		default:
			a.State = agents.Idle
		}
	})
}

// workNodes runs the harvester loop: idle harvesters pick a node or head
// to market, working ones pull material, arrivals at market sell surplus
// into the market's stock for treasury coin.
func (s *Simulation) workNodes(tick uint64) {
	for _, a := range s.Agents.Living() {
		if a.Carrying != nil {
			continue // construction logistics own this agent
		}
		nodeKind, harvests := a.Job.HarvestNode()
		if !harvests {
			continue
		}

		switch a.State.Kind {
		case agents.StateIdle:
			s.decideHarvester(a, nodeKind)
		case agents.StateWorking:
			s.harvestNode(a, nodeKind)
		case agents.StateTrading:
			s.sellSurplus(tick, a)
		}
	}
}

func (s *Simulation) decideHarvester(a agents.Agent, nodeKind world.NodeKind) {
	yield := nodeKind.Yields()

	// Full of sellable surplus: walk to market first.
	if a.FreeCapacity() == 0 && a.Surplus(yield) > 0 {
		if m, ok := s.Markets.Nearest(a.Position); ok {
			s.sendTo(a.ID, m.Position, taskMarket, m.ID)
			return
		}
	}

	node, ok := s.Nodes.NearestNode(a.Position, nodeKind)
	if !ok {
		return // nothing left to work anywhere
	}
	if a.Position.DistanceTo(node.Position) <= s.Cfg.ArriveRadius {
		s.Agents.Mutate(a.ID, func(ag *agents.Agent) {
			ag.State = agents.State{Kind: agents.StateWorking, Target: node.ID}
		})
		return
	}
	s.sendTo(a.ID, node.Position, taskHarvest, node.ID)
}

func (s *Simulation) harvestNode(a agents.Agent, nodeKind world.NodeKind) {
	want := harvestPerTick
	if free := a.FreeCapacity(); want > free {
		want = free
	}
	if want <= 0 {
		s.Agents.Mutate(a.ID, func(ag *agents.Agent) { ag.State = agents.Idle })
		return
	}
	taken := s.Nodes.Harvest(a.State.Target, want)
	if taken == 0 {
		// Depleted under us; next idle decision finds another node.
		s.Agents.Mutate(a.ID, func(ag *agents.Agent) { ag.State = agents.Idle })
		return
	}
	s.Agents.AddInventory(a.ID, nodeKind.Yields(), taken)
}

// sellSurplus unloads everything above the agent's own needs into the
// market's stock. The market pays out of its treasury; an empty treasury
// simply buys nothing and the goods stay with the agent.
func (s *Simulation) sellSurplus(tick uint64, a agents.Agent) {
	marketID := a.State.Target
	for _, kind := range world.AllResources {
		surplus := a.Surplus(kind)
		if surplus == 0 {
			continue
		}
		_, price, _, ok := s.Markets.StockAndPrice(marketID, kind)
		if !ok || price <= 0 {
			break
		}
		qty, paid := s.Markets.ApplyStockPurchase(marketID, kind, surplus, price)
		if qty == 0 {
			continue
		}
		s.Agents.Mutate(a.ID, func(ag *agents.Agent) {
			ag.Inventory[kind] -= qty
			ag.Wallet += paid
		})
	}
	s.Agents.Mutate(a.ID, func(ag *agents.Agent) { ag.State = agents.Idle })
}

func (s *Simulation) sendTo(id uuid.UUID, dest world.Position, task string, target uuid.UUID) {
	s.Agents.Mutate(id, func(ag *agents.Agent) {
		d := dest
		ag.State = agents.State{
			Kind:        agents.StateMoving,
			Target:      target,
			Destination: &d,
			Task:        task,
		}
	})
}
