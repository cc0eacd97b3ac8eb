// Package agents provides the agent data model and its concurrency-safe
// store: wallets, capacity-bounded inventories, needs, carried construction
// payloads, and the tagged behavioral state.
package agents

import (
	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/world"
)

// SocialRank is an agent's position in the social hierarchy.
type SocialRank uint8

const (
	RankKing SocialRank = iota // sovereign, one or two per world
	RankNoble
	RankKnight
	RankSoldier
	RankMerchant
	RankBurgher
	RankCleric
	RankPeasant
)

func (r SocialRank) String() string {
	switch r {
	case RankKing:
		return "king"
	case RankNoble:
		return "noble"
	case RankKnight:
		return "knight"
	case RankSoldier:
		return "soldier"
	case RankMerchant:
		return "merchant"
	case RankBurgher:
		return "burgher"
	case RankCleric:
		return "cleric"
	case RankPeasant:
		return "peasant"
	}
	return "unknown"
}

// Job is an agent's economic activity.
type Job uint8

const (
	JobNone Job = iota
	JobWoodcutter
	JobMiner
	JobFarmer
	JobBuilder
	JobTrader
)

func (j Job) String() string {
	switch j {
	case JobWoodcutter:
		return "woodcutter"
	case JobMiner:
		return "miner"
	case JobFarmer:
		return "farmer"
	case JobBuilder:
		return "builder"
	case JobTrader:
		return "trader"
	}
	return "none"
}

// HarvestNode maps a harvesting job to the node kind it works.
func (j Job) HarvestNode() (world.NodeKind, bool) {
	switch j {
	case JobWoodcutter:
		return world.NodeTree, true
	case JobMiner:
		return world.NodeRock, true
	case JobFarmer:
		return world.NodeFarm, true
	}
	return 0, false
}

// StateKind tags the behavioral state variant.
type StateKind uint8

const (
	StateIdle StateKind = iota
	StateMoving
	StateWorking
	StateFighting
	StateSleeping
	StateEating
	StateTalking
	StateBuilding
	StateTrading
)

func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "idle"
	case StateMoving:
		return "moving"
	case StateWorking:
		return "working"
	case StateFighting:
		return "fighting"
	case StateSleeping:
		return "sleeping"
	case StateEating:
		return "eating"
	case StateTalking:
		return "talking"
	case StateBuilding:
		return "building"
	case StateTrading:
		return "trading"
	}
	return "unknown"
}

// State is the tagged behavioral variant. Target carries the counterpart
// for Fighting/Talking/Building/Trading; Destination carries the waypoint
// for Moving. Unused fields are zero.
type State struct {
	Kind        StateKind       `json:"kind"`
	Target      uuid.UUID       `json:"target,omitempty"`
	Destination *world.Position `json:"destination,omitempty"`
	Task        string          `json:"task,omitempty"`
}

// Idle is the zero state.
var Idle = State{Kind: StateIdle}

// CarryPayload is a resource bundle bound for a specific construction
// site. The bundle starts empty on assignment; quantities appear only once
// material is acquired, which keeps "who I build for" separate from "what
// I hold".
type CarryPayload struct {
	TargetBuilding uuid.UUID                  `json:"target_building"`
	Bundle         map[world.ResourceKind]int `json:"bundle"`
}

// Weight is the carried unit total.
func (p *CarryPayload) Weight() int {
	if p == nil {
		return 0
	}
	w := 0
	for _, qty := range p.Bundle {
		w += qty
	}
	return w
}

// Empty reports whether the payload holds no material.
func (p *CarryPayload) Empty() bool { return p.Weight() == 0 }

// Agent is a simulated person.
type Agent struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`

	Position world.Position `json:"position"`
	Rank     SocialRank     `json:"rank"`
	Job      Job            `json:"job"`
	State    State          `json:"state"`

	Wallet    float64                    `json:"wallet"`
	Inventory map[world.ResourceKind]int `json:"inventory"`
	Needs     map[world.ResourceKind]int `json:"needs"`
	Capacity  int                        `json:"capacity"` // rank-based inventory weight ceiling
	Carrying  *CarryPayload              `json:"carrying,omitempty"`

	Alive    bool   `json:"alive"`
	BornTick uint64 `json:"born_tick"`
}

// InventoryWeight is the unit total across inventory and any carried
// payload; it must never exceed Capacity.
func (a *Agent) InventoryWeight() int {
	w := 0
	for _, qty := range a.Inventory {
		w += qty
	}
	return w + a.Carrying.Weight()
}

// FreeCapacity is the remaining carry headroom.
func (a *Agent) FreeCapacity() int {
	free := a.Capacity - a.InventoryWeight()
	if free < 0 {
		return 0
	}
	return free
}

// Surplus returns how many units above the agent's own need it holds for
// the kind. Needs are kept back; only the rest is for sale.
func (a *Agent) Surplus(kind world.ResourceKind) int {
	s := a.Inventory[kind] - a.Needs[kind]
	if s < 0 {
		return 0
	}
	return s
}

// Shortfall returns how many units below its need the agent holds.
func (a *Agent) Shortfall(kind world.ResourceKind) int {
	s := a.Needs[kind] - a.Inventory[kind]
	if s < 0 {
		return 0
	}
	return s
}
