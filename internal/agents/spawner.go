package agents

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/entropy"
	"github.com/talgya/crownworks/internal/world"
)

// rankShares is the social pyramid per 100 agents.
var rankShares = []struct {
	rank  SocialRank
	count int
}{
	{RankKing, 2},
	{RankNoble, 4},
	{RankKnight, 8},
	{RankSoldier, 14},
	{RankMerchant, 12},
	{RankBurgher, 10},
	{RankCleric, 4},
	{RankPeasant, 46},
}

// startingWallet seeds a wallet by rank.
func startingWallet(r SocialRank) float64 {
	switch r {
	case RankKing:
		return 1000
	case RankNoble:
		return 500
	case RankKnight:
		return 200
	case RankMerchant, RankBurgher:
		return 150
	case RankSoldier:
		return 100
	case RankCleric:
		return 80
	}
	return 50
}

var givenNames = []string{
	"Aldric", "Bertrand", "Cedric", "Daria", "Edwyn", "Fiora", "Gareth",
	"Helena", "Isolde", "Jorund", "Katrin", "Leofric", "Mira", "Nolan",
	"Osric", "Petra", "Quentin", "Rosalind", "Sven", "Tamsin", "Ulric",
	"Vera", "Wendel", "Ysolde",
}

var familyNames = []string{
	"Ashdown", "Blackwood", "Coldwater", "Dunmore", "Eastgate", "Fenwick",
	"Greymoor", "Hartley", "Ironfield", "Kettleby", "Longacre", "Marshwood",
	"Northfell", "Oakhurst", "Pemberton", "Quill", "Ravensdale", "Stonebrook",
	"Thornby", "Underhill", "Wexford", "Yarrow",
}

// Spawner creates agents with rank-seeded wallets, needs, and capacities.
type Spawner struct {
	rng        *entropy.Source
	capacities map[string]int // rank name → carry capacity
	worldSize  float64
	nextName   int
}

// NewSpawner creates a spawner. capacities is keyed by SocialRank.String().
func NewSpawner(rng *entropy.Source, capacities map[string]int, worldSize float64) *Spawner {
	return &Spawner{rng: rng, capacities: capacities, worldSize: worldSize}
}

// SpawnPopulation creates count agents following the social pyramid and
// adds them to the store. Returns the spawned agents for wiring (the kings
// seed kingdoms).
func (sp *Spawner) SpawnPopulation(store *Store, count int, bornTick uint64) []*Agent {
	var out []*Agent
	for _, share := range rankShares {
		n := share.count * count / 100
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			a := sp.Spawn(share.rank, bornTick)
			store.Add(a)
			out = append(out, a)
		}
	}
	return out
}

// Spawn creates one agent of the given rank at a random position.
func (sp *Spawner) Spawn(rank SocialRank, bornTick uint64) *Agent {
	job := sp.jobFor(rank)
	a := &Agent{
		ID:   uuid.New(),
		Name: sp.name(),
		Position: world.Position{
			X: sp.rng.Range(-sp.worldSize, sp.worldSize),
			Z: sp.rng.Range(-sp.worldSize, sp.worldSize),
		},
		Rank:      rank,
		Job:       job,
		State:     Idle,
		Wallet:    startingWallet(rank),
		Inventory: make(map[world.ResourceKind]int),
		Needs:     needsFor(job),
		Capacity:  sp.capacityFor(rank),
		Alive:     true,
		BornTick:  bornTick,
	}
	return a
}

func (sp *Spawner) jobFor(rank SocialRank) Job {
	switch rank {
	case RankMerchant, RankBurgher:
		return JobTrader
	case RankPeasant:
		switch sp.rng.Intn(4) {
		case 0:
			return JobWoodcutter
		case 1:
			return JobMiner
		case 2:
			return JobFarmer
		default:
			return JobBuilder
		}
	}
	return JobNone
}

// needsFor returns the minimum stock an agent tries to keep by job.
// Everyone keeps food back; harvesters keep tool material.
func needsFor(job Job) map[world.ResourceKind]int {
	needs := map[world.ResourceKind]int{world.Food: 5}
	switch job {
	case JobBuilder:
		needs[world.Wood] = 2
		needs[world.Stone] = 2
	case JobFarmer:
		needs[world.Wood] = 2
	case JobWoodcutter, JobMiner:
		needs[world.Iron] = 1
	}
	return needs
}

func (sp *Spawner) capacityFor(rank SocialRank) int {
	if c, ok := sp.capacities[rank.String()]; ok {
		return c
	}
	return 20
}

func (sp *Spawner) name() string {
	sp.nextName++
	given := givenNames[sp.rng.Intn(len(givenNames))]
	family := familyNames[sp.rng.Intn(len(familyNames))]
	if sp.nextName > len(givenNames)*len(familyNames) {
		return fmt.Sprintf("%s %s %d", given, family, sp.nextName)
	}
	return fmt.Sprintf("%s %s", given, family)
}
