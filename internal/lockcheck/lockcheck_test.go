package lockcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialAcquisitionIsClean(t *testing.T) {
	rec := &Recorder{}

	agents := NewGuarded(RankAgents)
	markets := NewGuarded(RankMarkets)
	agents.SetAuditor(rec)
	markets.SetAuditor(rec)

	// Acquire, release, then the next container: the only legal shape.
	agents.Lock()
	agents.Unlock()
	markets.Lock()
	markets.Unlock()
	agents.RLock()
	agents.RUnlock()

	assert.Empty(t, rec.Violations)
	assert.Equal(t, 1, rec.MaxDepth)
	assert.Equal(t, 3, rec.Acquires)
}

func TestNestedWriteIsFlagged(t *testing.T) {
	rec := &Recorder{}

	agents := NewGuarded(RankAgents)
	markets := NewGuarded(RankMarkets)
	agents.SetAuditor(rec)
	markets.SetAuditor(rec)

	agents.Lock()
	markets.Lock() // nested: holding agents while taking markets
	markets.Unlock()
	agents.Unlock()

	require.Len(t, rec.Violations, 1)
	assert.Contains(t, rec.Violations[0], "while holding agents")
	assert.Equal(t, 2, rec.MaxDepth)
}

func TestUnmatchedReleaseIsFlagged(t *testing.T) {
	rec := &Recorder{}
	rec.Released(RankCurrency, true)
	require.Len(t, rec.Violations, 1)
	assert.Contains(t, rec.Violations[0], "not held")
}

func TestRankNames(t *testing.T) {
	assert.Equal(t, "agents", RankAgents.String())
	assert.Equal(t, "nodes", RankNodes.String())
	assert.Equal(t, "rank(99)", Rank(99).String())
}
