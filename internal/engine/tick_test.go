package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEngineSpeedAndStopFromOtherGoroutines(t *testing.T) {
	eng := NewEngine(10, 60, time.Millisecond)
	eng.OnFast = func(tick uint64) {}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		eng.Run()
	}()

	// Let the loop come up before poking at it.
	for !eng.Running() {
		time.Sleep(time.Millisecond)
	}

	eng.SetSpeed(4)
	assert.InDelta(t, 4.0, eng.Speed(), 1e-9)

	eng.Stop()
	wg.Wait()
	assert.False(t, eng.Running())
}

func TestEngineCadences(t *testing.T) {
	eng := NewEngine(10, 60, time.Millisecond)

	var fast, slow, verySlow int
	eng.OnFast = func(tick uint64) { fast++ }
	eng.OnSlow = func(tick uint64) { slow++ }
	eng.OnVerySlow = func(tick uint64) { verySlow++ }

	for i := 0; i < 120; i++ {
		eng.Step()
	}

	assert.Equal(t, 120, fast)
	assert.Equal(t, 12, slow)
	assert.Equal(t, 2, verySlow)
}

func TestSimTime(t *testing.T) {
	assert.Equal(t, "Day 1, 0:00", SimTime(0))
	assert.Equal(t, "Day 1, 1:30", SimTime(90))
	assert.Equal(t, "Day 2, 0:00", SimTime(1440))
}
