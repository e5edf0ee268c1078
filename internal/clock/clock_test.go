package clock

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	c := New(4)
	assert.Equal(t, uint64(5), c.Sequence)
	assert.LessOrEqual(t, c.Seed, uint32(SeedMask))
	assert.WithinDuration(t, time.Now(), c.Epoch, time.Minute)
}

func TestNewAtMasksSeed(t *testing.T) {
	c := NewAt(0, epoch, 0xffffffff)
	assert.Equal(t, uint32(SeedMask), c.Seed)
	assert.Equal(t, uint64(1), c.Sequence)
}

func TestElapsedAndPhase(t *testing.T) {
	c := NewAt(0, epoch, 1)
	assert.Equal(t, 1500*time.Millisecond, c.Elapsed(epoch.Add(1500*time.Millisecond)))

	assert.InDelta(t, 0.5, c.Phase(epoch.Add(1500*time.Millisecond), time.Second), 1e-9)
	assert.InDelta(t, 0.75, c.Phase(epoch.Add(-250*time.Millisecond), time.Second), 1e-9)
	assert.Zero(t, c.Phase(epoch.Add(3*time.Second), time.Second))
	assert.Zero(t, c.Phase(epoch, 0))
}

func TestStale(t *testing.T) {
	a := NewAt(0, epoch, 7)
	b := NewAt(0, epoch.Add(time.Hour), 9)
	assert.False(t, a.Stale(b))
	assert.True(t, a.Stale(NewAt(a.Sequence, epoch, 7)))
}

func TestJSONRoundTrip(t *testing.T) {
	c := NewAt(41, epoch.Add(123*time.Millisecond), 123456)
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"epoch_ms":1772395200123,"seed":123456,"sequence":42}`, string(data))

	var got Clock
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, got.Epoch.Equal(c.Epoch))
	assert.Equal(t, c.Seed, got.Seed)
	assert.Equal(t, c.Sequence, got.Sequence)

	require.Error(t, json.Unmarshal([]byte(`{"seed":4294967295}`), &got))
}

func TestMulberry32Reference(t *testing.T) {
	g := NewGenerator(1)
	assert.Equal(t, []uint32{2693262067, 11749833, 2265367787}, []uint32{g.Uint32(), g.Uint32(), g.Uint32()})
}

func TestCombineSeed(t *testing.T) {
	assert.Equal(t, uint32(0), CombineSeed(0, 0))
	assert.Equal(t, uint32(4183680650), CombineSeed(42, 7))
	assert.NotEqual(t, HashNamespace("particles"), HashNamespace("photos"))
}

func TestDeterminismAcrossInstances(t *testing.T) {
	a := NewAt(0, epoch, 987654)
	b := NewAt(0, epoch.Add(time.Hour), 987654)

	ga, gb := a.PRNG("x"), b.PRNG("x")
	for i := range 1000 {
		require.Equal(t, ga.Float64(), gb.Float64(), "value %d", i) //nolint:testifylint // exact equality intended
	}
}

func TestSequenceDoesNotAffectOutput(t *testing.T) {
	a := NewAt(0, epoch, 55)
	b := NewAt(99, epoch, 55)
	require.True(t, a.Stale(b))

	ga, gb := a.PRNG("x"), b.PRNG("x")
	for range 1000 {
		require.Equal(t, ga.Uint32(), gb.Uint32())
	}
}

func TestNamespacesAreIndependent(t *testing.T) {
	c := NewAt(0, epoch, 3)
	ga, gb := c.PRNG("spawn"), c.PRNG("pick")
	same := 0
	for range 100 {
		if ga.Uint32() == gb.Uint32() {
			same++
		}
	}
	assert.Less(t, same, 3)
}

func TestStreamsContinueSequence(t *testing.T) {
	c := NewAt(0, epoch, 11)
	s := c.Streams()

	first := s.Get("x").Uint32()
	second := s.Get("x").Uint32()

	ref := c.PRNG("x")
	assert.Equal(t, ref.Uint32(), first)
	assert.Equal(t, ref.Uint32(), second)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, c, s.Clock())
}

func TestStreamsConcurrentGet(t *testing.T) {
	s := NewAt(0, epoch, 11).Streams()
	var wg sync.WaitGroup
	gens := make([]*Generator, 16)
	for i := range gens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gens[i] = s.Get("shared")
		}()
	}
	wg.Wait()
	for _, g := range gens {
		assert.Same(t, gens[0], g)
	}
}

func TestGeneratorHelpers(t *testing.T) {
	g := NewGenerator(2024)
	for range 500 {
		v := g.Intn(7)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 7)

		r := g.Range(-2, 3)
		assert.GreaterOrEqual(t, r, -2.0)
		assert.Less(t, r, 3.0)
	}
	assert.Panics(t, func() { g.Intn(0) })

	items := []int{0, 1, 2, 3, 4, 5, 6, 7}
	g.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, items)

	assert.Contains(t, items, Pick(g, items))
	assert.Empty(t, Pick(g, []string{}))
}

func TestGeneratorProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("Float64 stays in [0,1)", prop.ForAll(
		func(seed uint32) bool {
			g := NewGenerator(seed)
			for range 64 {
				v := g.Float64()
				if v < 0 || v >= 1 {
					return false
				}
			}
			return true
		},
		gen.UInt32(),
	))

	properties.Property("same seed and namespace replay identically", prop.ForAll(
		func(seed uint32, ns string) bool {
			a := NewAt(0, epoch, seed).PRNG(ns)
			b := NewAt(5, epoch, seed).PRNG(ns)
			for range 32 {
				if a.Uint32() != b.Uint32() {
					return false
				}
			}
			return true
		},
		gen.UInt32(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
