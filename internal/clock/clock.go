// Package clock provides the shared animation clock that lets independent
// renderers agree on timing phase and random choices without talking to each
// other after the clock value has been distributed.
package clock

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// SeedMask keeps seeds within 31 bits.
const SeedMask = 0x7fffffff

// Clock is an immutable (epoch, seed, sequence) triple. It is handed to
// consumers by value; nothing mutates a Clock after creation.
type Clock struct {
	Epoch    time.Time
	Seed     uint32
	Sequence uint64
}

// New starts a clock at the current instant with a fresh random seed. This is
// the only place non-deterministic randomness enters the engine.
func New(previousSequence uint64) Clock {
	var b [4]byte
	_, _ = rand.Read(b[:])
	c := NewAt(previousSequence, time.Now(), binary.LittleEndian.Uint32(b[:]))
	slog.Debug("Animation clock created", "seed", c.Seed, "sequence", c.Sequence)
	return c
}

// NewAt builds the clock that New would build for the given instant and seed.
func NewAt(previousSequence uint64, now time.Time, seed uint32) Clock {
	return Clock{
		Epoch:    now,
		Seed:     seed & SeedMask,
		Sequence: previousSequence + 1,
	}
}

// Elapsed returns now - Epoch.
func (c Clock) Elapsed(now time.Time) time.Duration { return now.Sub(c.Epoch) }

// Since returns the time elapsed since Epoch.
func (c Clock) Since() time.Duration { return time.Since(c.Epoch) }

// Phase returns the position within a repeating period at now, in [0, 1).
// Instants before Epoch wrap backwards.
func (c Clock) Phase(now time.Time, period time.Duration) float64 {
	if period <= 0 {
		return 0
	}
	p := math.Mod(float64(c.Elapsed(now)), float64(period)) / float64(period)
	if p < 0 {
		p++
	}
	if p >= 1 {
		p = 0
	}
	return p
}

// Stale reports whether c belongs to a different go-live event than other.
func (c Clock) Stale(other Clock) bool { return c.Sequence != other.Sequence }

// PRNG returns a fresh generator for namespace. Two calls with the same
// namespace start the same sequence; see Streams for a continuing cache.
func (c Clock) PRNG(namespace string) *Generator {
	return NewGenerator(CombineSeed(c.Seed, HashNamespace(namespace)))
}

// Streams returns an empty per-namespace generator cache bound to c.
func (c Clock) Streams() *Streams { return newStreams(c) }

// String implements fmt.Stringer.
func (c Clock) String() string {
	return fmt.Sprintf("clock(seq=%d seed=%d epoch=%s)", c.Sequence, c.Seed, c.Epoch.UTC().Format(time.RFC3339Nano))
}

type clockJSON struct {
	EpochMS  int64  `json:"epoch_ms"`
	Seed     uint32 `json:"seed"`
	Sequence uint64 `json:"sequence"`
}

// MarshalJSON encodes the clock as {epoch_ms, seed, sequence}.
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(clockJSON{EpochMS: c.Epoch.UnixMilli(), Seed: c.Seed, Sequence: c.Sequence})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var v clockJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode clock: %w", err)
	}
	if v.Seed > SeedMask {
		return fmt.Errorf("decode clock: seed %d exceeds 31 bits", v.Seed)
	}
	*c = Clock{Epoch: time.UnixMilli(v.EpochMS), Seed: v.Seed, Sequence: v.Sequence}
	return nil
}
