// Package random produces the randomized camera parameters used by the
// test commands.
//
// A Generator wraps a seedable PCG source so runs can be replayed by
// configuring the same seed.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"image/color"
	"math/rand/v2"
	"sync"

	"cameraapitest/pkg/host"
)

const (
	// MinFadePhase is the shortest fade phase drawn.
	MinFadePhase = 0.5
	// MaxFadePhase is the exclusive upper bound of a single drawn phase.
	MaxFadePhase = 10.0
	// MaxFadeTotal is the exclusive upper bound of fade-in + hold + fade-out.
	MaxFadeTotal = 10.0
	// MaxEaseSeconds is the exclusive upper bound of a drawn ease duration.
	MaxEaseSeconds = 10.0
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Generator draws camera parameters. It is safe for concurrent use.
type Generator struct {
	mu   sync.Mutex
	r    *rand.Rand
	seed uint64
}

// New returns a generator seeded with seed.
func New(seed uint64) *Generator {
	return &Generator{
		r:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Seed returns the seed the generator was created with.
func (g *Generator) Seed() uint64 {
	return g.seed
}

// FadeTimes holds the three phases of a fade, in seconds.
type FadeTimes struct {
	FadeIn  float32
	Hold    float32
	FadeOut float32
}

// Total returns the sum of the phases.
func (f FadeTimes) Total() float32 {
	return f.FadeIn + f.Hold + f.FadeOut
}

// PositionParams are the per-invocation choices for a camera position test.
type PositionParams struct {
	Ease                   host.EaseType
	EaseSeconds            float32
	RenderPlayerEffects    bool
	PlayerPositionForAudio bool
	Facing                 bool
}

// Color returns an opaque color with each channel in [0, 255].
func (g *Generator) Color() color.RGBA {
	g.mu.Lock()
	defer g.mu.Unlock()
	return color.RGBA{
		R: uint8(g.r.IntN(256)),
		G: uint8(g.r.IntN(256)),
		B: uint8(g.r.IntN(256)),
		A: 0xff,
	}
}

// FadeTimes draws each phase uniformly in [MinFadePhase, MaxFadePhase) and
// retries until the total is below MaxFadeTotal.
func (g *Generator) FadeTimes() FadeTimes {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		f := FadeTimes{
			FadeIn:  g.uniform(MinFadePhase, MaxFadePhase),
			Hold:    g.uniform(MinFadePhase, MaxFadePhase),
			FadeOut: g.uniform(MinFadePhase, MaxFadePhase),
		}
		// Check in both precisions; float32 rounding can push a sum just under 10 up to 10.
		sum64 := float64(f.FadeIn) + float64(f.Hold) + float64(f.FadeOut)
		if f.Total() < MaxFadeTotal && sum64 < MaxFadeTotal {
			return f
		}
	}
}

// PositionParams draws an ease type, an ease duration in [0, MaxEaseSeconds)
// and three coin flips.
func (g *Generator) PositionParams() PositionParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	return PositionParams{
		Ease:                   host.EaseType(g.r.IntN(host.EaseTypeCount)),
		EaseSeconds:            g.uniform(0, MaxEaseSeconds),
		RenderPlayerEffects:    g.r.Float64() > 0.5,
		PlayerPositionForAudio: g.r.Float64() > 0.5,
		Facing:                 g.r.Float64() > 0.5,
	}
}

// Rotation returns a whole-degree pitch in [-90, 90) and yaw in [0, 360).
func (g *Generator) Rotation() (pitch, yaw int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.IntN(180) - 90, g.r.IntN(360)
}

// uniform returns a float32 in [lo, hi). Caller holds mu.
func (g *Generator) uniform(lo, hi float64) float32 {
	for {
		v := float32(lo + g.r.Float64()*(hi-lo))
		if v < float32(hi) {
			return v
		}
	}
}
