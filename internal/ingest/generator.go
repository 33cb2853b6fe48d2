package ingest

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// GeneratorConfig shapes the synthetic measurement stream
type GeneratorConfig struct {
	NormalMin, NormalMax float64 // uniform range of normal values
	HighMin, HighMax     float64 // uniform range of high anomalies
	LowMin, LowMax       float64 // uniform range of low anomalies
	AnomalyRate          float64 // probability that a value is an injected anomaly
	Seed                 int64   // 0 picks a time-based seed
}

// DefaultGeneratorConfig returns values in [50,150) with 2% anomalies, half
// of them in [300,500) and half in [0,20).
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		NormalMin:   50,
		NormalMax:   150,
		HighMin:     300,
		HighMax:     500,
		LowMin:      0,
		LowMax:      20,
		AnomalyRate: 0.02,
	}
}

// Generator is a Source of synthetic measurements with injected anomalies
type Generator struct {
	cfg GeneratorConfig

	mu       sync.Mutex
	rnd      *rand.Rand
	injected uint64
	produced uint64
}

// NewGenerator creates a Generator
func NewGenerator(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg: cfg,
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// Next implements Source. It never returns io.EOF.
func (g *Generator) Next(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.produced++
	if g.rnd.Float64() < g.cfg.AnomalyRate {
		g.injected++
		if g.rnd.Float64() < 0.5 {
			return g.uniform(g.cfg.HighMin, g.cfg.HighMax), nil
		}
		return g.uniform(g.cfg.LowMin, g.cfg.LowMax), nil
	}
	return g.uniform(g.cfg.NormalMin, g.cfg.NormalMax), nil
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rnd.Float64()*(hi-lo)
}

// Injected returns how many anomalies have been injected so far
func (g *Generator) Injected() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.injected
}

// Produced returns how many values have been generated so far
func (g *Generator) Produced() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.produced
}
