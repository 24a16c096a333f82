package collision

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/bulletkit/pkg/sim"
)

// Detector answers distance and collision questions for pairs of indexed
// objects. Each query reads the current simulation state only.
type Detector struct {
	engine sim.Querier
	log    *zap.Logger
	last   map[IndexedPair]float64
}

// NewDetector creates a detector over engine.
func NewDetector(engine sim.Querier, opts ...Option) *Detector {
	o := buildOptions(opts)
	return &Detector{
		engine: engine,
		log:    o.log,
		last:   make(map[IndexedPair]float64),
	}
}

// ComputeDistance returns the smallest closest-point distance between a
// and b, or maxDistance when they are farther apart than that. Negative
// values mean penetration. The result does not depend on argument order
// and never exceeds maxDistance.
func (d *Detector) ComputeDistance(a, b IndexedObject, maxDistance float64) (float64, error) {
	if maxDistance < 0 {
		return 0, fmt.Errorf("%w: negative max distance %g", sim.ErrInvalidArgument, maxDistance)
	}

	// Query in canonical order so both argument orders see identical
	// engine results.
	key := IndexedPair{A: a, B: b}.Key()
	points, err := sim.ClosestPoints(d.engine, key.A.Body, key.A.Link, key.B.Body, key.B.Link, maxDistance)
	if err != nil {
		return 0, err
	}
	dist := sim.MinDistance(points, maxDistance)
	d.last[key] = dist

	d.log.Debug("closest distance",
		zap.Stringer("pair", key),
		zap.Int("points", len(points)),
		zap.Float64("distance", dist))
	return dist, nil
}

// InCollision reports whether a and b are closer than threshold.
func (d *Detector) InCollision(a, b IndexedObject, threshold float64) (bool, error) {
	dist, err := d.ComputeDistance(a, b, threshold)
	if err != nil {
		return false, err
	}
	return dist < threshold, nil
}

// LastDistance returns the distance computed by the most recent query of
// the pair, in either order.
func (d *Detector) LastDistance(a, b IndexedObject) (float64, bool) {
	dist, ok := d.last[IndexedPair{A: a, B: b}.Key()]
	return dist, ok
}

// PairDetector checks a fixed list of pairs together.
type PairDetector struct {
	detector *Detector
	pairs    []IndexedPair
}

// NewPairDetector creates a detector over the given pairs.
func NewPairDetector(engine sim.Querier, pairs []IndexedPair, opts ...Option) *PairDetector {
	return &PairDetector{
		detector: NewDetector(engine, opts...),
		pairs:    append([]IndexedPair(nil), pairs...),
	}
}

// NewPairDetectorByName resolves named pairs and creates a detector over
// them.
func NewPairDetectorByName(engine sim.Querier, resolver *Resolver, pairs []NamedPair, opts ...Option) (*PairDetector, error) {
	indexed, err := resolver.ResolvePairs(pairs)
	if err != nil {
		return nil, err
	}
	return NewPairDetector(engine, indexed, opts...), nil
}

// Pairs returns the checked pairs in order.
func (p *PairDetector) Pairs() []IndexedPair {
	return append([]IndexedPair(nil), p.pairs...)
}

// ComputeDistances returns the distance of every pair, in pair order.
func (p *PairDetector) ComputeDistances(maxDistance float64) ([]float64, error) {
	out := make([]float64, 0, len(p.pairs))
	for _, pair := range p.pairs {
		dist, err := p.detector.ComputeDistance(pair.A, pair.B, maxDistance)
		if err != nil {
			return nil, fmt.Errorf("pair %s: %w", pair, err)
		}
		out = append(out, dist)
	}
	return out, nil
}

// InCollision reports whether any pair is closer than margin. Distances
// are computed with maxDistance, which must not be smaller than margin.
func (p *PairDetector) InCollision(margin, maxDistance float64) (bool, error) {
	if margin > maxDistance {
		return false, fmt.Errorf("%w: margin %g exceeds max distance %g", sim.ErrInvalidArgument, margin, maxDistance)
	}
	distances, err := p.ComputeDistances(maxDistance)
	if err != nil {
		return false, err
	}
	for _, d := range distances {
		if d < margin {
			return true, nil
		}
	}
	return false, nil
}

// LastDistance returns the most recent distance of pair.
func (p *PairDetector) LastDistance(pair IndexedPair) (float64, bool) {
	return p.detector.LastDistance(pair.A, pair.B)
}
