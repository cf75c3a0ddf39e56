package model

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wildstyl3r/octfield/internal/config"
	"github.com/wildstyl3r/octfield/internal/constants"
	"github.com/wildstyl3r/octfield/internal/octree"
	"github.com/wildstyl3r/octfield/internal/utils"
)

// Model is one field map of a config: the samples it was built from and the probes evaluated against it.
type Model struct {
	Name       string
	Parameters config.ModelParameters

	tree    *octree.Tree
	probes  []r3.Vector // [m]
	results []ProbeResult
	logger  *zap.Logger
}

// ProbeResult is the lookup outcome for one probe, in SI.
type ProbeResult struct {
	Point       r3.Vector
	Match       octree.Match
	OutOfDomain bool
}

func NewModel(name string, parameters config.ModelParameters, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Model{
		Name:       name,
		Parameters: parameters,
		logger:     logger.With(zap.String("model", name)),
	}
}

func (m *Model) Tree() *octree.Tree {
	return m.tree
}

func (m *Model) Results() []ProbeResult {
	return m.results
}

// toSI converts a sample read in input units.
func (m *Model) toSI(s octree.Sample) octree.Sample {
	units := m.Parameters.InputUnits()
	return octree.Sample{
		P: m.pointToSI(s.P),
		V: config.SI(s.V, m.Parameters.ValueUnits(), units, true),
	}
}

func (m *Model) pointToSI(p r3.Vector) r3.Vector {
	units := m.Parameters.InputUnits()
	return r3.Vector{
		X: config.SI(p.X, config.LengthUnit, units, true),
		Y: config.SI(p.Y, config.LengthUnit, units, true),
		Z: config.SI(p.Z, config.LengthUnit, units, true),
	}
}

func (m *Model) newTree(lower, upper r3.Vector) (*octree.Tree, error) {
	return octree.New(lower, upper,
		octree.WithScaleFactor(m.Parameters.ScaleFactor),
		octree.WithMaxDepth(m.Parameters.MaxDepth),
		octree.WithLogger(m.logger))
}

// Build reads every sample file and indexes the samples. Files are parsed concurrently; with configured bounds the
// samples go straight into the tree, otherwise the domain is the padded bounding box of all samples.
func (m *Model) Build(ctx context.Context) error {
	var err error
	if m.Parameters.HasBounds() {
		err = m.buildBounded(ctx)
	} else {
		err = m.buildDerived(ctx)
	}
	if err != nil {
		return errors.Wrapf(err, "model %s", m.Name)
	}

	stats := m.tree.Stats()
	m.logger.Info("octree built",
		zap.Int("samples", stats.Samples),
		zap.Int("nodes", stats.Nodes),
		zap.Int("depth", stats.MaxDepth),
		zap.Int("buckets", stats.Buckets))
	return nil
}

func (m *Model) buildBounded(ctx context.Context) error {
	lower, upper := m.Parameters.LowerBounds, m.Parameters.UpperBounds
	tree, err := m.newTree(
		r3.Vector{X: lower[0], Y: lower[1], Z: lower[2]},
		r3.Vector{X: upper[0], Y: upper[1], Z: upper[2]})
	if err != nil {
		return err
	}
	locked := octree.NewLocked(tree)

	g, ctx := errgroup.WithContext(ctx)
	for _, file := range m.Parameters.Samples {
		g.Go(func() error {
			return utils.ScanSamples(file, func(s octree.Sample) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				s = m.toSI(s)
				return locked.Insert(s.P, s.V)
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if locked.Size() == 0 {
		return errors.New("no samples loaded")
	}
	m.tree = locked.Unwrap()
	return nil
}

func (m *Model) buildDerived(ctx context.Context) error {
	perFile := make([][]octree.Sample, len(m.Parameters.Samples))
	g, ctx := errgroup.WithContext(ctx)
	for i, file := range m.Parameters.Samples {
		g.Go(func() error {
			return utils.ScanSamples(file, func(s octree.Sample) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				perFile[i] = append(perFile[i], m.toSI(s))
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	lower, upper, ok := boundingBox(perFile)
	if !ok {
		return errors.New("no samples loaded")
	}
	lower, upper = pad(lower, upper)
	m.logger.Debug("domain derived from samples",
		zap.Stringer("lower", lower), zap.Stringer("upper", upper))

	tree, err := m.newTree(lower, upper)
	if err != nil {
		return err
	}
	for i, samples := range perFile {
		for _, s := range samples {
			if err := tree.Insert(s.P, s.V); err != nil {
				return errors.Wrap(err, m.Parameters.Samples[i])
			}
		}
	}
	m.tree = tree
	return nil
}

func boundingBox(perFile [][]octree.Sample) (lower, upper r3.Vector, ok bool) {
	for _, samples := range perFile {
		for _, s := range samples {
			if !ok {
				lower, upper, ok = s.P, s.P, true
				continue
			}
			lower = r3.Vector{X: math.Min(lower.X, s.P.X), Y: math.Min(lower.Y, s.P.Y), Z: math.Min(lower.Z, s.P.Z)}
			upper = r3.Vector{X: math.Max(upper.X, s.P.X), Y: math.Max(upper.Y, s.P.Y), Z: math.Max(upper.Z, s.P.Z)}
		}
	}
	return
}

// pad widens each axis of the box by constants.BoundsPadding of its extent, and by at least
// constants.MinBoundsPadding.
func pad(lower, upper r3.Vector) (r3.Vector, r3.Vector) {
	margin := func(lo, hi float64) float64 {
		return math.Max((hi-lo)*constants.BoundsPadding, constants.MinBoundsPadding)
	}
	d := r3.Vector{
		X: margin(lower.X, upper.X),
		Y: margin(lower.Y, upper.Y),
		Z: margin(lower.Z, upper.Z),
	}
	return lower.Sub(d), upper.Add(d)
}

// probePoints returns the probes in SI: the probe file when given, the ProbeGrid cell centers otherwise.
func (m *Model) probePoints() ([]r3.Vector, error) {
	if m.Parameters.Probes != "" {
		points, err := utils.ReadPoints(m.Parameters.Probes)
		if err != nil {
			return nil, err
		}
		for i := range points {
			points[i] = m.pointToSI(points[i])
		}
		return points, nil
	}
	if len(m.Parameters.ProbeGrid) == 3 {
		return gridPoints(m.tree.Root().Lower(), m.tree.Root().Upper(), m.Parameters.ProbeGrid), nil
	}
	return nil, nil
}

func gridPoints(lower, upper r3.Vector, n []int) []r3.Vector {
	step := upper.Sub(lower)
	step = r3.Vector{X: step.X / float64(n[0]), Y: step.Y / float64(n[1]), Z: step.Z / float64(n[2])}
	points := make([]r3.Vector, 0, n[0]*n[1]*n[2])
	for i := range n[0] {
		for j := range n[1] {
			for k := range n[2] {
				points = append(points, r3.Vector{
					X: lower.X + (float64(i)+0.5)*step.X,
					Y: lower.Y + (float64(j)+0.5)*step.Y,
					Z: lower.Z + (float64(k)+0.5)*step.Z,
				})
			}
		}
	}
	return points
}

// Run evaluates every probe against the built tree using Threads() workers. The tree is read only at this point,
// so workers share it without locking and each writes only its own result.
func (m *Model) Run(ctx context.Context) error {
	if m.tree == nil {
		return errors.Errorf("model %s: run before build", m.Name)
	}
	points, err := m.probePoints()
	if err != nil {
		return errors.Wrapf(err, "model %s", m.Name)
	}
	m.probes = points
	results := make([]ProbeResult, len(points))

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int, m.Parameters.Threads())
	g.Go(func() error {
		defer close(jobs)
		for i := range points {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for range m.Parameters.Threads() {
		g.Go(func() error {
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				results[i].Point = points[i]
				match, err := m.tree.Nearest(points[i])
				switch {
				case errors.Is(err, octree.ErrOutOfDomain) && m.Parameters.SkipOutOfDomain:
					results[i].OutOfDomain = true
				case err != nil:
					return errors.Wrapf(err, "model %s: probe %d", m.Name, i)
				default:
					results[i].Match = match
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	m.results = results

	var skipped, degenerate int
	for _, r := range results {
		if r.OutOfDomain {
			skipped++
		} else if !r.Match.Found {
			degenerate++
		}
	}
	m.logger.Info("probes evaluated",
		zap.Int("probes", len(results)),
		zap.Int("outOfDomain", skipped),
		zap.Int("noData", degenerate))
	return nil
}

// Probe looks up a single point given in input units.
func (m *Model) Probe(p r3.Vector) (octree.Match, error) {
	if m.tree == nil {
		return octree.Match{}, errors.Errorf("model %s: probe before build", m.Name)
	}
	return m.tree.Nearest(m.pointToSI(p))
}
