package sim

import (
	"fmt"
	"math/rand"
	"reflect"

	"github.com/hunse/nengo/internal/constants"
	"github.com/hunse/nengo/internal/decoders"
	"github.com/hunse/nengo/internal/model"
	"github.com/hunse/nengo/internal/neurons"
	"github.com/hunse/nengo/internal/num"
)

// EnsembleParams holds the parameters materialized for one ensemble at
// build time. Rebuilding the same model with the same seed reproduces these
// exactly.
type EnsembleParams struct {
	// Encoders are unit-norm preferred directions, one row per neuron.
	Encoders [][]float64

	// ScaledEncoders fold gain and radius into the encoders, so that input
	// current is dot(ScaledEncoders[i], x) + Bias[i].
	ScaledEncoders [][]float64

	MaxRates   []float64
	Intercepts []float64
	Gain       []float64
	Bias       []float64

	// EvalPoints are the decoder-fitting inputs.
	EvalPoints [][]float64

	// Decoders is the default identity decoder matrix, neurons × dims.
	Decoders [][]float64
}

type builtEnsemble struct {
	ens    *model.Ensemble
	lif    *neurons.LIF
	params *EnsembleParams
	state  *neurons.State

	in       *Signal // represented-space input, dims
	activity *Signal // per-neuron instantaneous rate, n
	decoded  *Signal // default decoded output, dims

	current []float64 // scratch, n

	// inbound are decoded/node connections feeding in; inboundNeurons are
	// raw current injections added per neuron.
	inbound        []*builtConn
	inboundNeurons []*builtConn

	// decoderCache maps a function identity to its solved decoders. Key 0
	// is the identity decode.
	decoderCache map[uintptr][][]float64
}

type builtNode struct {
	node    *model.Node
	out     *Signal
	inbound []*builtConn // sinks only
}

type builtConn struct {
	conn *model.Connection

	// weights is the fused operator applied to src each step: for decoded
	// sources it is transform·decodersᵀ over raw activity, otherwise the
	// transform alone.
	weights [][]float64
	src     *Signal
	out     *Signal
	raw     []float64 // scratch, len(out.Values)
	tau     float64
}

type builtProbe struct {
	probe    *model.Probe
	src      *Signal
	filtered []float64
	every    int

	times []float64
	rows  [][]float64
}

// build lowers the declarative model into the simulator's operator state.
// Any error discards the partial build.
func (s *Simulator) build(m *model.Model) error {
	rng := rand.New(rand.NewSource(m.Seed))

	var err error
	s.timeSig, err = s.reg.Alloc("time", 1)
	if err != nil {
		return err
	}
	s.stepSig, err = s.reg.Alloc("steps", 1)
	if err != nil {
		return err
	}

	ensByDecl := map[*model.Ensemble]*builtEnsemble{}
	nodeByDecl := map[*model.Node]*builtNode{}
	connByDecl := map[*model.Connection]*builtConn{}

	var buildErr error
	m.EachEnsemble(func(e *model.Ensemble) {
		if buildErr != nil {
			return
		}
		be, err := s.buildEnsemble(e, rng)
		if err != nil {
			buildErr = err
			return
		}
		ensByDecl[e] = be
		s.ens = append(s.ens, be)
	})
	if buildErr != nil {
		return buildErr
	}

	m.EachNode(func(n *model.Node) {
		if buildErr != nil {
			return
		}
		out, err := s.reg.Alloc(s.reg.unique(n.ObjectName()+".out"), n.Size)
		if err != nil {
			buildErr = err
			return
		}
		bn := &builtNode{node: n, out: out}
		nodeByDecl[n] = bn
		s.nodes = append(s.nodes, bn)
	})
	if buildErr != nil {
		return buildErr
	}

	m.EachConnection(func(c *model.Connection) {
		if buildErr != nil {
			return
		}
		bc, err := s.buildConnection(c, ensByDecl, nodeByDecl)
		if err != nil {
			buildErr = err
			return
		}
		connByDecl[c] = bc
		s.conns = append(s.conns, bc)
	})
	if buildErr != nil {
		return buildErr
	}

	m.EachProbe(func(p *model.Probe) {
		if buildErr != nil {
			return
		}
		bp, err := s.buildProbe(p, ensByDecl, nodeByDecl, connByDecl)
		if err != nil {
			buildErr = err
			return
		}
		s.probes = append(s.probes, bp)
	})
	if buildErr != nil {
		return buildErr
	}

	s.ensByDecl = ensByDecl
	return nil
}

// buildEnsemble materializes the ensemble's random parameters and solves its
// default decoders. RNG draws happen in a fixed order: eval points,
// encoders, max rates, intercepts.
func (s *Simulator) buildEnsemble(e *model.Ensemble, rng *rand.Rand) (*builtEnsemble, error) {
	name := e.ObjectName()
	n, d := e.NNeurons, e.Dimensions

	p := &EnsembleParams{}
	if e.EvalPoints != nil {
		p.EvalPoints = num.CloneMat(e.EvalPoints)
	} else {
		p.EvalPoints = decoders.EvalPoints(rng, constants.DefaultEvalPoints, d, e.Radius)
	}
	if e.Encoders != nil {
		p.Encoders = num.CloneMat(e.Encoders)
	} else {
		p.Encoders = decoders.UnitVectors(rng, n, d)
	}
	if e.MaxRates != nil {
		p.MaxRates = append([]float64(nil), e.MaxRates...)
	} else {
		p.MaxRates = decoders.Uniform(rng, n, constants.MinMaxRate, constants.MaxMaxRate)
	}
	if e.Intercepts != nil {
		p.Intercepts = append([]float64(nil), e.Intercepts...)
	} else {
		p.Intercepts = decoders.Uniform(rng, n, constants.MinIntercept, constants.MaxIntercept)
	}

	lif, err := neurons.NewLIF(n)
	if err != nil {
		return nil, fmt.Errorf("ensemble %q: %w", name, err)
	}
	if err := lif.SetGainBias(p.MaxRates, p.Intercepts); err != nil {
		return nil, fmt.Errorf("ensemble %q: %w", name, err)
	}
	p.Gain = lif.Gain
	p.Bias = lif.Bias

	p.ScaledEncoders = make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, d)
		for j := 0; j < d; j++ {
			row[j] = p.Encoders[i][j] * lif.Gain[i] / e.Radius
		}
		p.ScaledEncoders[i] = row
	}

	be := &builtEnsemble{
		ens:          e,
		lif:          lif,
		params:       p,
		state:        lif.NewState(),
		current:      make([]float64, n),
		decoderCache: map[uintptr][][]float64{},
	}
	if be.in, err = s.reg.Alloc(s.reg.unique(name+".in"), d); err != nil {
		return nil, err
	}
	if be.activity, err = s.reg.Alloc(s.reg.unique(name+".activity"), n); err != nil {
		return nil, err
	}
	if be.decoded, err = s.reg.Alloc(s.reg.unique(name+".decoded"), d); err != nil {
		return nil, err
	}

	p.Decoders, err = be.solveDecoders(nil)
	if err != nil {
		return nil, fmt.Errorf("ensemble %q: default decoders: %w", name, err)
	}
	return be, nil
}

// solveDecoders returns decoders for fn over this ensemble, solving at most
// once per distinct function; fn == nil is the identity decode.
func (be *builtEnsemble) solveDecoders(fn func([]float64) []float64) ([][]float64, error) {
	var key uintptr
	if fn != nil {
		key = reflect.ValueOf(fn).Pointer()
	}
	if dec, ok := be.decoderCache[key]; ok {
		return dec, nil
	}

	p := be.params
	targets := p.EvalPoints
	if fn != nil {
		targets = make([][]float64, len(p.EvalPoints))
		var want int
		for i, pt := range p.EvalPoints {
			v := fn(append([]float64(nil), pt...))
			if i == 0 {
				want = len(v)
				if want == 0 {
					return nil, fmt.Errorf("ensemble %q: connection function returned empty value: %w",
						be.ens.ObjectName(), model.ErrShapeMismatch)
				}
			} else if len(v) != want {
				return nil, fmt.Errorf("ensemble %q: connection function output length varies (%d vs %d): %w",
					be.ens.ObjectName(), len(v), want, model.ErrShapeMismatch)
			}
			targets[i] = v
		}
	}

	acts := make([][]float64, len(p.EvalPoints))
	current := make([]float64, be.lif.N)
	for i, pt := range p.EvalPoints {
		for j, enc := range p.ScaledEncoders {
			current[j] = num.Dot(enc, pt) + p.Bias[j]
		}
		acts[i] = be.lif.Rates(current)
	}

	dec, err := decoders.LstsqL2(acts, targets, constants.DecoderNoise)
	if err != nil {
		return nil, err
	}
	be.decoderCache[key] = dec
	return dec, nil
}

// buildConnection resolves endpoints, validates the transform shape, and
// fuses transform and decoders into a single weight operator.
func (s *Simulator) buildConnection(
	c *model.Connection,
	ens map[*model.Ensemble]*builtEnsemble,
	nodes map[*model.Node]*builtNode,
) (*builtConn, error) {
	name := c.ObjectName()

	// Resolve the source: srcSig holds the raw signal the fused weights
	// apply to, decoded is non-nil for decoded ensemble sources, and
	// preSize is the dimensionality the transform sees.
	var srcSig *Signal
	var decoded [][]float64
	var preSize int

	switch pre := c.Pre.(type) {
	case *model.Node:
		bn, ok := nodes[pre]
		if !ok {
			return nil, fmt.Errorf("connection %q: source node %q not in model: %w",
				name, pre.ObjectName(), model.ErrUnresolved)
		}
		srcSig = bn.out
		preSize = pre.Size
	case *model.Ensemble:
		be, ok := ens[pre]
		if !ok {
			return nil, fmt.Errorf("connection %q: source ensemble %q not in model: %w",
				name, pre.ObjectName(), model.ErrUnresolved)
		}
		srcSig = be.activity
		dec, err := be.solveDecoders(c.Function)
		if err != nil {
			return nil, fmt.Errorf("connection %q: %w", name, err)
		}
		decoded = dec
		preSize = len(dec[0])
	case model.Neurons:
		be, ok := ens[pre.Ens]
		if !ok {
			return nil, fmt.Errorf("connection %q: source ensemble %q not in model: %w",
				name, pre.Ens.ObjectName(), model.ErrUnresolved)
		}
		srcSig = be.activity
		if c.Decoders != nil {
			if len(c.Decoders) != pre.Ens.NNeurons || !num.Rectangular(c.Decoders, len(c.Decoders[0])) {
				return nil, fmt.Errorf("connection %q: decoders must have %d rows: %w",
					name, pre.Ens.NNeurons, model.ErrShapeMismatch)
			}
			decoded = c.Decoders
			preSize = len(c.Decoders[0])
		} else {
			preSize = pre.Ens.NNeurons
		}
	default:
		return nil, fmt.Errorf("connection %q: unsupported source %T: %w", name, c.Pre, model.ErrInvalidParameter)
	}

	// Resolve the destination and its dimensionality.
	var postSize int
	var attach func(bc *builtConn)

	switch post := c.Post.(type) {
	case *model.Ensemble:
		be, ok := ens[post]
		if !ok {
			return nil, fmt.Errorf("connection %q: destination ensemble %q not in model: %w",
				name, post.ObjectName(), model.ErrUnresolved)
		}
		postSize = post.Dimensions
		attach = func(bc *builtConn) { be.inbound = append(be.inbound, bc) }
	case model.Neurons:
		be, ok := ens[post.Ens]
		if !ok {
			return nil, fmt.Errorf("connection %q: destination ensemble %q not in model: %w",
				name, post.Ens.ObjectName(), model.ErrUnresolved)
		}
		postSize = post.Ens.NNeurons
		attach = func(bc *builtConn) { be.inboundNeurons = append(be.inboundNeurons, bc) }
	case *model.Node:
		bn, ok := nodes[post]
		if !ok {
			return nil, fmt.Errorf("connection %q: destination node %q not in model: %w",
				name, post.ObjectName(), model.ErrUnresolved)
		}
		if bn.node.Output != nil {
			return nil, fmt.Errorf("connection %q: node %q has its own output and cannot be a sink: %w",
				name, post.ObjectName(), model.ErrInvalidParameter)
		}
		postSize = post.Size
		attach = func(bc *builtConn) { bn.inbound = append(bn.inbound, bc) }
	default:
		return nil, fmt.Errorf("connection %q: unsupported destination %T: %w", name, c.Post, model.ErrInvalidParameter)
	}

	// Validate the transform against resolved pre/post sizes.
	transform := c.Transform
	if transform == nil {
		if preSize != postSize {
			return nil, fmt.Errorf("connection %q: identity transform needs matching sizes, got %d -> %d: %w",
				name, preSize, postSize, model.ErrShapeMismatch)
		}
		transform = num.Identity(preSize)
	} else {
		if len(transform) != postSize || !num.Rectangular(transform, preSize) {
			return nil, fmt.Errorf("connection %q: transform must be %dx%d: %w",
				name, postSize, preSize, model.ErrShapeMismatch)
		}
	}

	// Fuse transform and decoders into one weight operator over srcSig.
	weights := transform
	if decoded != nil {
		weights = fuse(transform, decoded)
	}

	out, err := s.reg.Alloc(s.reg.unique(name+".out"), postSize)
	if err != nil {
		return nil, err
	}
	bc := &builtConn{
		conn:    c,
		weights: weights,
		src:     srcSig,
		out:     out,
		raw:     make([]float64, postSize),
		tau:     c.Filter,
	}
	attach(bc)
	return bc, nil
}

// fuse computes transform·decodersᵀ: (post×pre)·(pre×n) -> post×n, where
// decoders is n×pre.
func fuse(transform, dec [][]float64) [][]float64 {
	post := len(transform)
	n := len(dec)
	out := make([][]float64, post)
	for i := 0; i < post; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			var sum float64
			for k := range transform[i] {
				sum += transform[i][k] * dec[j][k]
			}
			row[j] = sum
		}
		out[i] = row
	}
	return out
}

func (s *Simulator) buildProbe(
	p *model.Probe,
	ens map[*model.Ensemble]*builtEnsemble,
	nodes map[*model.Node]*builtNode,
	conns map[*model.Connection]*builtConn,
) (*builtProbe, error) {
	name := p.ObjectName()

	var src *Signal
	switch target := p.Target.(type) {
	case *model.Ensemble:
		be, ok := ens[target]
		if !ok {
			return nil, fmt.Errorf("probe %q: ensemble %q not in model: %w",
				name, target.ObjectName(), model.ErrUnresolved)
		}
		src = be.decoded
	case model.Neurons:
		be, ok := ens[target.Ens]
		if !ok {
			return nil, fmt.Errorf("probe %q: ensemble %q not in model: %w",
				name, target.Ens.ObjectName(), model.ErrUnresolved)
		}
		src = be.activity
	case *model.Node:
		bn, ok := nodes[target]
		if !ok {
			return nil, fmt.Errorf("probe %q: node %q not in model: %w",
				name, target.ObjectName(), model.ErrUnresolved)
		}
		src = bn.out
	case *model.Connection:
		bc, ok := conns[target]
		if !ok {
			return nil, fmt.Errorf("probe %q: connection %q not in model: %w",
				name, target.ObjectName(), model.ErrUnresolved)
		}
		src = bc.out
	case model.Builtin:
		switch target {
		case model.TimeSignal:
			src = s.timeSig
		case model.StepSignal:
			src = s.stepSig
		default:
			return nil, fmt.Errorf("probe %q: unknown builtin %q: %w", name, target, model.ErrUnresolved)
		}
	default:
		return nil, fmt.Errorf("probe %q: unsupported target %T: %w", name, p.Target, model.ErrInvalidParameter)
	}

	every := 1
	if p.SampleEvery > 0 {
		every = int(p.SampleEvery/s.dt + 0.5)
		if every < 1 {
			every = 1
		}
	}
	return &builtProbe{
		probe:    p,
		src:      src,
		filtered: make([]float64, len(src.Values)),
		every:    every,
	}, nil
}
