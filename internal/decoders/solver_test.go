package decoders

import (
	"math"
	"math/rand"
	"testing"

	"github.com/hunse/nengo/internal/constants"
	"github.com/hunse/nengo/internal/neurons"
	"github.com/hunse/nengo/internal/num"
)

// buildPopulation creates a seeded 1D LIF population with encoders and
// returns the model, the per-neuron encoder signs, and the rng.
func buildPopulation(t *testing.T, n int, seed int64) (*neurons.LIF, [][]float64, *rand.Rand) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	lif, err := neurons.NewLIF(n)
	if err != nil {
		t.Fatal(err)
	}
	maxRates := Uniform(rng, n, constants.MinMaxRate, constants.MaxMaxRate)
	intercepts := Uniform(rng, n, -0.9, 0.9)
	if err := lif.SetGainBias(maxRates, intercepts); err != nil {
		t.Fatal(err)
	}
	encoders := UnitVectors(rng, n, 1)
	return lif, encoders, rng
}

func activities(lif *neurons.LIF, encoders, points [][]float64) [][]float64 {
	acts := make([][]float64, len(points))
	drive := make([]float64, lif.N)
	current := make([]float64, lif.N)
	for i, p := range points {
		for j := range drive {
			drive[j] = num.Dot(encoders[j], p)
		}
		lif.Current(drive, current)
		acts[i] = lif.Rates(current)
	}
	return acts
}

// TestIdentityDecodeAccuracy fits identity decoders for a 1D population and
// checks the static reconstruction error across the represented range.
func TestIdentityDecodeAccuracy(t *testing.T) {
	lif, encoders, rng := buildPopulation(t, 50, 42)
	points := EvalPoints(rng, constants.DefaultEvalPoints, 1, 1.0)
	acts := activities(lif, encoders, points)

	dec, err := LstsqL2(acts, points, constants.DecoderNoise)
	if err != nil {
		t.Fatal(err)
	}
	if len(dec) != lif.N || len(dec[0]) != 1 {
		t.Fatalf("decoder shape = %dx%d, want %dx1", len(dec), len(dec[0]), lif.N)
	}

	var sumSq float64
	count := 0
	for x := -0.9; x <= 0.9; x += 0.1 {
		acts := activities(lif, encoders, [][]float64{{x}})
		var xhat float64
		for i, a := range acts[0] {
			xhat += a * dec[i][0]
		}
		sumSq += (xhat - x) * (xhat - x)
		count++
	}
	rmse := math.Sqrt(sumSq / float64(count))
	if rmse > 0.05 {
		t.Errorf("identity decode RMSE = %v, want < 0.05", rmse)
	}
}

// TestFunctionDecode fits decoders for x² and checks reconstruction.
func TestFunctionDecode(t *testing.T) {
	lif, encoders, rng := buildPopulation(t, 60, 7)
	points := EvalPoints(rng, constants.DefaultEvalPoints, 1, 1.0)
	acts := activities(lif, encoders, points)
	targets := make([][]float64, len(points))
	for i, p := range points {
		targets[i] = []float64{p[0] * p[0]}
	}

	dec, err := LstsqL2(acts, targets, constants.DecoderNoise)
	if err != nil {
		t.Fatal(err)
	}

	var sumSq float64
	count := 0
	for x := -0.8; x <= 0.8; x += 0.1 {
		acts := activities(lif, encoders, [][]float64{{x}})
		var est float64
		for i, a := range acts[0] {
			est += a * dec[i][0]
		}
		sumSq += (est - x*x) * (est - x*x)
		count++
	}
	rmse := math.Sqrt(sumSq / float64(count))
	if rmse > 0.1 {
		t.Errorf("x² decode RMSE = %v, want < 0.1", rmse)
	}
}

// TestDeterminism checks that the same seed reproduces identical samples and
// decoders.
func TestDeterminism(t *testing.T) {
	solve := func() ([][]float64, [][]float64) {
		lif, encoders, rng := buildPopulation(t, 30, 99)
		points := EvalPoints(rng, 200, 1, 1.0)
		acts := activities(lif, encoders, points)
		dec, err := LstsqL2(acts, points, constants.DecoderNoise)
		if err != nil {
			t.Fatal(err)
		}
		return encoders, dec
	}

	enc1, dec1 := solve()
	enc2, dec2 := solve()
	for i := range enc1 {
		if enc1[i][0] != enc2[i][0] {
			t.Fatalf("encoders differ at %d: %v vs %v", i, enc1[i][0], enc2[i][0])
		}
		if dec1[i][0] != dec2[i][0] {
			t.Fatalf("decoders differ at %d: %v vs %v", i, dec1[i][0], dec2[i][0])
		}
	}
}

// TestRankDeficientFallback solves a system whose activity matrix has
// duplicated columns. The regularized solve must succeed without error.
func TestRankDeficientFallback(t *testing.T) {
	acts := [][]float64{
		{1, 1, 0},
		{2, 2, 0},
		{3, 3, 0},
		{4, 4, 0},
	}
	targets := [][]float64{{1}, {2}, {3}, {4}}

	dec, err := LstsqL2(acts, targets, 0.1)
	if err != nil {
		t.Fatalf("rank-deficient solve returned error: %v", err)
	}
	for _, row := range dec {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("non-finite decoder value %v", v)
			}
		}
	}
}

// TestZeroActivities checks the degenerate all-silent population: the solve
// must return zero decoders, not an error.
func TestZeroActivities(t *testing.T) {
	acts := [][]float64{{0, 0}, {0, 0}}
	targets := [][]float64{{1}, {2}}
	dec, err := LstsqL2(acts, targets, 0.1)
	if err != nil {
		t.Fatalf("zero-activity solve returned error: %v", err)
	}
	for _, row := range dec {
		if row[0] != 0 {
			t.Errorf("zero activities should give zero decoders, got %v", row[0])
		}
	}
}

func TestLstsqL2Validation(t *testing.T) {
	if _, err := LstsqL2(nil, nil, 0.1); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := LstsqL2([][]float64{{1}}, [][]float64{{1}, {2}}, 0.1); err == nil {
		t.Error("expected error for mismatched rows")
	}
}

func TestUnitVectorsAreUnit(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for _, d := range []int{1, 2, 5, 20} {
		for _, v := range UnitVectors(rng, 20, d) {
			if math.Abs(num.Norm(v)-1) > 1e-9 {
				t.Fatalf("dimension %d: norm = %v, want 1", d, num.Norm(v))
			}
		}
	}
}

func TestEvalPointsWithinRadius(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	radius := 1.5
	for _, p := range EvalPoints(rng, 200, 3, radius) {
		if num.Norm(p) > radius+1e-9 {
			t.Fatalf("eval point norm %v exceeds radius %v", num.Norm(p), radius)
		}
	}
}
