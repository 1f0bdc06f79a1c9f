package store

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hunse/nengo/internal/scenario"
)

func testResult(name string) *scenario.Result {
	return &scenario.Result{
		Name:     name,
		Seed:     7,
		DT:       0.001,
		Duration: 0.003,
		Steps:    3,
		Elapsed:  2 * time.Millisecond,
		Probes: []scenario.ProbeResult{
			{
				Target: "a",
				Times:  []float64{0, 0.001, 0.002},
				Data:   [][]float64{{0.1, -0.2}, {0.3, 0.4}, {0.5, -0.6}},
			},
			{
				Target: "time",
				Times:  []float64{0, 0.001, 0.002},
				Data:   [][]float64{{0}, {0.001}, {0.002}},
			},
		},
	}
}

func openTestStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	res := testResult("integrator")
	id, err := s.SaveResult(ctx, res)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := s.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if info.Name != "integrator" || info.Seed != 7 || info.Steps != 3 {
		t.Errorf("run info = %+v", info)
	}
	if info.DT != 0.001 || info.Duration != 0.003 {
		t.Errorf("run timing = dt %g duration %g", info.DT, info.Duration)
	}
	if info.CreatedAt.IsZero() {
		t.Error("created_at not recorded")
	}

	probes, err := s.Probes(ctx, id)
	if err != nil {
		t.Fatalf("probes: %v", err)
	}
	if !reflect.DeepEqual(probes, []string{"a", "time"}) {
		t.Errorf("probes = %v, want [a time]", probes)
	}

	samples, err := s.Samples(ctx, id, "a")
	if err != nil {
		t.Fatalf("samples: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(samples))
	}
	if samples[1].Time != 0.001 || !reflect.DeepEqual(samples[1].Data, []float64{0.3, 0.4}) {
		t.Errorf("sample[1] = %+v", samples[1])
	}
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.SaveResult(ctx, testResult("first"))
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	second, err := s.SaveResult(ctx, testResult("second"))
	if err != nil {
		t.Fatalf("save second: %v", err)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	// Newest first.
	if runs[0].ID != second || runs[1].ID != first {
		t.Errorf("order = [%d, %d], want [%d, %d]", runs[0].ID, runs[1].ID, second, first)
	}
}

func TestDeleteRun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.SaveResult(ctx, testResult("doomed"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.DeleteRun(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetRun(ctx, id); err == nil {
		t.Error("deleted run still readable")
	}
	samples, err := s.Samples(ctx, id, "a")
	if err != nil {
		t.Fatalf("samples after delete: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("samples survived cascade delete: %d", len(samples))
	}
	if err := s.DeleteRun(ctx, id); err == nil {
		t.Error("double delete succeeded")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id, err := s.SaveResult(ctx, testResult("durable"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	info, err := s2.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if info.Name != "durable" {
		t.Errorf("name = %q, want durable", info.Name)
	}
}

func TestExportCSV(t *testing.T) {
	samples := []Sample{
		{Time: 0, Data: []float64{0.1, -0.2}},
		{Time: 0.001, Data: []float64{0.3, 0.4}},
	}
	var sb strings.Builder
	if err := ExportCSV(&sb, "a", samples); err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if lines[0] != "t,a[0],a[1]" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "0,0.1,-0.2" {
		t.Errorf("row = %q", lines[1])
	}

	if err := ExportCSV(&sb, "empty", nil); err == nil {
		t.Error("expected error for empty samples")
	}
}
