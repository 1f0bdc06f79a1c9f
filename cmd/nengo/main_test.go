package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testScenario = `
name: smoke
seed: 3
duration: 0.05
nodes:
  - name: in
    constant: 0.5
ensembles:
  - name: a
    neurons: 30
    dimensions: 1
connections:
  - from: in
    to: a
    filter: 0.005
probes:
  - target: a
    filter: 0.01
`

func writeScenario(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "smoke.yaml")
	if err := os.WriteFile(path, []byte(testScenario), 0644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir)

	cmd := newRunCmd()
	cmd.Flags().Bool("json", false, "")
	cmd.Flags().String("db", filepath.Join(dir, "db"), "")
	cmd.Flags().String("log-level", "info", "")
	cmd.SetArgs([]string{path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunSaveAndExport(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir)
	dbDir := filepath.Join(dir, "db")

	run := newRunCmd()
	run.Flags().Bool("json", false, "")
	run.Flags().String("db", dbDir, "")
	run.Flags().String("log-level", "info", "")
	run.SetArgs([]string{path, "--save"})
	if err := run.Execute(); err != nil {
		t.Fatalf("run --save: %v", err)
	}

	outPath := filepath.Join(dir, "out.csv")
	export := newExportCmd()
	export.Flags().Bool("json", false, "")
	export.Flags().String("db", dbDir, "")
	export.SetArgs([]string{"1", "--probe", "a", "-o", outPath})
	if err := export.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "t,a[0]" {
		t.Errorf("csv header = %q", lines[0])
	}
	if len(lines) != 51 {
		t.Errorf("csv rows = %d, want 51", len(lines))
	}
}

func TestExportBadRunID(t *testing.T) {
	dir := t.TempDir()
	export := newExportCmd()
	export.Flags().Bool("json", false, "")
	export.Flags().String("db", filepath.Join(dir, "db"), "")
	export.SetArgs([]string{"not-a-number"})
	export.SilenceErrors = true
	export.SilenceUsage = true
	if err := export.Execute(); err == nil {
		t.Error("expected error for bad run id")
	}
}
