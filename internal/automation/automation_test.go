package automation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/experiment"
	"github.com/san-kum/eprsim/internal/ingest"
	"github.com/san-kum/eprsim/internal/storage"
	"github.com/san-kum/eprsim/internal/synth"
)

var settings = synth.Settings{Sweep: 50, Points: 256}

func target() epr.Radical {
	return epr.NewRadical(1.0, 80, 100, 0, epr.NewNucleus(0.5, 6, 1))
}

// writeData synthesizes the target spectrum into a three-column file.
func writeData(t *testing.T, dir string) string {
	t.Helper()
	s, err := synth.New(settings)
	if err != nil {
		t.Fatal(err)
	}
	data, err := s.Synthesize([]epr.Radical{target()})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "doublet.txt")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := ingest.Write(f, data, settings.Sweep); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeScenario(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	data := writeData(t, dir)
	report := filepath.Join(dir, "second.csv")
	path := writeScenario(t, dir, `
name: doublet
sweep: 50
points: 256
iterations: 60
steps:
  - name: first
    experimental: `+data+`
    radicals:
      - lwa: {val: 0.6, var: 0.3}
        lrtz: {val: 80, var: 0}
        amount: {val: 100, var: 0}
        dh1: {val: 0, var: 0}
        nuclei:
          - spin: {val: 0.5, var: 0}
            hpf: {val: 6, var: 0}
            eqs: {val: 1, var: 0}
  - name: second
    experimental: `+data+`
    chain: true
    edits:
      0.lrtz.var: 5
    seeds: 2
    seed: 4
    save_as: `+report+`
`)

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}

	store := storage.NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	results, err := NewRunner(experiment.NewRegistry(), store, nil).RunScenario(context.Background(), sc)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}

	first, second := results[0], results[1]
	if first.Step != "first" || first.Run.Iterations != 60 {
		t.Errorf("first step = %s, %d iterations", first.Step, first.Run.Iterations)
	}
	if second.Run.Radicals[0].Lrtz.Var != 5 {
		t.Errorf("edit not applied: %+v", second.Run.Radicals[0].Lrtz)
	}
	// chained from the first fit, so it can only improve on it
	if second.Run.Sigma > first.Run.Sigma {
		t.Errorf("chained sigma %v above %v", second.Run.Sigma, first.Run.Sigma)
	}
	if !strings.HasPrefix(second.Run.Name, "second-s") {
		t.Errorf("ensemble member name = %s", second.Run.Name)
	}

	runs, err := store.ListRuns(context.Background())
	if err != nil || len(runs) != 2 {
		t.Errorf("stored %d runs, err %v", len(runs), err)
	}
	if _, err := os.Stat(report); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

func TestRunScenarioStopsAtFailure(t *testing.T) {
	sc := &Scenario{
		Name:       "bad",
		Points:     256,
		Sweep:      50,
		Iterations: 5,
		Steps: []ScenarioStep{
			{Preset: "probe"},
			{Preset: "benzene"},
		},
	}
	results, err := NewRunner(experiment.NewRegistry(), nil, nil).RunScenario(context.Background(), sc)
	if err == nil {
		t.Fatal("expected error")
	}
	// the first step has no data to fit against
	if len(results) != 0 || !strings.Contains(err.Error(), "step 1 (bad-1)") {
		t.Errorf("results=%d err=%v", len(results), err)
	}
}

func TestStartRadicals(t *testing.T) {
	r := NewRunner(experiment.NewRegistry(), nil, nil)
	prev := []epr.Radical{target()}

	tests := []struct {
		name    string
		step    ScenarioStep
		prev    []epr.Radical
		want    int
		wantErr bool
	}{
		{"inline", ScenarioStep{Radicals: []epr.Radical{epr.Electron(), epr.Probe()}}, nil, 2, false},
		{"preset", ScenarioStep{Preset: "nitroxide"}, nil, 1, false},
		{"chain", ScenarioStep{Chain: true}, prev, 1, false},
		{"chain first", ScenarioStep{Chain: true}, nil, 0, true},
		{"unknown preset", ScenarioStep{Preset: "benzene"}, nil, 0, true},
		{"nothing", ScenarioStep{}, prev, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.startRadicals(tt.step, tt.prev)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d radicals", len(got))
			}
		})
	}
}

func TestLoadScenarioEmpty(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "name: empty\n")
	if _, err := LoadScenario(path); err == nil {
		t.Error("expected error for a scenario without steps")
	}
}

func TestRunSweep(t *testing.T) {
	s, _ := synth.New(settings)
	data, err := s.Synthesize([]epr.Radical{target()})
	if err != nil {
		t.Fatal(err)
	}
	start := target()
	start.Lwa.Var = 0.2

	sweep := &ParameterSweep{
		Base: experiment.Config{
			Name:         "sweep",
			Settings:     settings,
			Experimental: data,
			Radicals:     []epr.Radical{start},
			Iterations:   20,
			Seed:         1,
		},
		Target:   "0.lwa.val",
		ParamMin: 0.5,
		ParamMax: 1.5,
		NumSteps: 3,
	}
	results, err := NewRunner(experiment.NewRegistry(), nil, nil).RunSweep(context.Background(), sweep)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	for i, want := range []float64{0.5, 1.0, 1.5} {
		if results[i].Start != want {
			t.Errorf("start %d = %v, want %v", i, results[i].Start, want)
		}
	}
	// starting on the target leaves nothing to improve
	if results[1].Accepted != 0 || results[1].Final != 1.0 {
		t.Errorf("middle point moved: %+v", results[1])
	}
	if results[0].Sigma <= results[1].Sigma || results[2].Sigma <= results[1].Sigma {
		t.Errorf("off-target starts scored better: %+v", results)
	}

	sweep.NumSteps = 1
	if _, err := NewRunner(experiment.NewRegistry(), nil, nil).RunSweep(context.Background(), sweep); err == nil {
		t.Error("expected error for a single-step sweep")
	}
}
