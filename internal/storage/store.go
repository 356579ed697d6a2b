// Package storage keeps a history of fit runs.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/synth"
)

// Run is one finished fit with everything needed to reproduce or plot it.
type Run struct {
	SchemaVersion int                `json:"schema_version"`
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Timestamp     time.Time          `json:"timestamp"`
	Seed          int64              `json:"seed"`
	Settings      synth.Settings     `json:"settings"`
	Iterations    int                `json:"iterations"`
	Accepted      int                `json:"accepted"`
	Sigma         float64            `json:"sigma"`
	Norm          float64            `json:"norm"`
	Radicals      []epr.Radical      `json:"radicals"`
	Metrics       map[string]float64 `json:"metrics"`
	Experimental  []float64          `json:"experimental,omitempty"`
	Theoretical   []float64          `json:"theoretical,omitempty"`
}

// Summary is the listing view of a run.
func (r Run) Summary() Run {
	s := r
	s.Experimental = nil
	s.Theoretical = nil
	return s
}

type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	// ListRuns returns summaries, newest first.
	ListRuns(ctx context.Context) ([]Run, error)
}

// NewRunID returns a unique id prefixed with a readable name.
func NewRunID(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, name)
	if name == "" {
		name = "fit"
	}
	return fmt.Sprintf("%s_%s", name, uuid.NewString()[:8])
}

func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", "file":
		return NewFileStore(path), nil
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

func sortNewestFirst(runs []Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
}
