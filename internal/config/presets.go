package config

import (
	"sort"

	"github.com/san-kum/eprsim/internal/epr"
)

func nitroxide() epr.Radical {
	r := epr.NewRadical(0.8, 70, 100, 0, epr.NewNucleus(1, 15.5, 1))
	r.Lwa.Var = 0.2
	r.Lrtz.Var = 10
	r.Nucs[0].Hpf.Var = 0.5
	return r
}

func methyl() epr.Radical {
	r := epr.NewRadical(0.6, 50, 100, 0, epr.NewNucleus(0.5, 23, 3))
	r.Lwa.Var = 0.1
	r.Nucs[0].Hpf.Var = 0.5
	return r
}

func dpph() epr.Radical {
	r := epr.NewRadical(1.5, 80, 100, 0, epr.NewNucleus(1, 9, 2))
	r.Lwa.Var = 0.3
	r.Dh1.Var = 0.2
	r.Nucs[0].Hpf.Var = 0.3
	return r
}

var Presets = map[string]func() []epr.Radical{
	"electron":  func() []epr.Radical { return []epr.Radical{epr.Electron()} },
	"probe":     func() []epr.Radical { return []epr.Radical{epr.Probe()} },
	"nitroxide": func() []epr.Radical { return []epr.Radical{nitroxide()} },
	"methyl":    func() []epr.Radical { return []epr.Radical{methyl()} },
	"dpph":      func() []epr.Radical { return []epr.Radical{dpph()} },
}

// GetPreset returns a default config seeded with the named radical set, or
// nil when there is no such preset.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Radicals = fn()
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
