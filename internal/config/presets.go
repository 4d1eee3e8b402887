package config

import (
	"sort"

	"github.com/san-kum/springsim/internal/spring"
)

var Presets = map[string]SpringConfig{
	"default":  {Tension: spring.DefaultTension, Friction: spring.DefaultFriction},
	"gentle":   {Tension: 120, Friction: 14},
	"wobbly":   {Tension: 180, Friction: 12},
	"stiff":    {Tension: 210, Friction: 20},
	"slow":     {Tension: 280, Friction: 60},
	"molasses": {Tension: 280, Friction: 120},
	"noWobble": {Tension: 170, Friction: 26},
	"origami":  FromSpring(spring.FromOrigami(40, 7)),
}

func GetPreset(name string) *SpringConfig {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return &p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset looks name up in the file's own presets first, then the built-in
// ones.
func (c *Config) Preset(name string) *SpringConfig {
	if p, ok := c.Presets[name]; ok {
		return &p
	}
	return GetPreset(name)
}

// PresetNames lists built-in and file presets, sorted.
func (c *Config) PresetNames() []string {
	seen := make(map[string]bool, len(Presets)+len(c.Presets))
	names := ListPresets()
	for _, n := range names {
		seen[n] = true
	}
	for n := range c.Presets {
		if !seen[n] {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}
