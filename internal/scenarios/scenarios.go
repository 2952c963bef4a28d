// Package scenarios ships the built-in dashboard and admin scenarios.
package scenarios

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/rocketship-ai/uiprobe/internal/dsl"
)

//go:embed builtin/*.yaml
var builtin embed.FS

// Names lists the built-in scenarios in name order.
func Names() []string {
	entries, err := builtin.ReadDir("builtin")
	if err != nil {
		// The directory is embedded; failing to read it is a build defect.
		panic(fmt.Sprintf("read embedded scenarios: %v", err))
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Source returns the raw YAML of a built-in scenario.
func Source(name string) ([]byte, error) {
	data, err := builtin.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown scenario %q (built-in: %s)", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Get parses a built-in scenario.
func Get(name string) (dsl.Scenario, error) {
	data, err := Source(name)
	if err != nil {
		return dsl.Scenario{}, err
	}
	scenario, err := dsl.ParseYAML(data)
	if err != nil {
		return dsl.Scenario{}, fmt.Errorf("built-in scenario %s: %w", name, err)
	}
	return scenario, nil
}

// All parses every built-in scenario.
func All() ([]dsl.Scenario, error) {
	var out []dsl.Scenario
	for _, name := range Names() {
		s, err := Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Resolve loads ref as a scenario file when it names an existing file and as
// a built-in scenario otherwise.
func Resolve(ref string) (dsl.Scenario, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return dsl.LoadFile(ref)
	}
	return Get(ref)
}
