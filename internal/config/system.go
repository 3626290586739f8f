package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Simplici0/waterflow/internal/hydraulics"
)

// LoadSystem reads the YAML system file at path. Keys absent from the file
// keep the values of hydraulics.DefaultSystem:
//
//	fluid:
//	  density: 998.2
//	  dynamic_viscosity: 0.0010016
//	  gravity: 9.80665
//	supply:
//	  name: PVC schedule 80
//	  inner_diameter: 0.28687
//	  friction_factor: 0.013
//	  velocity: 1.65
//	household:
//	  name: HDPE SDR11
//	  inner_diameter: 0.048692
//	  friction_factor: 0.018
//	  velocity: 1.75
func LoadSystem(path string) (hydraulics.System, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return hydraulics.System{}, fmt.Errorf("system: read file: %w", err)
	}
	return ParseSystem(data)
}

// ParseSystem decodes a YAML system document over the default system.
func ParseSystem(data []byte) (hydraulics.System, error) {
	sys := hydraulics.DefaultSystem()
	if err := yaml.Unmarshal(data, &sys); err != nil {
		return hydraulics.System{}, fmt.Errorf("system: parse yaml: %w", err)
	}
	if err := sys.Validate(); err != nil {
		return hydraulics.System{}, fmt.Errorf("system: %w", err)
	}
	return sys, nil
}

// SystemOrDefault loads path, or returns the default system when path is empty.
func SystemOrDefault(path string) (hydraulics.System, error) {
	if path == "" {
		return hydraulics.DefaultSystem(), nil
	}
	return LoadSystem(path)
}
