package charts

import (
	"fmt"
	"strings"
)

// FunctionFactory builds a remap function from its YAML arguments.
type FunctionFactory func(args map[string]any) (func(string) string, error)

// Functions is the registry of named remap functions usable in cgroupby.
var Functions = map[string]FunctionFactory{
	"prefix":      prefixFunction,
	"cost_sector": func(map[string]any) (func(string) string, error) { return CostSector, nil },
}

// NewFunction looks up and builds a registered remap function.
func NewFunction(name string, args map[string]any) (func(string) string, error) {
	factory, ok := Functions[name]
	if !ok {
		return nil, fmt.Errorf("unknown remap function %q", name)
	}
	return factory(args)
}

// prefixFunction keeps the first `length` runes of a label.
func prefixFunction(args map[string]any) (func(string) string, error) {
	n, ok := args["length"].(int)
	if !ok || n <= 0 {
		return nil, fmt.Errorf("prefix: length must be a positive integer, got %v", args["length"])
	}
	return func(label string) string {
		runes := []rune(label)
		if len(runes) <= n {
			return label
		}
		return string(runes[:n])
	}, nil
}

// Cost sectors reported by CostSector.
const (
	SectorHeatDistribution = "Building Heat Dist."
	SectorHeatEfficiency   = "Building Heat Eff."
	SectorHeatGeneration   = "Building Heat Gen."
	SectorDistrictHeating  = "DH systems"
	SectorTransmission     = "T&D (except DH)"
	SectorSupply           = "Supply"
	SectorOthers           = "Others"
)

// CostSector classifies a technology code into its cost-structure sector.
// Rules are checked in order; the first match wins.
func CostSector(tech string) string {
	switch {
	case strings.Contains(tech, "WDIS") || strings.Contains(tech, "RAUP"):
		return SectorHeatDistribution
	case strings.HasPrefix(tech, "BE"):
		return SectorHeatEfficiency
	case strings.Contains(tech, "DD") || strings.Contains(tech, "DNDO"):
		return SectorHeatGeneration
	case strings.HasPrefix(tech, "DH") || strings.Contains(tech, "SDIS"):
		return SectorDistrictHeating
	case strings.Contains(tech, "TDIS") || strings.Contains(tech, "TTRA"):
		return SectorTransmission
	case (strings.Contains(tech, "SNAT") || strings.Contains(tech, "SEXT")) && !strings.Contains(tail(tech, 2), "BS"):
		return SectorSupply
	}
	return SectorOthers
}

func tail(s string, from int) string {
	if len(s) <= from {
		return ""
	}
	return s[from:]
}
