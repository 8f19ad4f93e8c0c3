// Package collector maintains the tracked asset universe: which symbols
// the bot trades, their current prices, and the rolling daily history the
// analysis engine calibrates from.
package collector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UniverseEntry describes one tracked asset. The seed fields parameterize
// the synthetic feed used in paper mode; live feeds ignore them.
type UniverseEntry struct {
	Symbol          string  `yaml:"symbol"`
	Name            string  `yaml:"name"`
	SeedPrice       float64 `yaml:"seed_price"`
	DailyDrift      float64 `yaml:"daily_drift"`
	DailyVolatility float64 `yaml:"daily_volatility"`
}

// LoadUniverse reads the universe YAML file and validates every entry.
func LoadUniverse(path string) ([]UniverseEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}

	var doc struct {
		Assets []UniverseEntry `yaml:"assets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse universe file: %w", err)
	}
	if len(doc.Assets) == 0 {
		return nil, fmt.Errorf("universe file %s lists no assets", path)
	}

	seen := make(map[string]bool, len(doc.Assets))
	for i, e := range doc.Assets {
		if e.Symbol == "" {
			return nil, fmt.Errorf("universe entry %d: missing symbol", i)
		}
		if seen[e.Symbol] {
			return nil, fmt.Errorf("universe entry %d: duplicate symbol %s", i, e.Symbol)
		}
		seen[e.Symbol] = true
		if e.SeedPrice <= 0 {
			return nil, fmt.Errorf("universe entry %s: seed_price must be positive", e.Symbol)
		}
		if e.DailyVolatility < 0 {
			return nil, fmt.Errorf("universe entry %s: daily_volatility must not be negative", e.Symbol)
		}
	}
	return doc.Assets, nil
}
