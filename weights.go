package nftgen

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// DefaultWeight applies to options without weight metadata, which makes a
// group without any metadata uniform.
const DefaultWeight = 1.0

// WeightsFile is the optional per-group sidecar mapping trait name to weight.
// It takes precedence over a "#weight" file name suffix.
const WeightsFile = "weights.yaml"

// weightSep separates trait name and weight in a file name: "Red#12.png".
const weightSep = '#'

// parseOptionName splits "Gold Hat#2.5.png" into ("Gold Hat", 2.5).
func parseOptionName(file string) (string, float64, error) {
	base := strings.TrimSuffix(file, filepath.Ext(file))
	trait, weight := base, DefaultWeight
	if i := strings.LastIndexByte(base, weightSep); i >= 0 {
		w, err := strconv.ParseFloat(strings.TrimSpace(base[i+1:]), 64)
		if err != nil {
			return "", 0, fmt.Errorf("%w: %q", ErrInvalidWeight, base[i+1:])
		}
		trait, weight = base[:i], w
	}
	trait = strings.TrimSpace(trait)
	if trait == "" {
		return "", 0, errors.New("empty trait name")
	}
	if !validWeight(weight) {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidWeight, weight)
	}
	return trait, weight, nil
}

func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

// checkTotalWeight rejects options whose weights overflow when summed.
func checkTotalWeight(options []LayerOption) error {
	w := make([]float64, len(options))
	for i, o := range options {
		w[i] = o.Weight
	}
	if total := floats.Sum(w); math.IsInf(total, 0) || math.IsNaN(total) {
		return fmt.Errorf("%w: weights sum to %v", ErrInvalidWeight, total)
	}
	return nil
}

// readWeightsFile returns nil when the group has no sidecar.
func readWeightsFile(dir string) (map[string]float64, error) {
	data, err := os.ReadFile(filepath.Join(dir, WeightsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	weights := map[string]float64{}
	if err := yaml.Unmarshal(data, &weights); err != nil {
		return nil, fmt.Errorf("%s: %w", WeightsFile, err)
	}
	return weights, nil
}

func applyWeights(options []LayerOption, weights map[string]float64) error {
	for trait, w := range weights {
		i := -1
		for j := range options {
			if options[j].Name == trait {
				i = j
				break
			}
		}
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownTrait, trait)
		}
		if !validWeight(w) {
			return fmt.Errorf("%w: %q: %v", ErrInvalidWeight, trait, w)
		}
		options[i].Weight = w
	}
	return nil
}
