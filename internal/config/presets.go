package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets/deductions.yaml
var defaultDeductionPresets []byte

// DeductionPreset is one seedable deduction rule.
type DeductionPreset struct {
	Name        string  `yaml:"name"`
	Type        string  `yaml:"type"`
	Value       float64 `yaml:"value"`
	Frequency   string  `yaml:"frequency"`
	Description string  `yaml:"description"`
}

type presetFile struct {
	Deductions []DeductionPreset `yaml:"deductions"`
}

// LoadDeductionPresets reads presets from path.
func LoadDeductionPresets(path string) ([]DeductionPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deduction presets: %w", err)
	}
	return ParseDeductionPresets(data)
}

// LoadDeductionPresetsOrDefault reads presets from path, or the embedded
// defaults when path is empty.
func LoadDeductionPresetsOrDefault(path string) ([]DeductionPreset, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultDeductionPresets()
	}
	return LoadDeductionPresets(path)
}

// DefaultDeductionPresets returns the embedded preset list.
func DefaultDeductionPresets() ([]DeductionPreset, error) {
	return ParseDeductionPresets(defaultDeductionPresets)
}

// ParseDeductionPresets decodes a preset document.
func ParseDeductionPresets(data []byte) ([]DeductionPreset, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse deduction presets: %w", err)
	}
	for i, p := range file.Deductions {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("deduction preset %d: name is required", i)
		}
		if strings.TrimSpace(p.Type) == "" {
			return nil, fmt.Errorf("deduction preset %q: type is required", p.Name)
		}
	}
	return file.Deductions, nil
}
