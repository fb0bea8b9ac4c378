package assistant

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is the YAML shape of an assistant definition file:
//
//	name: Marvin
//	model: gpt-4o-mini
//	description: A paranoid android.
//	instructions: |
//	  You are a helpful, if gloomy, assistant.
//	temperature: 0.7
//	metadata:
//	  team: platform
type Definition struct {
	Name         string            `yaml:"name"`
	Model        string            `yaml:"model"`
	Description  string            `yaml:"description"`
	Instructions string            `yaml:"instructions"`
	Temperature  *float64          `yaml:"temperature"`
	Metadata     map[string]string `yaml:"metadata"`
}

// FromFile builds an Assistant from a YAML definition file. Options applied
// afterwards override file values; tools are always registered in code.
func FromFile(path string, optFns ...func(o *Options)) (*Assistant, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assistant file: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parse assistant file %s: %w", path, err)
	}
	if def.Model == "" {
		return nil, fmt.Errorf("assistant file %s: model is required", path)
	}

	fns := append([]func(o *Options){func(o *Options) {
		o.Name = def.Name
		o.Description = def.Description
		o.Instructions = NewInstructionFromText(def.Instructions)
		o.Temperature = def.Temperature
		o.Metadata = def.Metadata
	}}, optFns...)

	return New(def.Model, fns...), nil
}
