package flow

import (
	"embed"
	"fmt"
	"path"

	"gopkg.in/yaml.v3"

	"prism-board/schema"
)

//go:embed flows/*.yaml
var definitions embed.FS

// SafetySetting is a content-safety threshold for one harm category.
// Values use the model provider's enum names.
type SafetySetting struct {
	Category  string `yaml:"category"`
	Threshold string `yaml:"threshold"`
}

// Definition declares a flow: its prompt template, the shapes of its input
// and output, and the safety settings it always runs with.
type Definition struct {
	Name   string          `yaml:"name"`
	Model  string          `yaml:"model,omitempty"`
	Prompt string          `yaml:"prompt"`
	Input  schema.Shape    `yaml:"input"`
	Output schema.Shape    `yaml:"output"`
	Safety []SafetySetting `yaml:"safety,omitempty"`
}

// Check validates the declaration.
func (d Definition) Check() error {
	if d.Name == "" {
		return fmt.Errorf("flow without name")
	}
	if d.Prompt == "" {
		return fmt.Errorf("flow %s: empty prompt", d.Name)
	}
	if d.Input.Type != schema.Object || d.Output.Type != schema.Object {
		return fmt.Errorf("flow %s: input and output must be objects", d.Name)
	}
	if err := d.Input.Check(); err != nil {
		return fmt.Errorf("flow %s input: %w", d.Name, err)
	}
	if err := d.Output.Check(); err != nil {
		return fmt.Errorf("flow %s output: %w", d.Name, err)
	}
	for _, s := range d.Safety {
		if s.Category == "" || s.Threshold == "" {
			return fmt.Errorf("flow %s: incomplete safety setting", d.Name)
		}
	}
	return nil
}

// ParseDefinition decodes a YAML flow declaration.
func ParseDefinition(data []byte) (Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Definition{}, fmt.Errorf("decode flow: %w", err)
	}
	if err := d.Check(); err != nil {
		return Definition{}, err
	}
	return d, nil
}

// LoadDefinition reads a built-in flow declaration by file name.
func LoadDefinition(file string) (Definition, error) {
	data, err := definitions.ReadFile(path.Join("flows", file))
	if err != nil {
		return Definition{}, fmt.Errorf("load flow %s: %w", file, err)
	}
	return ParseDefinition(data)
}
