package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var embeddedTemplates []byte

// Library holds the assistant personas and starter questions as data so
// deployments can tune wording without a rebuild.
type Library struct {
	DefaultPersona   string            `yaml:"default_persona"`
	Personas         map[string]string `yaml:"personas"`
	StarterQuestions []string          `yaml:"starter_questions"`
}

func Default() (Library, error) {
	return parse(embeddedTemplates)
}

// Load returns the embedded library overlaid with the YAML file at path.
// An empty path returns the embedded library unchanged.
func Load(path string) (Library, error) {
	lib, err := Default()
	if err != nil {
		return Library{}, err
	}
	if strings.TrimSpace(path) == "" {
		return lib, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Library{}, fmt.Errorf("read prompt templates: %w", err)
	}
	override, err := parse(raw)
	if err != nil {
		return Library{}, fmt.Errorf("parse prompt templates %s: %w", path, err)
	}
	return lib.merge(override), nil
}

// Persona returns the named persona text, falling back to the default
// persona for unknown names.
func (l Library) Persona(name string) string {
	if text, ok := l.Personas[strings.TrimSpace(name)]; ok {
		return text
	}
	return l.Personas[l.DefaultPersona]
}

func parse(raw []byte) (Library, error) {
	var lib Library
	if err := yaml.Unmarshal(raw, &lib); err != nil {
		return Library{}, fmt.Errorf("unmarshal prompt templates: %w", err)
	}
	return lib, nil
}

func (l Library) merge(override Library) Library {
	out := l
	if strings.TrimSpace(override.DefaultPersona) != "" {
		out.DefaultPersona = override.DefaultPersona
	}
	if len(override.Personas) > 0 {
		merged := make(map[string]string, len(l.Personas)+len(override.Personas))
		for name, text := range l.Personas {
			merged[name] = text
		}
		for name, text := range override.Personas {
			merged[name] = text
		}
		out.Personas = merged
	}
	if len(override.StarterQuestions) > 0 {
		out.StarterQuestions = override.StarterQuestions
	}
	return out
}
