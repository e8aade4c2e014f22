package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LabelTable is the versioned index→label lookup plus the display aliases
// applied wherever a label is reported. Precautions optionally fixes the
// order diseases are listed in for a NORMAL result, by canonical name.
type LabelTable struct {
	Version     string            `yaml:"version"`
	Normal      string            `yaml:"normal"`
	Classes     []string          `yaml:"classes"`
	Aliases     map[string]string `yaml:"aliases"`
	Precautions []string          `yaml:"precautions"`
}

func LoadLabels(path string) (*LabelTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	var t LabelTable
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("failed to parse labels %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid labels %s: %w", path, err)
	}
	return &t, nil
}

func (t *LabelTable) Validate() error {
	if len(t.Classes) == 0 {
		return fmt.Errorf("classes must not be empty")
	}
	if t.Normal == "" {
		return fmt.Errorf("normal label is required")
	}

	seen := make(map[string]bool, len(t.Classes))
	normal := false
	for i, c := range t.Classes {
		if c == "" {
			return fmt.Errorf("classes[%d] is empty", i)
		}
		if seen[c] {
			return fmt.Errorf("duplicate class %q", c)
		}
		seen[c] = true
		if t.Canonical(c) == t.Normal {
			normal = true
		}
	}
	if !normal {
		return fmt.Errorf("normal label %q is not among the classes", t.Normal)
	}

	diseases := make(map[string]bool, len(t.Classes))
	for _, c := range t.Classes {
		diseases[t.Canonical(c)] = true
	}
	listed := make(map[string]bool, len(t.Precautions))
	for i, p := range t.Precautions {
		if !diseases[p] || t.IsNormal(p) {
			return fmt.Errorf("precautions[%d] %q is not a canonical disease", i, p)
		}
		if listed[p] {
			return fmt.Errorf("duplicate precaution %q", p)
		}
		listed[p] = true
	}
	return nil
}

// Diseases lists the canonical non-normal labels, in Precautions order when
// one is configured and class order otherwise.
func (t *LabelTable) Diseases() []string {
	if len(t.Precautions) > 0 {
		return append([]string(nil), t.Precautions...)
	}
	var out []string
	for _, raw := range t.Classes {
		if c := t.Canonical(raw); !t.IsNormal(c) {
			out = append(out, c)
		}
	}
	return out
}

// Label returns the raw label at index i.
func (t *LabelTable) Label(i int) (string, error) {
	if i < 0 || i >= len(t.Classes) {
		return "", fmt.Errorf("class index %d out of range [0,%d)", i, len(t.Classes))
	}
	return t.Classes[i], nil
}

// Canonical rewrites a raw label to its display spelling.
func (t *LabelTable) Canonical(raw string) string {
	if alias, ok := t.Aliases[raw]; ok {
		return alias
	}
	return raw
}

func (t *LabelTable) IsNormal(canonical string) bool {
	return canonical == t.Normal
}

func (t *LabelTable) Len() int {
	return len(t.Classes)
}
