package elementmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/weft/pkg/domain"
)

// File is the on-disk layout of an element map.
type File struct {
	Provides []string         `yaml:"provides" json:"provides"`
	Elements []map[string]any `yaml:"elements" json:"elements"`
}

// LoadFile reads an element map from a YAML or JSON file. The format is
// chosen by extension, defaulting to YAML.
func LoadFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read element map: %w", err)
	}
	m, err := Decode(data, strings.ToLower(filepath.Ext(path)) == ".json")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Decode parses element map content.
func Decode(data []byte, isJSON bool) (*Map, error) {
	var f File
	if isJSON {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse element map json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse element map yaml: %w", err)
		}
	}

	m := New()
	for i, raw := range f.Elements {
		t, err := DecodeTraits(raw)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if t.Name == "" {
			return nil, fmt.Errorf("element %d: missing name", i)
		}
		m.Add(t)
	}
	if len(f.Provides) > 0 {
		m.Provide(f.Provides...)
	}
	return m, nil
}

// DecodeTraits converts a loosely typed record (frontmatter, YAML map) into Traits.
func DecodeTraits(raw map[string]any) (domain.Traits, error) {
	var t domain.Traits
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &t,
	})
	if err != nil {
		return t, err
	}
	if err := dec.Decode(raw); err != nil {
		return t, fmt.Errorf("invalid traits: %w", err)
	}
	if _, err := ParsePortCount(t.PortCount); err != nil {
		return t, err
	}
	return t, nil
}

// Encode writes m in the File layout, as JSON or YAML.
func Encode(m *Map, asJSON bool) ([]byte, error) {
	var f File
	for _, t := range m.All() {
		var raw map[string]any
		if err := mapstructure.Decode(t, &raw); err != nil {
			return nil, err
		}
		for k, v := range raw {
			if s, ok := v.(string); ok && s == "" {
				delete(raw, k)
			}
		}
		f.Elements = append(f.Elements, raw)
	}
	if asJSON {
		return json.MarshalIndent(f, "", "  ")
	}
	return yaml.Marshal(f)
}
