package product

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed default_template.json
var defaultTemplateJSON []byte

// Template is the static part of a product creation document: category
// metadata, logistics options, attribute definitions and pickup point.
// Assemble only ever fills the name, brand, productCode and images slots.
type Template struct {
	doc map[string]any
}

// ParseTemplate parses a JSON object into a Template.
func ParseTemplate(data []byte) (*Template, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse product template: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("product template must be a JSON object")
	}
	return &Template{doc: doc}, nil
}

// LoadTemplate reads a template from path, or returns the built-in template
// when path is empty.
func LoadTemplate(path string) (*Template, error) {
	if path == "" {
		return DefaultTemplate(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read product template: %w", err)
	}
	return ParseTemplate(data)
}

// DefaultTemplate returns the built-in template.
func DefaultTemplate() *Template {
	tmpl, err := ParseTemplate(defaultTemplateJSON)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// document returns a deep copy of the template document.
func (t *Template) document() map[string]any {
	return deepCopy(t.doc).(map[string]any)
}

func deepCopy(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
