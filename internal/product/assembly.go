package product

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrMissingName        = errors.New("product name is required")
	ErrMissingBrand       = errors.New("brand is required")
	ErrMissingProductCode = errors.New("product code is required")
)

// Fields are the form values copied into the product document.
type Fields struct {
	Name        string
	Brand       string
	ProductCode string
}

// Validate checks that the required fields are set.
func (f Fields) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(f.Brand) == "" {
		return ErrMissingBrand
	}
	return nil
}

// Image is one uploaded image as referenced by the product document.
type Image struct {
	Sequence     int
	LocationPath string
}

// Assemble fills the template with fields and images. Images are ordered by
// sequence; only sequence 0 is flagged as the main image. The template itself
// is not modified.
func Assemble(tmpl *Template, fields Fields, imgs []Image) (map[string]any, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if fields.ProductCode == "" {
		return nil, ErrMissingProductCode
	}

	sorted := append([]Image(nil), imgs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	items := make([]any, len(sorted))
	for i, img := range sorted {
		items[i] = map[string]any{
			"sequence":     img.Sequence,
			"mainImages":   img.Sequence == 0,
			"locationPath": img.LocationPath,
		}
	}

	doc := tmpl.document()
	doc["name"] = strings.TrimSpace(fields.Name)
	doc["brand"] = strings.TrimSpace(fields.Brand)
	doc["productCode"] = fields.ProductCode
	doc["images"] = items
	return doc, nil
}
