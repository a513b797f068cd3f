package domain

import "regexp"

// ProductTranslation overrides the display text of a product for one locale.
type ProductTranslation struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Product is the document stored in products/<id>/data.json
type Product struct {
	ID             string                        `json:"id"`
	Name           string                        `json:"name"`
	CategoryID     string                        `json:"categoryId"`
	Category       string                        `json:"category"` // display label, denormalized from the category
	Description    string                        `json:"description"`
	Image          string                        `json:"image"`
	ImageAlt       string                        `json:"imageAlt"`
	Price          string                        `json:"price"`
	OriginalPrice  string                        `json:"originalPrice"`
	Features       []string                      `json:"features"`
	Specifications []string                      `json:"specifications"`
	Translations   map[string]ProductTranslation `json:"translations"`
}

// Localized returns a copy of the product with the locale's name and
// description applied. Unknown locales return the product unchanged.
func (p Product) Localized(locale string) Product {
	if locale == "" {
		return p
	}
	tr, ok := p.Translations[locale]
	if !ok {
		return p
	}
	if tr.Name != "" {
		p.Name = tr.Name
	}
	if tr.Description != "" {
		p.Description = tr.Description
	}
	return p
}

// ProductManifest is products/manifest.json
type ProductManifest struct {
	Products []string `json:"products"`
}

// Contains reports whether id is listed.
func (m ProductManifest) Contains(id string) bool {
	for _, v := range m.Products {
		if v == id {
			return true
		}
	}
	return false
}

// Without returns the manifest with every occurrence of id removed, order kept.
func (m ProductManifest) Without(id string) ProductManifest {
	ids := make([]string, 0, len(m.Products))
	for _, v := range m.Products {
		if v != id {
			ids = append(ids, v)
		}
	}
	return ProductManifest{Products: ids}
}

var productIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ValidID reports whether id is a URL-safe slug usable as a directory name.
func ValidID(id string) bool {
	return productIDPattern.MatchString(id)
}
