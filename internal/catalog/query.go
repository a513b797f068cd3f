package catalog

import (
	"context"
	"strings"

	"github.com/launchmena/catalogd/internal/domain"
)

// ProductFilter narrows a product listing the way the storefront does.
type ProductFilter struct {
	// Query matches name, description, id and category id, case-insensitively.
	Query string `query:"q" validate:"max=200"`
	// CategoryID keeps products of exactly this category.
	CategoryID string `query:"category" validate:"max=128"`
	// Locale applies translation overrides before matching.
	Locale string `query:"locale" validate:"omitempty,max=16"`
}

// Match reports whether p passes the filter. p should already be localized.
func (f ProductFilter) Match(p domain.Product) bool {
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, field := range []string{p.Name, p.Description, p.ID, p.CategoryID} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// SearchProducts lists products in manifest order, localized and filtered.
func (s *Service) SearchProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	all, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	f.CategoryID = strings.TrimSpace(f.CategoryID)
	out := make([]domain.Product, 0, len(all))
	for _, p := range all {
		p = p.Localized(f.Locale)
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ProductsInCategory lists the products filed under categoryID. The category
// must exist.
func (s *Service) ProductsInCategory(ctx context.Context, categoryID, locale string) ([]domain.Product, error) {
	c, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return s.SearchProducts(ctx, ProductFilter{CategoryID: c.ID, Locale: locale})
}

// FeaturedCategories returns the categories flagged as featured.
func (s *Service) FeaturedCategories(ctx context.Context) ([]domain.Category, error) {
	all, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(all))
	for _, c := range all {
		if c.Featured {
			out = append(out, c)
		}
	}
	return out, nil
}
