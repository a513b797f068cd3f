// Package catalog implements the admin product operations and the catalog
// reads shared by the admin panel and the storefront API.
package catalog

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/launchmena/catalogd/internal/activity"
	"github.com/launchmena/catalogd/internal/domain"
)

// Store is the content persistence the service runs on.
type Store interface {
	ProductManifest(ctx context.Context) (domain.ProductManifest, error)
	UpdateProductManifest(ctx context.Context, fn func(m *domain.ProductManifest) error) error
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ProductExists(ctx context.Context, id string) (bool, error)
	PutProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
	ProductDirs(ctx context.Context) ([]string, error)

	CategoryManifest(ctx context.Context) (domain.CategoryManifest, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// Service runs product mutations and records each successful one in the
// activity log.
type Service struct {
	store    Store
	activity activity.Recorder
}

// NewService creates a catalog service
func NewService(store Store, rec activity.Recorder) *Service {
	return &Service{store: store, activity: rec}
}

// CreateProduct writes a new product, then appends its id to the manifest.
// The duplicate check and both writes run under the manifest lock, so a
// rejected duplicate never touches the stored data. A failed manifest write
// leaves the data file behind; CheckConsistency reports it.
func (s *Service) CreateProduct(ctx context.Context, actor domain.Actor, id string, in ProductInput) (*domain.Product, error) {
	product, err := in.toProduct(id)
	if err != nil {
		return nil, err
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	s.fillCategoryLabel(ctx, product)

	var written bool
	err = s.store.UpdateProductManifest(ctx, func(m *domain.ProductManifest) error {
		if m.Contains(product.ID) {
			return domain.ErrDuplicateID
		}
		if err := s.store.PutProduct(ctx, product); err != nil {
			return errors.WithMessage(err, "create product")
		}
		written = true
		m.Products = append(m.Products, product.ID)
		return nil
	})
	if err != nil {
		if written {
			zap.L().Error("product data written but manifest update failed",
				zap.String("product_id", product.ID), zap.Error(err))
			return nil, errors.WithMessage(err, "append to manifest")
		}
		return nil, err
	}

	s.activity.Log(actor, domain.ActionProductCreated, "Product ID: "+product.ID)
	return product, nil
}

// UpdateProduct replaces the whole product document. The product must exist.
func (s *Service) UpdateProduct(ctx context.Context, actor domain.Actor, id string, in ProductInput) (*domain.Product, error) {
	product, err := in.toProduct(id)
	if err != nil {
		return nil, err
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	exists, err := s.store.ProductExists(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}
	s.fillCategoryLabel(ctx, product)

	if err := s.store.PutProduct(ctx, product); err != nil {
		return nil, errors.WithMessage(err, "update product")
	}
	s.activity.Log(actor, domain.ActionProductUpdated, "Product ID: "+product.ID)
	return product, nil
}

// DeleteProduct removes the product directory, then the manifest entry.
func (s *Service) DeleteProduct(ctx context.Context, actor domain.Actor, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.NewValidationError("product_id", "Product ID is required.")
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return errors.WithMessage(err, "delete product")
	}
	err := s.store.UpdateProductManifest(ctx, func(m *domain.ProductManifest) error {
		*m = m.Without(id)
		return nil
	})
	if err != nil {
		zap.L().Error("product data removed but manifest update failed",
			zap.String("product_id", id), zap.Error(err))
		return errors.WithMessage(err, "remove from manifest")
	}
	s.activity.Log(actor, domain.ActionProductDeleted, "Product ID: "+id)
	return nil
}

// fillCategoryLabel copies the category name into the display label when the
// form left it blank. A missing category is not an error.
func (s *Service) fillCategoryLabel(ctx context.Context, p *domain.Product) {
	if p.Category != "" {
		return
	}
	c, err := s.store.GetCategory(ctx, p.CategoryID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			zap.L().Warn("category lookup failed", zap.String("category_id", p.CategoryID), zap.Error(err))
		}
		return
	}
	p.Category = c.Name
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.store.GetProduct(ctx, strings.TrimSpace(id))
}

// ListProducts returns the products in manifest order. Ids without a data
// file are skipped.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	m, err := s.store.ProductManifest(ctx)
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(m.Products))
	for _, id := range m.Products {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := s.store.GetProduct(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			zap.L().Warn("product listed in manifest has no data file", zap.String("product_id", id))
			continue
		}
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

// ListCategories returns the categories in manifest order.
func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.ListCategories(ctx)
}

// GetCategory returns one category.
func (s *Service) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return s.store.GetCategory(ctx, strings.TrimSpace(id))
}

// CategoryOptions lists the categories a product can be filed under.
func (s *Service) CategoryOptions(ctx context.Context) ([]domain.CategoryOption, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([]domain.CategoryOption, 0, len(categories))
	for _, c := range categories {
		opts = append(opts, domain.CategoryOption{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	return opts, nil
}

// Counts is the dashboard summary.
type Counts struct {
	Products   int `json:"products"`
	Categories int `json:"categories"`
}

// Counts returns the manifest sizes.
func (s *Service) Counts(ctx context.Context) (Counts, error) {
	pm, err := s.store.ProductManifest(ctx)
	if err != nil {
		return Counts{}, err
	}
	cm, err := s.store.CategoryManifest(ctx)
	if err != nil {
		return Counts{}, err
	}
	return Counts{Products: len(pm.Products), Categories: len(cm.Categories)}, nil
}
