// Package contentstore persists catalog content as flat JSON files with a
// manifest per entity type. Writes hold an exclusive flock on the target file,
// reads hold a shared one. Nothing here spans two files atomically.
package contentstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/launchmena/catalogd/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	productsDir   = "products"
	categoriesDir = "categories"
	manifestFile  = "manifest.json"
	dataFile      = "data.json"
	indent        = "    "
)

// FileStore is the file-backed content store rooted at a directory holding
// products/ and categories/.
type FileStore struct {
	root string
	// serializes manifest read-modify-write inside this process; flock covers other processes
	mu sync.Mutex
}

// New opens the store, creating the products and categories directories.
func New(root string) (*FileStore, error) {
	for _, dir := range []string{filepath.Join(root, productsDir), filepath.Join(root, categoriesDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageErr("mkdir", dir, err)
		}
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) productManifestPath() string {
	return filepath.Join(s.root, productsDir, manifestFile)
}

func (s *FileStore) productDir(id string) string {
	return filepath.Join(s.root, productsDir, id)
}

func (s *FileStore) categoryManifestPath() string {
	return filepath.Join(s.root, categoriesDir, manifestFile)
}

// ProductManifest reads products/manifest.json. A missing file is an empty manifest.
func (s *FileStore) ProductManifest(ctx context.Context) (domain.ProductManifest, error) {
	var m domain.ProductManifest
	p := s.productManifestPath()
	data, err := readLocked(p)
	if errors.Is(err, os.ErrNotExist) {
		return domain.ProductManifest{Products: []string{}}, nil
	}
	if err != nil {
		return m, storageErr("read", p, err)
	}
	if len(data) > 0 {
		if err := decode(data, &m); err != nil {
			return m, storageErr("decode", p, err)
		}
	}
	if m.Products == nil {
		m.Products = []string{}
	}
	return m, nil
}

// SaveProductManifest replaces products/manifest.json.
func (s *FileStore) SaveProductManifest(ctx context.Context, m domain.ProductManifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateProductManifest(ctx, func(cur *domain.ProductManifest) error {
		*cur = m
		return nil
	})
}

// UpdateProductManifest applies fn to the manifest while holding the manifest
// lock. The file is rewritten only when fn returns nil.
func (s *FileStore) UpdateProductManifest(ctx context.Context, fn func(m *domain.ProductManifest) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateProductManifest(ctx, fn)
}

func (s *FileStore) updateProductManifest(ctx context.Context, fn func(m *domain.ProductManifest) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := s.productManifestPath()
	var fnErr error
	err := updateLocked(p, func(data []byte) ([]byte, error) {
		var m domain.ProductManifest
		if len(data) > 0 {
			if err := decode(data, &m); err != nil {
				return nil, errors.Wrap(err, "decode manifest")
			}
		}
		if fnErr = fn(&m); fnErr != nil {
			return nil, fnErr
		}
		if m.Products == nil {
			m.Products = []string{}
		}
		return encode(m)
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return storageErr("update", p, err)
	}
	return nil
}

// GetProduct reads products/<id>/data.json.
func (s *FileStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if !domain.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	p := filepath.Join(s.productDir(id), dataFile)
	data, err := readLocked(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("read", p, err)
	}
	var product domain.Product
	if err := decode(data, &product); err != nil {
		return nil, storageErr("decode", p, err)
	}
	if product.ID == "" {
		product.ID = id
	}
	return &product, nil
}

// ProductExists reports whether the product's data file is present.
func (s *FileStore) ProductExists(ctx context.Context, id string) (bool, error) {
	if !domain.ValidID(id) {
		return false, nil
	}
	p := filepath.Join(s.productDir(id), dataFile)
	_, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("stat", p, err)
	}
	return true, nil
}

// PutProduct writes products/<id>/data.json, creating the directory if needed.
func (s *FileStore) PutProduct(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !domain.ValidID(product.ID) {
		return domain.NewValidationError("product_id", "Product ID may only contain letters, digits, '-' and '_'.")
	}
	dir := s.productDir(product.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageErr("mkdir", dir, err)
	}
	data, err := encode(product)
	if err != nil {
		return storageErr("encode", dir, err)
	}
	p := filepath.Join(dir, dataFile)
	if err := writeLocked(p, data); err != nil {
		return storageErr("write", p, err)
	}
	return nil
}

// DeleteProduct removes every file under products/<id>/ and the directory itself.
func (s *FileStore) DeleteProduct(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !domain.ValidID(id) {
		return domain.ErrNotFound
	}
	dir := s.productDir(id)
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return domain.ErrNotFound
	}
	if err != nil {
		return storageErr("stat", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return storageErr("readdir", dir, err)
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			return storageErr("remove", p, err)
		}
	}
	if err := os.Remove(dir); err != nil {
		return storageErr("rmdir", dir, err)
	}
	return nil
}

// ProductDirs lists the product directories present on disk, sorted.
func (s *FileStore) ProductDirs(ctx context.Context) ([]string, error) {
	dir := filepath.Join(s.root, productsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, storageErr("readdir", dir, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && e.Name() != categoriesDir {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CategoryManifest reads categories/manifest.json. A missing file is an empty manifest.
func (s *FileStore) CategoryManifest(ctx context.Context) (domain.CategoryManifest, error) {
	var m domain.CategoryManifest
	p := s.categoryManifestPath()
	data, err := readLocked(p)
	if errors.Is(err, os.ErrNotExist) {
		return domain.CategoryManifest{Categories: []string{}}, nil
	}
	if err != nil {
		return m, storageErr("read", p, err)
	}
	if len(data) > 0 {
		if err := decode(data, &m); err != nil {
			return m, storageErr("decode", p, err)
		}
	}
	if m.Categories == nil {
		m.Categories = []string{}
	}
	return m, nil
}

// GetCategory reads categories/<id>/data.json.
func (s *FileStore) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	if !domain.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	p := filepath.Join(s.root, categoriesDir, id, dataFile)
	data, err := readLocked(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("read", p, err)
	}
	var c domain.Category
	if err := decode(data, &c); err != nil {
		return nil, storageErr("decode", p, err)
	}
	if c.ID == "" {
		c.ID = id
	}
	return &c, nil
}

// ListCategories returns the categories in manifest order. Ids whose data
// file is missing are skipped.
func (s *FileStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	m, err := s.CategoryManifest(ctx)
	if err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(m.Categories))
	for _, id := range m.Categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := s.GetCategory(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			zap.L().Warn("category listed in manifest has no data file", zap.String("category_id", id))
			continue
		}
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, nil
}

// SaveCategory writes categories/<id>/data.json. Used for seeding content.
func (s *FileStore) SaveCategory(ctx context.Context, c *domain.Category) error {
	if !domain.ValidID(c.ID) {
		return domain.NewValidationError("id", "Category ID may only contain letters, digits, '-' and '_'.")
	}
	dir := filepath.Join(s.root, categoriesDir, c.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageErr("mkdir", dir, err)
	}
	data, err := encode(c)
	if err != nil {
		return storageErr("encode", dir, err)
	}
	p := filepath.Join(dir, dataFile)
	if err := writeLocked(p, data); err != nil {
		return storageErr("write", p, err)
	}
	return nil
}

// SaveCategoryManifest replaces categories/manifest.json.
func (s *FileStore) SaveCategoryManifest(ctx context.Context, m domain.CategoryManifest) error {
	if m.Categories == nil {
		m.Categories = []string{}
	}
	data, err := encode(m)
	if err != nil {
		return storageErr("encode", s.categoryManifestPath(), err)
	}
	if err := writeLocked(s.categoryManifestPath(), data); err != nil {
		return storageErr("write", s.categoryManifestPath(), err)
	}
	return nil
}

func encode(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", indent)
}

func decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func storageErr(op, path string, err error) error {
	return &domain.StorageError{Op: op, Path: path, Err: err}
}

func readLocked(p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := lockShared(f); err != nil {
		return nil, errors.Wrap(err, "flock shared")
	}
	defer unlock(f) //nolint:errcheck
	return io.ReadAll(f)
}

func writeLocked(p string, data []byte) error {
	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := lockExclusive(f); err != nil {
		return errors.Wrap(err, "flock exclusive")
	}
	defer unlock(f) //nolint:errcheck
	return rewrite(f, data)
}

// updateLocked reads p, passes its content to fn and writes fn's result back,
// all under one exclusive lock.
func updateLocked(p string, fn func(data []byte) ([]byte, error)) error {
	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := lockExclusive(f); err != nil {
		return errors.Wrap(err, "flock exclusive")
	}
	defer unlock(f) //nolint:errcheck
	cur, err := io.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "read")
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	return rewrite(f, next)
}

func rewrite(f *os.File, data []byte) error {
	if err := f.Truncate(0); err != nil {
		return errors.Wrap(err, "truncate")
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		return errors.Wrap(err, "write")
	}
	return errors.Wrap(f.Sync(), "sync")
}
