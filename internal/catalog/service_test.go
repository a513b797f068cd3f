package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchmena/catalogd/internal/contentstore"
	"github.com/launchmena/catalogd/internal/domain"
)

type memRecorder struct {
	mu      sync.Mutex
	actions []string
	details []string
}

func (r *memRecorder) Log(_ domain.Actor, action, details string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
	r.details = append(r.details, details)
}

var admin = domain.Actor{Username: "admin", IP: "127.0.0.1"}

func newTestService(t *testing.T) (*Service, *contentstore.FileStore, *memRecorder) {
	t.Helper()
	store, err := contentstore.New(t.TempDir())
	require.NoError(t, err)
	rec := &memRecorder{}
	return NewService(store, rec), store, rec
}

func seedCategory(t *testing.T, store *contentstore.FileStore, c domain.Category) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveCategory(ctx, &c))
	m, err := store.CategoryManifest(ctx)
	require.NoError(t, err)
	m.Categories = append(m.Categories, c.ID)
	require.NoError(t, store.SaveCategoryManifest(ctx, m))
}

func x431Input() ProductInput {
	return ProductInput{
		Name:           "  Launch X431 PRO  ",
		CategoryID:     "diagnostic-tools",
		Description:    "Full-system <b>diagnostics</b>",
		Price:          "1299.00",
		Features:       "Bidirectional control\r\n\n  ECU coding  \n",
		Specifications: "10.1\" display\nAndroid 10",
		Translations:   `{"ar":{"name":"لانش X431 برو"}}`,
	}
}

func TestCreateAndDeleteProduct(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, admin, "launch-x431-pro", x431Input())
	require.NoError(t, err)
	assert.Equal(t, "Launch X431 PRO", p.Name)
	assert.Equal(t, "Full-system <b>diagnostics</b>", p.Description)
	assert.Equal(t, []string{"Bidirectional control", "ECU coding"}, p.Features)
	assert.Equal(t, []string{"10.1\" display", "Android 10"}, p.Specifications)
	assert.Equal(t, "لانش X431 برو", p.Translations["ar"].Name)

	m, err := store.ProductManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"launch-x431-pro"}, m.Products)

	raw, err := os.ReadFile(filepath.Join(store.Root(), "products", "launch-x431-pro", "data.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n    \"name\": \"Launch X431 PRO\"")

	got, err := svc.GetProduct(ctx, "launch-x431-pro")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	require.NoError(t, svc.DeleteProduct(ctx, admin, "launch-x431-pro"))
	m, err = store.ProductManifest(ctx)
	require.NoError(t, err)
	assert.Empty(t, m.Products)
	_, err = os.Stat(filepath.Join(store.Root(), "products", "launch-x431-pro"))
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, []string{domain.ActionProductCreated, domain.ActionProductDeleted}, rec.actions)
	assert.Equal(t, []string{"Product ID: launch-x431-pro", "Product ID: launch-x431-pro"}, rec.details)

	_, err = svc.GetProduct(ctx, "launch-x431-pro")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		in    ProductInput
		field string
	}{
		{name: "missing id", id: "  ", in: x431Input(), field: "product_id"},
		{name: "missing name", id: "p1", in: ProductInput{CategoryID: "c"}, field: "name"},
		{name: "blank name", id: "p1", in: ProductInput{Name: " \t", CategoryID: "c"}, field: "name"},
		{name: "missing category", id: "p1", in: ProductInput{Name: "n"}, field: "categoryId"},
		{name: "path traversal", id: "../etc", in: x431Input(), field: "product_id"},
		{name: "space in id", id: "launch x431", in: x431Input(), field: "product_id"},
		{name: "too long", id: strings.Repeat("a", 129), in: x431Input(), field: "product_id"},
		{name: "bad translations", id: "p1", in: ProductInput{Name: "n", CategoryID: "c", Translations: "{not json"}, field: "translations"},
		{name: "translations array", id: "p1", in: ProductInput{Name: "n", CategoryID: "c", Translations: "[]"}, field: "translations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, rec := newTestService(t)

			_, err := svc.CreateProduct(context.Background(), admin, tt.id, tt.in)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, rec.actions)

			dirs, err := store.ProductDirs(context.Background())
			require.NoError(t, err)
			assert.Empty(t, dirs)
		})
	}
}

func TestCreateProduct_EmptyTranslations(t *testing.T) {
	svc, _, _ := newTestService(t)
	p, err := svc.CreateProduct(context.Background(), admin, "p1", ProductInput{Name: "n", CategoryID: "c"})
	require.NoError(t, err)
	assert.NotNil(t, p.Translations)
	assert.Empty(t, p.Translations)
	assert.Equal(t, []string{}, p.Features)
}

func TestCreateProduct_Duplicate(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, admin, "launch-x431-pro", x431Input())
	require.NoError(t, err)

	in := x431Input()
	in.Name = "Overwritten"
	_, err = svc.CreateProduct(ctx, admin, "launch-x431-pro", in)
	assert.ErrorIs(t, err, domain.ErrDuplicateID)

	p, err := store.GetProduct(ctx, "launch-x431-pro")
	require.NoError(t, err)
	assert.Equal(t, "Launch X431 PRO", p.Name)
	m, err := store.ProductManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"launch-x431-pro"}, m.Products)
	assert.Len(t, rec.actions, 1)
}

func TestCreateProduct_FillsCategoryLabel(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedCategory(t, store, domain.Category{ID: "diagnostic-tools", Name: "Diagnostic Tools", Slug: "diagnostic-tools"})

	p, err := svc.CreateProduct(context.Background(), admin, "p1", x431Input())
	require.NoError(t, err)
	assert.Equal(t, "Diagnostic Tools", p.Category)

	in := x431Input()
	in.Category = "Scanners"
	p, err = svc.CreateProduct(context.Background(), admin, "p2", in)
	require.NoError(t, err)
	assert.Equal(t, "Scanners", p.Category)
}

type failingManifestStore struct {
	*contentstore.FileStore
}

// UpdateProductManifest runs fn against the current manifest, then fails the write.
func (s failingManifestStore) UpdateProductManifest(ctx context.Context, fn func(m *domain.ProductManifest) error) error {
	m, err := s.ProductManifest(ctx)
	if err != nil {
		return err
	}
	if err := fn(&m); err != nil {
		return err
	}
	return &domain.StorageError{Op: "update", Path: "products/manifest.json", Err: errors.New("disk full")}
}

func TestCreateProduct_ManifestFailureLeavesOrphan(t *testing.T) {
	store, err := contentstore.New(t.TempDir())
	require.NoError(t, err)
	rec := &memRecorder{}
	svc := NewService(failingManifestStore{store}, rec)
	ctx := context.Background()

	_, err = svc.CreateProduct(ctx, admin, "orphan", x431Input())
	require.ErrorIs(t, err, domain.ErrStorage)
	assert.Empty(t, rec.actions)

	report, err := svc.CheckConsistency(ctx)
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, []string{"orphan"}, IDs(report.Unlisted))
	assert.Empty(t, report.MissingData)
	for _, f := range report.Findings() {
		assert.ErrorIs(t, f, domain.ErrOrphanedRecord)
	}
}

func TestUpdateProduct(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateProduct(ctx, admin, "launch-x431-pro", x431Input())
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, admin, "launch-x431-pro", ProductInput{
		Name:       "Launch X431 PRO V5",
		CategoryID: "diagnostic-tools",
		Price:      "1199.00",
	})
	require.NoError(t, err)
	assert.Equal(t, "launch-x431-pro", updated.ID)

	got, err := store.GetProduct(ctx, "launch-x431-pro")
	require.NoError(t, err)
	assert.Equal(t, "Launch X431 PRO V5", got.Name)
	assert.Empty(t, got.Features, "update replaces the whole document")
	assert.Empty(t, got.Description)

	assert.Equal(t, []string{domain.ActionProductCreated, domain.ActionProductUpdated}, rec.actions)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	svc, store, rec := newTestService(t)

	_, err := svc.UpdateProduct(context.Background(), admin, "ghost", x431Input())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, rec.actions)

	exists, err := store.ProductExists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteProduct_NotFound(t *testing.T) {
	svc, _, rec := newTestService(t)

	err := svc.DeleteProduct(context.Background(), admin, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, rec.actions)

	var verr *domain.ValidationError
	require.ErrorAs(t, svc.DeleteProduct(context.Background(), admin, " "), &verr)
	assert.Equal(t, "product_id", verr.Field)
}

func TestListProducts_SkipsMissingData(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.CreateProduct(ctx, admin, id, ProductInput{Name: strings.ToUpper(id), CategoryID: "x"})
		require.NoError(t, err)
	}
	require.NoError(t, os.RemoveAll(filepath.Join(store.Root(), "products", "b")))

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "a", products[0].ID)
	assert.Equal(t, "c", products[1].ID)

	report, err := svc.CheckConsistency(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, IDs(report.MissingData))
	assert.Empty(t, report.Unlisted)
	assert.Equal(t, 3, report.Listed)
	assert.Equal(t, 2, report.OnDisk)

	counts, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Products: 3, Categories: 0}, counts)
}

func TestCheckConsistency_Clean(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateProduct(context.Background(), admin, "p1", ProductInput{Name: "n", CategoryID: "c"})
	require.NoError(t, err)

	report, err := svc.CheckConsistency(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Empty(t, report.Findings())
}

func TestConcurrentCreates(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "p" + string(rune('a'+i))
			_, err := svc.CreateProduct(ctx, admin, id, ProductInput{Name: id, CategoryID: "c"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	m, err := store.ProductManifest(ctx)
	require.NoError(t, err)
	assert.Len(t, m.Products, 10)
	assert.Len(t, rec.actions, 10)
}

func TestConcurrentCreates_SameID(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		id := "dup-" + strconv.Itoa(i)
		names := []string{"first", "second"}
		errs := make([]error, len(names))

		var wg sync.WaitGroup
		for j, name := range names {
			wg.Add(1)
			go func(j int, name string) {
				defer wg.Done()
				_, errs[j] = svc.CreateProduct(ctx, admin, id, ProductInput{Name: name, CategoryID: "c"})
			}(j, name)
		}
		wg.Wait()

		var winner string
		for j, err := range errs {
			if err == nil {
				require.Empty(t, winner, "both creates of %s succeeded", id)
				winner = names[j]
				continue
			}
			require.ErrorIs(t, err, domain.ErrDuplicateID)
		}
		require.NotEmpty(t, winner)

		stored, err := store.GetProduct(ctx, id)
		require.NoError(t, err)
		require.Equal(t, winner, stored.Name, "stored data of %s belongs to the rejected create", id)
	}

	m, err := store.ProductManifest(ctx)
	require.NoError(t, err)
	assert.Len(t, m.Products, 50)
	assert.Len(t, rec.actions, 50)
}
