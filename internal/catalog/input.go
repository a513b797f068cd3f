package catalog

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/launchmena/catalogd/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ProductInput is the product form as submitted by the admin panel.
// Features and Specifications hold one entry per line; Translations holds a
// JSON object keyed by locale.
type ProductInput struct {
	Name           string `json:"name" form:"name"`
	Category       string `json:"category" form:"category"`
	CategoryID     string `json:"categoryId" form:"categoryId"`
	Description    string `json:"description" form:"description"`
	Image          string `json:"image" form:"image"`
	ImageAlt       string `json:"imageAlt" form:"imageAlt"`
	Price          string `json:"price" form:"price"`
	OriginalPrice  string `json:"originalPrice" form:"originalPrice"`
	Features       string `json:"features" form:"features"`
	Specifications string `json:"specifications" form:"specifications"`
	Translations   string `json:"translations" form:"translations"`
}

// toProduct trims every field and converts the form into a product document.
// Values are stored raw; escaping is left to whoever renders them.
func (in ProductInput) toProduct(id string) (*domain.Product, error) {
	p := &domain.Product{
		ID:             strings.TrimSpace(id),
		Name:           strings.TrimSpace(in.Name),
		Category:       strings.TrimSpace(in.Category),
		CategoryID:     strings.TrimSpace(in.CategoryID),
		Description:    strings.TrimSpace(in.Description),
		Image:          strings.TrimSpace(in.Image),
		ImageAlt:       strings.TrimSpace(in.ImageAlt),
		Price:          strings.TrimSpace(in.Price),
		OriginalPrice:  strings.TrimSpace(in.OriginalPrice),
		Features:       splitLines(in.Features),
		Specifications: splitLines(in.Specifications),
	}
	translations, err := parseTranslations(in.Translations)
	if err != nil {
		return nil, err
	}
	p.Translations = translations
	return p, nil
}

// splitLines splits on newlines, trims each line and drops the empty ones.
func splitLines(s string) []string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func parseTranslations(s string) (map[string]domain.ProductTranslation, error) {
	out := map[string]domain.ProductTranslation{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, domain.NewValidationError("translations", "Translations must be a JSON object keyed by locale.")
	}
	if out == nil {
		out = map[string]domain.ProductTranslation{}
	}
	return out, nil
}

func validateProduct(p *domain.Product) error {
	switch {
	case p.ID == "":
		return domain.NewValidationError("product_id", "Product ID is required.")
	case p.Name == "":
		return domain.NewValidationError("name", "Product name is required.")
	case p.CategoryID == "":
		return domain.NewValidationError("categoryId", "Category is required.")
	case !domain.ValidID(p.ID):
		return domain.NewValidationError("product_id", "Product ID may only contain letters, digits, '-' and '_' (max 128).")
	}
	return nil
}
