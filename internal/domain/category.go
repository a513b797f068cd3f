package domain

// Category is the document stored in categories/<id>/data.json
type Category struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Featured    bool     `json:"featured,omitempty"`
	Products    []string `json:"products,omitempty"`
}

// CategoryManifest is categories/manifest.json
type CategoryManifest struct {
	Categories []string `json:"categories"`
}

// CategoryOption is the slim view used by the admin product form.
type CategoryOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
