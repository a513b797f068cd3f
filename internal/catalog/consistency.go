package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/launchmena/catalogd/internal/domain"
)

// ConsistencyReport lists the places where the product manifest and the
// product directories disagree. Nothing is repaired.
type ConsistencyReport struct {
	CheckedAt   time.Time                     `json:"checkedAt"`
	Listed      int                           `json:"listed"`
	OnDisk      int                           `json:"onDisk"`
	MissingData []*domain.OrphanedRecordError `json:"missingData"`
	Unlisted    []*domain.OrphanedRecordError `json:"unlisted"`
}

// OK reports whether no orphaned records were found.
func (r *ConsistencyReport) OK() bool {
	return len(r.MissingData) == 0 && len(r.Unlisted) == 0
}

// Findings returns all findings, missing data first.
func (r *ConsistencyReport) Findings() []error {
	out := make([]error, 0, len(r.MissingData)+len(r.Unlisted))
	for _, e := range r.MissingData {
		out = append(out, e)
	}
	for _, e := range r.Unlisted {
		out = append(out, e)
	}
	return out
}

// IDs returns the ids of a set of findings.
func IDs(findings []*domain.OrphanedRecordError) []string {
	ids := make([]string, 0, len(findings))
	for _, f := range findings {
		ids = append(ids, f.ID)
	}
	return ids
}

// CheckConsistency cross-checks the product manifest against products/.
func (s *Service) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	m, err := s.store.ProductManifest(ctx)
	if err != nil {
		return nil, err
	}
	dirs, err := s.store.ProductDirs(ctx)
	if err != nil {
		return nil, err
	}

	report := &ConsistencyReport{
		CheckedAt:   time.Now(),
		Listed:      len(m.Products),
		OnDisk:      len(dirs),
		MissingData: []*domain.OrphanedRecordError{},
		Unlisted:    []*domain.OrphanedRecordError{},
	}

	listed := make(map[string]struct{}, len(m.Products))
	for _, id := range m.Products {
		listed[id] = struct{}{}
		exists, err := s.store.ProductExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			report.MissingData = append(report.MissingData, &domain.OrphanedRecordError{
				ID: id, Reason: "listed in manifest but has no data file",
			})
		}
	}
	for _, id := range dirs {
		if _, ok := listed[id]; !ok {
			report.Unlisted = append(report.Unlisted, &domain.OrphanedRecordError{
				ID: id, Reason: "directory exists but is not listed in manifest",
			})
		}
	}
	sort.Slice(report.MissingData, func(i, j int) bool { return report.MissingData[i].ID < report.MissingData[j].ID })
	return report, nil
}
