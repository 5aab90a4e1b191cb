package aliases

import (
	"net/url"

	"github.com/JaimeStill/labrecon/internal/engine"
	"github.com/JaimeStill/labrecon/pkg/query"
	"github.com/JaimeStill/labrecon/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "procedure_aliases", "pa").
	Project("alias", "Alias").
	Project("canonical", "Canonical").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "Alias"}

// Filters contains optional filtering criteria for alias queries.
type Filters struct {
	Canonical *string `json:"canonical,omitempty"`
}

// Apply adds filter conditions to a query builder. Canonical is folded so
// raw spellings match stored keys.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var canonical *string
	if f.Canonical != nil {
		folded := engine.Fold(*f.Canonical)
		canonical = &folded
	}
	return b.WhereEquals("Canonical", canonical)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if c := values.Get("canonical"); c != "" {
		f.Canonical = &c
	}
	return f
}

func scanAlias(s repository.Scanner) (Alias, error) {
	var a Alias
	err := s.Scan(&a.Alias, &a.Canonical, &a.UpdatedAt)
	return a, err
}
