package reconciliations

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/JaimeStill/labrecon/internal/engine"
	"github.com/JaimeStill/labrecon/pkg/query"
	"github.com/JaimeStill/labrecon/pkg/repository"
)

// newProjection maps the reconciliations table. The detail projection adds
// the result document, which list pages never read.
func newProjection(schema string, detail bool) *query.ProjectionMap {
	p := query.
		NewProjectionMap(schema, "reconciliations", "r").
		Project("id", "ID").
		Project("name", "Name").
		Project("content_key", "ContentKey").
		Project("status", "Status").
		Project("outcome", "Outcome").
		Project("total_a", "TotalA").
		Project("total_b", "TotalB").
		Project("degraded", "Degraded").
		Project("created_at", "CreatedAt").
		Project("updated_at", "UpdatedAt")
	if detail {
		p.Project("result", "Result")
	}
	return p
}

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for reconciliation queries.
// Archived records are excluded unless Status asks for them.
type Filters struct {
	Status   *Status        `json:"status,omitempty"`
	Outcome  *engine.Status `json:"outcome,omitempty"`
	Degraded *bool          `json:"degraded,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	status := StatusCompleted
	if f.Status != nil {
		status = *f.Status
	}
	return b.
		WhereEquals("Status", string(status)).
		WhereEquals("Outcome", outcomeValue(f.Outcome)).
		WhereEquals("Degraded", f.Degraded)
}

func outcomeValue(o *engine.Status) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		status := Status(s)
		f.Status = &status
	}

	if o := values.Get("outcome"); o != "" {
		outcome := engine.Status(o)
		f.Outcome = &outcome
	}

	if d := values.Get("degraded"); d != "" {
		if v, err := strconv.ParseBool(d); err == nil {
			f.Degraded = &v
		}
	}

	return f
}

func scanFields(c *Reconciliation) []any {
	return []any{
		&c.ID,
		&c.Name,
		&c.ContentKey,
		&c.Status,
		&c.Outcome,
		&c.TotalA,
		&c.TotalB,
		&c.Degraded,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}

func scanReconciliation(s repository.Scanner) (Reconciliation, error) {
	var c Reconciliation
	err := s.Scan(scanFields(&c)...)
	return c, err
}

func scanDetail(s repository.Scanner) (Reconciliation, error) {
	var c Reconciliation
	var raw []byte

	if err := s.Scan(append(scanFields(&c), &raw)...); err != nil {
		return c, err
	}

	var result engine.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return c, fmt.Errorf("unmarshal result: %w", err)
	}
	c.Result = &result
	return c, nil
}

type resolution struct {
	Ref string
	engine.Resolution
}

func scanResolution(s repository.Scanner) (resolution, error) {
	var r resolution
	var at time.Time
	if err := s.Scan(&r.Ref, &r.Notes, &r.ResolvedBy, &at); err != nil {
		return r, err
	}
	r.Resolved = true
	r.ResolvedAt = &at
	return r, nil
}
