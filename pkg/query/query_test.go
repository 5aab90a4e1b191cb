package query_test

import (
	"testing"

	"github.com/JaimeStill/labrecon/pkg/query"
)

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "reconciliations", "r").
		Project("id", "ID").
		Project("name", "Name").
		Project("outcome", "Outcome").
		Project("created_at", "CreatedAt")
}

const selectAll = "SELECT r.id, r.name, r.outcome, r.created_at FROM public.reconciliations r"

func ptr(s string) *string { return &s }

func TestProjectionMap(t *testing.T) {
	p := testProjection()

	if got := p.Table(); got != "public.reconciliations r" {
		t.Errorf("Table() = %q, want %q", got, "public.reconciliations r")
	}
	if got := p.Name(); got != "public.reconciliations" {
		t.Errorf("Name() = %q, want %q", got, "public.reconciliations")
	}
	if got := p.Columns(); got != "r.id, r.name, r.outcome, r.created_at" {
		t.Errorf("Columns() = %q", got)
	}
}

func TestProjectionMapWithSchema(t *testing.T) {
	p := testProjection()
	sqlite := p.WithSchema("main")

	if got := sqlite.Table(); got != "main.reconciliations r" {
		t.Errorf("WithSchema Table() = %q, want %q", got, "main.reconciliations r")
	}
	if got := p.Table(); got != "public.reconciliations r" {
		t.Errorf("original Table() = %q, want it unchanged", got)
	}
	if got := sqlite.Column("Outcome"); got != "r.outcome" {
		t.Errorf("WithSchema Column(Outcome) = %q, want r.outcome", got)
	}
}

func TestProjectionMapColumnLookup(t *testing.T) {
	p := testProjection()

	tests := []struct {
		name     string
		viewName string
		want     string
	}{
		{"mapped field", "Name", "r.name"},
		{"mapped camel", "CreatedAt", "r.created_at"},
		{"unmapped passthrough", "unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Column(tt.viewName); got != tt.want {
				t.Errorf("Column(%q) = %q, want %q", tt.viewName, got, tt.want)
			}
		})
	}

	if _, ok := p.Lookup("unknown"); ok {
		t.Error("Lookup(unknown) should report an unmapped field")
	}
	if col, ok := p.Lookup("Name"); !ok || col != "r.name" {
		t.Errorf("Lookup(Name) = %q, %v", col, ok)
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{"empty string", "", nil},
		{"single ascending", "Name", []query.SortField{{Field: "Name"}}},
		{"single descending", "-CreatedAt", []query.SortField{{Field: "CreatedAt", Descending: true}}},
		{
			"mixed with spaces and empty parts",
			" Name ,, -CreatedAt ",
			[]query.SortField{{Field: "Name"}, {Field: "CreatedAt", Descending: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Errorf("ParseSortFields(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSortFields(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseSortFields(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuilderPostgres(t *testing.T) {
	tests := []struct {
		name     string
		build    func(b *query.Builder) (string, []any)
		wantSQL  string
		wantArgs int
	}{
		{
			name:    "no conditions",
			build:   func(b *query.Builder) (string, []any) { return b.Build() },
			wantSQL: selectAll,
		},
		{
			name:    "count",
			build:   func(b *query.Builder) (string, []any) { return b.BuildCount() },
			wantSQL: "SELECT COUNT(*) FROM public.reconciliations r",
		},
		{
			name: "single",
			build: func(b *query.Builder) (string, []any) {
				return b.BuildSingle("ID", "abc")
			},
			wantSQL:  selectAll + " WHERE r.id = $1",
			wantArgs: 1,
		},
		{
			name: "equals skips nil",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereEquals("Outcome", nil).WhereEquals("Name", "march").Build()
			},
			wantSQL:  selectAll + " WHERE r.name = $1",
			wantArgs: 1,
		},
		{
			name: "equals skips typed nil pointer",
			build: func(b *query.Builder) (string, []any) {
				var outcome *string
				return b.WhereEquals("Outcome", outcome).Build()
			},
			wantSQL: selectAll,
		},
		{
			name: "search skips empty",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereSearch(ptr(""), "Name").Build()
			},
			wantSQL: selectAll,
		},
		{
			name: "search and equals numbered in order",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereEquals("Outcome", "CRITICAL").WhereSearch(ptr("x"), "Name", "Outcome").Build()
			},
			wantSQL:  selectAll + " WHERE r.outcome = $1 AND (r.name ILIKE $2 OR r.outcome ILIKE $3)",
			wantArgs: 3,
		},
		{
			name: "page with default sort",
			build: func(b *query.Builder) (string, []any) {
				return b.BuildPage(3, 25)
			},
			wantSQL: selectAll + " ORDER BY r.created_at DESC LIMIT 25 OFFSET 50",
		},
		{
			name: "single or null applies conditions",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereEquals("Name", "march").BuildSingleOrNull()
			},
			wantSQL:  selectAll + " WHERE r.name = $1 LIMIT 1",
			wantArgs: 1,
		},
		{
			name: "unmapped sort fields are dropped",
			build: func(b *query.Builder) (string, []any) {
				return b.OrderByFields([]query.SortField{{Field: "name; DROP TABLE x"}, {Field: "Outcome", Descending: true}}).Build()
			},
			wantSQL: selectAll + " ORDER BY r.outcome DESC",
		},
		{
			name: "explicit sort overrides default",
			build: func(b *query.Builder) (string, []any) {
				return b.OrderByFields([]query.SortField{{Field: "Name"}}).Build()
			},
			wantSQL: selectAll + " ORDER BY r.name ASC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := query.NewBuilder(testProjection())
			if tt.name == "page with default sort" {
				b = query.NewBuilder(testProjection(), query.SortField{Field: "CreatedAt", Descending: true})
			}
			sql, args := tt.build(b)
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args = %v, want %d args", args, tt.wantArgs)
			}
		})
	}
}

func TestBuilderSQLite(t *testing.T) {
	p := testProjection().WithSchema(query.SQLite.Schema)

	t.Run("numbered question placeholders and LIKE", func(t *testing.T) {
		b := query.NewBuilder(p).Dialect(query.SQLite)
		b.WhereEquals("Outcome", "OK").WhereSearch(ptr("abr"), "Name")
		sql, args := b.BuildCount()

		want := "SELECT COUNT(*) FROM main.reconciliations r WHERE r.outcome = ?1 AND (r.name LIKE ?2)"
		if sql != want {
			t.Errorf("sql = %q, want %q", sql, want)
		}
		if len(args) != 2 || args[1] != "%abr%" {
			t.Errorf("args = %v, want [OK %%abr%%]", args)
		}
	})

	t.Run("single", func(t *testing.T) {
		sql, _ := query.NewBuilder(p).Dialect(query.SQLite).BuildSingle("ID", "x")

		want := "SELECT r.id, r.name, r.outcome, r.created_at FROM main.reconciliations r WHERE r.id = ?1"
		if sql != want {
			t.Errorf("sql = %q, want %q", sql, want)
		}
	})
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{"postgres", "postgres"},
		{"sqlite", "sqlite"},
		{"", "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			if got := query.DialectFor(tt.driver).Name; got != tt.want {
				t.Errorf("DialectFor(%q).Name = %q, want %q", tt.driver, got, tt.want)
			}
		})
	}

	if got := (query.Dialect{}).Placeholder(2); got != "$2" {
		t.Errorf("zero Dialect Placeholder(2) = %q, want $2", got)
	}
}
