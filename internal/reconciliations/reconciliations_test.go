package reconciliations_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/JaimeStill/labrecon/internal/engine"
	"github.com/JaimeStill/labrecon/internal/reconciliations"
	"github.com/JaimeStill/labrecon/internal/schema"
	"github.com/JaimeStill/labrecon/pkg/pagination"
	"github.com/JaimeStill/labrecon/pkg/query"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func row(patient, procedure, amount string) engine.RawRow {
	return engine.RawRow{Patient: patient, Procedure: procedure, Amount: engine.RawAmount(amount), UnitCount: 1}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type failingAliases struct{}

func (failingAliases) Snapshot(context.Context) (*engine.Snapshot, error) {
	return nil, errors.New("alias table offline")
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.TempDir()+"/results.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := schema.Up(context.Background(), db, "sqlite"); err != nil {
		t.Fatalf("schema.Up() error = %v", err)
	}
	return db
}

func newSystem(t *testing.T, aliases engine.AliasSource) reconciliations.System {
	t.Helper()
	store := reconciliations.NewStore(openDB(t), query.SQLite)
	return reconciliations.New(
		store,
		aliases,
		engine.DefaultThresholds(),
		discard(),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

// scenario is the canonical example: one matched procedure and one
// procedure billed by A only.
func scenario(name string) reconciliations.RunCommand {
	return reconciliations.RunCommand{
		Name: name,
		SourceA: []engine.RawRow{
			row("Ana Silva", "Glicose", "50.00"),
			row("Ana Silva", "Colesterol", "30.00"),
		},
		SourceB: []engine.RawRow{
			row("ANA SILVA", "GLICOSE", "50.00"),
		},
	}
}

func mustRun(t *testing.T, sys reconciliations.System, cmd reconciliations.RunCommand) *reconciliations.Reconciliation {
	t.Helper()
	rec, err := sys.Run(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return rec
}

func onlyRef(t *testing.T, rec *reconciliations.Reconciliation) string {
	t.Helper()
	divs := rec.Result.Divergences.All()
	if len(divs) != 1 {
		t.Fatalf("divergences = %d, want 1", len(divs))
	}
	return divs[0].Reference()
}

func TestRunStoresResult(t *testing.T) {
	sys := newSystem(t, nil)
	ctx := context.Background()

	rec := mustRun(t, sys, scenario("march"))

	if rec.ID == uuid.Nil || rec.Deduplicated {
		t.Fatalf("Run() = %+v, want a new record", rec)
	}
	if rec.Status != reconciliations.StatusCompleted || rec.Outcome != engine.StatusWarning {
		t.Errorf("status = %s, outcome = %s", rec.Status, rec.Outcome)
	}
	if !rec.TotalA.Equal(dec("80")) || !rec.TotalB.Equal(dec("50")) {
		t.Errorf("totals = %s / %s", rec.TotalA, rec.TotalB)
	}

	found, err := sys.Find(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if found.Name != "march" || found.ContentKey != rec.ContentKey {
		t.Errorf("Find() = %+v", found)
	}
	if found.CreatedAt.IsZero() || found.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}

	missing := found.Result.Divergences.MissingProcedures
	if len(missing) != 1 || missing[0].ProcedureKey != "COLESTEROL" || !missing[0].Amount.Equal(dec("30")) {
		t.Errorf("missing procedures = %+v", missing)
	}
	if !found.Result.Breakdown.Residual.IsZero() {
		t.Errorf("residual = %s, want 0", found.Result.Breakdown.Residual)
	}
}

func TestRunDefaultName(t *testing.T) {
	sys := newSystem(t, nil)

	rec := mustRun(t, sys, scenario(""))
	if rec.Name == "" {
		t.Error("Run() without a name should generate one")
	}
}

func TestRunDeduplicatesIdenticalInput(t *testing.T) {
	sys := newSystem(t, nil)
	ctx := context.Background()

	first := mustRun(t, sys, scenario("first"))

	// Row order and casing do not change the content.
	cmd := scenario("second")
	cmd.SourceA[0], cmd.SourceA[1] = cmd.SourceA[1], cmd.SourceA[0]
	cmd.SourceB[0].Patient = "ana silva"

	second := mustRun(t, sys, cmd)
	if !second.Deduplicated || second.ID != first.ID || second.Name != "first" {
		t.Errorf("second Run() = %+v, want the first record deduplicated", second)
	}
	if second.Result == nil {
		t.Error("deduplicated record should carry its result")
	}

	page, err := sys.List(ctx, pagination.PageRequest{}, reconciliations.Filters{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 1 {
		t.Errorf("List() total = %d, want 1", page.Total)
	}

	tolerance := dec("0.10")
	cmd.Thresholds = &reconciliations.ThresholdOverrides{AmountTolerance: &tolerance}
	third := mustRun(t, sys, cmd)
	if third.Deduplicated || third.ID == first.ID {
		t.Error("different thresholds should produce a new record")
	}
}

func TestRunInvalidThresholds(t *testing.T) {
	sys := newSystem(t, nil)

	negative := dec("-1")
	cmd := scenario("bad")
	cmd.Thresholds = &reconciliations.ThresholdOverrides{CriticalResidual: &negative}

	_, err := sys.Run(context.Background(), cmd)
	if !errors.Is(err, engine.ErrInvalidConfiguration) {
		t.Fatalf("Run() error = %v, want ErrInvalidConfiguration", err)
	}
	if got := reconciliations.MapHTTPStatus(err); got != 400 {
		t.Errorf("MapHTTPStatus() = %d, want 400", got)
	}

	page, err := sys.List(context.Background(), pagination.PageRequest{}, reconciliations.Filters{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 0 {
		t.Error("a rejected run must not be stored")
	}
}

func TestRunCancelled(t *testing.T) {
	sys := newSystem(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sys.Run(ctx, scenario("cancelled")); !errors.Is(err, engine.ErrCancelled) {
		t.Errorf("Run() error = %v, want ErrCancelled", err)
	}
}

func TestRunDegraded(t *testing.T) {
	sys := newSystem(t, failingAliases{})
	ctx := context.Background()

	rec := mustRun(t, sys, scenario("offline"))
	if !rec.Degraded || len(rec.Result.Warnings) == 0 {
		t.Errorf("Run() degraded = %v, warnings = %v", rec.Degraded, rec.Result.Warnings)
	}

	degraded := true
	page, err := sys.List(ctx, pagination.PageRequest{}, reconciliations.Filters{Degraded: &degraded})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 1 {
		t.Errorf("List(degraded) total = %d, want 1", page.Total)
	}
}

func TestResolve(t *testing.T) {
	sys := newSystem(t, nil)
	ctx := context.Background()

	rec := mustRun(t, sys, scenario("march"))
	ref := onlyRef(t, rec)

	resolved, err := sys.Resolve(ctx, rec.ID, ref, reconciliations.ResolveCommand{
		Notes:      "billed in April",
		ResolvedBy: "auditor",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	d, ok := resolved.Result.Divergences.Find(ref)
	if !ok {
		t.Fatalf("divergence %s missing after resolve", ref)
	}
	state := d.State()
	if !state.Resolved || state.Notes != "billed in April" || state.ResolvedBy != "auditor" || state.ResolvedAt == nil {
		t.Errorf("resolution = %+v", state)
	}
	if resolved.Result.Divergences.Unresolved() != 0 {
		t.Error("no divergence should remain unresolved")
	}

	tests := []struct {
		name string
		id   uuid.UUID
		ref  string
		want error
	}{
		{"already resolved", rec.ID, ref, reconciliations.ErrAlreadyResolved},
		{"unknown ref", rec.ID, "0000000000000000", reconciliations.ErrDivergenceNotFound},
		{"unknown reconciliation", uuid.New(), ref, reconciliations.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sys.Resolve(ctx, tt.id, tt.ref, reconciliations.ResolveCommand{Notes: "again"})
			if !errors.Is(err, tt.want) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.want)
			}
		})
	}

	again, err := sys.Find(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	d, _ = again.Result.Divergences.Find(ref)
	if d.State().Notes != "billed in April" {
		t.Errorf("first resolution was overwritten: %+v", d.State())
	}
}

func TestResolveConcurrent(t *testing.T) {
	sys := newSystem(t, nil)
	ctx := context.Background()

	rec := mustRun(t, sys, scenario("march"))
	ref := onlyRef(t, rec)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		other     []error
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sys.Resolve(ctx, rec.ID, ref, reconciliations.ResolveCommand{ResolvedBy: string(rune('a' + i))})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case !errors.Is(err, reconciliations.ErrAlreadyResolved):
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || len(other) != 0 {
		t.Errorf("succeeded = %d, unexpected errors = %v", succeeded, other)
	}
}

func TestArchive(t *testing.T) {
	sys := newSystem(t, nil)
	ctx := context.Background()

	rec := mustRun(t, sys, scenario("march"))
	ref := onlyRef(t, rec)

	archived, err := sys.Archive(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if archived.Status != reconciliations.StatusArchived {
		t.Errorf("status = %s, want archived", archived.Status)
	}

	if _, err := sys.Archive(ctx, rec.ID); !errors.Is(err, reconciliations.ErrArchived) {
		t.Errorf("second Archive() error = %v, want ErrArchived", err)
	}
	if _, err := sys.Archive(ctx, uuid.New()); !errors.Is(err, reconciliations.ErrNotFound) {
		t.Errorf("Archive(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := sys.Resolve(ctx, rec.ID, ref, reconciliations.ResolveCommand{}); !errors.Is(err, reconciliations.ErrArchived) {
		t.Errorf("Resolve(archived) error = %v, want ErrArchived", err)
	}

	active, err := sys.List(ctx, pagination.PageRequest{}, reconciliations.Filters{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if active.Total != 0 {
		t.Errorf("List() total = %d, archived records should be hidden", active.Total)
	}

	status := reconciliations.StatusArchived
	hidden, err := sys.List(ctx, pagination.PageRequest{}, reconciliations.Filters{Status: &status})
	if err != nil {
		t.Fatalf("List(archived) error = %v", err)
	}
	if hidden.Total != 1 || hidden.Data[0].ID != rec.ID {
		t.Errorf("List(archived) = %+v", hidden)
	}

	rerun := mustRun(t, sys, scenario("march again"))
	if rerun.Deduplicated || rerun.ID == rec.ID {
		t.Error("identical input after archiving should create a new record")
	}
}

func TestListSearchAndSort(t *testing.T) {
	sys := newSystem(t, nil)
	ctx := context.Background()

	mustRun(t, sys, scenario("january"))

	feb := scenario("february")
	feb.SourceB = append(feb.SourceB, row("Bruno Costa", "TSH", "45.00"))
	mustRun(t, sys, feb)

	search := "FEB"
	found, err := sys.List(ctx, pagination.PageRequest{Search: &search}, reconciliations.Filters{})
	if err != nil {
		t.Fatalf("List(search) error = %v", err)
	}
	if found.Total != 1 || found.Data[0].Name != "february" {
		t.Errorf("List(search) = %+v", found)
	}
	if found.Data[0].Result != nil {
		t.Error("list pages should not carry the result document")
	}

	sorted, err := sys.List(ctx, pagination.PageRequest{Sort: query.ParseSortFields("Name")}, reconciliations.Filters{})
	if err != nil {
		t.Fatalf("List(sort) error = %v", err)
	}
	if sorted.Total != 2 || sorted.Data[0].Name != "february" || sorted.Data[1].Name != "january" {
		t.Errorf("List(sort) = %+v", sorted.Data)
	}
}
