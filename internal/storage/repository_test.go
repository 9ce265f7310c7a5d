package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"paycheck/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "paycheck.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleBudget() *core.Budget {
	b := core.NewBudget()
	first := b.Account(core.FirstPeriod)
	first.SetSalary(decimal.RequireFromString("10000"))
	first.Bills.Append("Rent", decimal.RequireFromString("5000"))
	first.Bills.Append("Internet", decimal.RequireFromString("1499.50"))
	second := b.Account(core.SecondPeriod)
	second.SetSalary(decimal.RequireFromString("-250"))
	b.Goal.SetTarget("Emergency fund", decimal.RequireFromString("20000"))
	b.Contribute(core.Contributions{core.FirstPeriod: decimal.RequireFromString("1000")})
	return b
}

func TestSQLiteRepository_LoadEmptyReturnsDefaults(t *testing.T) {
	repo := newTestRepo(t)

	b, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	report := core.BuildReport(b)
	if !report.TotalFlex.IsZero() || report.Goal.Active {
		t.Errorf("expected default state, got %+v", report)
	}
}

func TestSQLiteRepository_SaveLoadPreservesState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	want := sampleBudget()

	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	wantReport := core.BuildReport(want)
	gotReport := core.BuildReport(got)

	for _, p := range core.Periods {
		w, _ := wantReport.Account(p)
		g, _ := gotReport.Account(p)
		if !w.Salary.Equal(g.Salary) || !w.ManualContrib.Equal(g.ManualContrib) || !w.FlexMoney.Equal(g.FlexMoney) {
			t.Errorf("%s: got %+v, want %+v", p, g, w)
		}
		if len(w.Bills) != len(g.Bills) {
			t.Fatalf("%s: got %d bills, want %d", p, len(g.Bills), len(w.Bills))
		}
		for i := range w.Bills {
			if w.Bills[i].Name != g.Bills[i].Name || !w.Bills[i].Amount.Equal(g.Bills[i].Amount) {
				t.Errorf("%s bill %d: got %+v, want %+v", p, i, g.Bills[i], w.Bills[i])
			}
		}
	}
	if gotReport.Goal.Name != "Emergency fund" || !gotReport.Goal.Covered.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("goal = %+v", gotReport.Goal)
	}
}

func TestSQLiteRepository_SaveReplacesSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, sampleBudget()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, core.NewBudget()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if n := got.Account(core.FirstPeriod).Bills.Len(); n != 0 {
		t.Errorf("expected bills to be replaced, got %d", n)
	}
	if got.Goal.Active() {
		t.Errorf("expected goal to be cleared")
	}
}

func TestSQLiteRepository_CorruptAmountReadsAsZero(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, sampleBudget()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := repo.db.ExecContext(ctx, `UPDATE accounts SET salary = 'garbage' WHERE period = '15th'`); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Account(core.FirstPeriod).Salary.IsZero() {
		t.Errorf("salary = %s, want 0", got.Account(core.FirstPeriod).Salary)
	}
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paycheck.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	if err := repo.Save(ctx, sampleBudget()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	repo.Close()

	reopened, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Account(core.FirstPeriod).Bills.Len() != 2 {
		t.Errorf("bills not persisted across reopen")
	}
}

func TestSQLiteRepository_GarbageFileStartsFromDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paycheck.db")
	garbage := []byte(strings.Repeat("this is not a sqlite database\n", 200))
	if err := os.WriteFile(path, garbage, 0644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	defer repo.Close()

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	report := core.BuildReport(got)
	want := core.BuildReport(core.NewBudget())
	if !report.TotalFlex.Equal(want.TotalFlex) || report.Goal.Active || len(report.Accounts) != len(want.Accounts) {
		t.Errorf("expected default state, got %+v", report)
	}

	moved, err := filepath.Glob(path + ".corrupt-*")
	if err != nil || len(moved) != 1 {
		t.Fatalf("corrupt file not kept aside: %v (%v)", moved, err)
	}
	kept, err := os.ReadFile(moved[0])
	if err != nil || string(kept) != string(garbage) {
		t.Errorf("corrupt file contents changed")
	}

	if err := repo.Save(context.Background(), sampleBudget()); err != nil {
		t.Errorf("Save() after recovery error = %v", err)
	}
}

func TestIsCorruptDatabase(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not a database", errors.New("run migrations: file is not a database (26)"), true},
		{"malformed", errors.New("database disk image is malformed (11)"), true},
		{"permission", errors.New("unable to open database file: permission denied"), false},
		{"locked", errors.New("database is locked (5)"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCorruptDatabase(tt.err); got != tt.want {
				t.Errorf("isCorruptDatabase(%q) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMemoryStore_IsolatesSnapshots(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	b := sampleBudget()
	if err := store.Save(ctx, b); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	b.Account(core.FirstPeriod).Bills.Append("Later", decimal.RequireFromString("1"))

	got, _ := store.Load(ctx)
	if got.Account(core.FirstPeriod).Bills.Len() != 2 {
		t.Errorf("store shares state with caller")
	}

	got.Account(core.FirstPeriod).Bills.RemoveAt(0)
	again, _ := store.Load(ctx)
	if again.Account(core.FirstPeriod).Bills.Len() != 2 {
		t.Errorf("loaded snapshot shares state with store")
	}
}
