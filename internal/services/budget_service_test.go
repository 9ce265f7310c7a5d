package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"paycheck/internal/core"
	applog "paycheck/internal/log"
	"paycheck/internal/metrics"
	"paycheck/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type failingStore struct {
	loadErr error
	saveErr error
	saves   int
}

func (f *failingStore) Load(context.Context) (*core.Budget, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return core.NewBudget(), nil
}

func (f *failingStore) Save(context.Context, *core.Budget) error {
	f.saves++
	return f.saveErr
}

type recordingNotifier struct {
	mu    sync.Mutex
	ops   []string
	err   error
	calls int
}

func (n *recordingNotifier) NotifyChange(_ context.Context, operation, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.ops = append(n.ops, operation)
	return n.err
}

// blockingNotifier holds every notification until release is closed.
type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
}

func (n *blockingNotifier) NotifyChange(ctx context.Context, _, _ string) error {
	n.entered <- struct{}{}
	select {
	case <-n.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: &bytes.Buffer{}, Format: applog.FormatText})
}

func newService(t *testing.T, store Store, opts ...Option) *BudgetService {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewBudgetService(context.Background(), store, opts...)
}

func TestBudgetService_MutationsPersist(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := newService(t, store)

	if err := svc.SetSalary(ctx, core.FirstPeriod, d("10000")); err != nil {
		t.Fatalf("SetSalary() error = %v", err)
	}
	if err := svc.AddBill(ctx, core.FirstPeriod, "Rent", d("2000")); err != nil {
		t.Fatalf("AddBill() error = %v", err)
	}
	svc.SetGoal(ctx, "  Laptop ", d("50000"))

	reloaded := newService(t, store)
	report := reloaded.Report()
	first, _ := report.Account(core.FirstPeriod)

	if !first.Salary.Equal(d("10000")) || !first.TotalBills.Equal(d("2000")) {
		t.Errorf("state not persisted: %+v", first)
	}
	if !first.FlexMoney.Equal(d("6000")) {
		t.Errorf("FlexMoney = %s, want 6000", first.FlexMoney)
	}
	if report.Goal.Name != "Laptop" {
		t.Errorf("goal name = %q, want trimmed", report.Goal.Name)
	}
}

func TestBudgetService_ContributionCapping(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.NewMemoryStore())

	svc.SetSalary(ctx, core.FirstPeriod, d("10000"))
	svc.AddBill(ctx, core.FirstPeriod, "Rent", d("2000"))
	svc.SetGoal(ctx, "Trip", d("20000"))

	applied := svc.Contribute(ctx, core.Contributions{core.FirstPeriod: d("10000")})
	if !applied[core.FirstPeriod].Equal(d("6000")) {
		t.Fatalf("first contribution = %s, want 6000", applied[core.FirstPeriod])
	}
	if !applied[core.SecondPeriod].IsZero() {
		t.Errorf("second period applied = %s, want 0", applied[core.SecondPeriod])
	}

	again := svc.Contribute(ctx, core.Contributions{core.FirstPeriod: d("10000")})
	if !again[core.FirstPeriod].IsZero() {
		t.Errorf("second contribution = %s, want 0", again[core.FirstPeriod])
	}

	report := svc.Report()
	first, _ := report.Account(core.FirstPeriod)
	if !first.Salary.Equal(d("10000")) {
		t.Errorf("salary changed by contribution: %s", first.Salary)
	}
	if !report.Goal.Covered.Equal(d("6000")) || !report.Goal.Remaining.Equal(d("14000")) {
		t.Errorf("goal = %+v", report.Goal)
	}
}

func TestBudgetService_UnknownPeriodIgnored(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	notifier := &recordingNotifier{}
	svc := newService(t, store, WithNotifier(notifier))

	err := svc.SetSalary(ctx, core.Period("31st"), d("100"))
	if !errors.Is(err, core.ErrUnknownPeriod) {
		t.Fatalf("SetSalary() error = %v, want ErrUnknownPeriod", err)
	}
	if _, err := svc.DeleteBill(ctx, core.Period(""), 0); !errors.Is(err, core.ErrUnknownPeriod) {
		t.Fatalf("DeleteBill() error = %v, want ErrUnknownPeriod", err)
	}
	if store.saves != 0 || notifier.calls != 0 {
		t.Errorf("ignored operations should not save or notify (saves=%d, notifies=%d)", store.saves, notifier.calls)
	}
}

func TestBudgetService_DeleteBillOutOfRange(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	svc := newService(t, store)

	svc.AddBill(ctx, core.SecondPeriod, "Water", d("300"))
	saves := store.saves

	removed, err := svc.DeleteBill(ctx, core.SecondPeriod, 5)
	if err != nil || removed {
		t.Fatalf("DeleteBill() = %v, %v; want false, nil", removed, err)
	}
	if store.saves != saves {
		t.Errorf("no-op delete should not save")
	}

	removed, _ = svc.DeleteBill(ctx, core.SecondPeriod, 0)
	if !removed {
		t.Fatal("expected bill to be removed")
	}
	removed, _ = svc.DeleteBill(ctx, core.SecondPeriod, 0)
	if removed {
		t.Error("repeated delete should be a no-op")
	}
}

func TestBudgetService_SaveFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	store := &failingStore{saveErr: errors.New("disk full")}
	svc := newService(t, store, WithMetrics(m))

	if err := svc.SetSalary(ctx, core.SecondPeriod, d("5000")); err != nil {
		t.Fatalf("SetSalary() error = %v", err)
	}

	second, _ := svc.Report().Account(core.SecondPeriod)
	if !second.Salary.Equal(d("5000")) {
		t.Errorf("mutation lost after save failure: %s", second.Salary)
	}
	expected := `
# HELP paycheck_persist_failures_total Snapshot saves that failed.
# TYPE paycheck_persist_failures_total counter
paycheck_persist_failures_total 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "paycheck_persist_failures_total"); err != nil {
		t.Errorf("persist failure not counted: %v", err)
	}
}

func TestBudgetService_LoadFailureStartsFromDefaults(t *testing.T) {
	svc := newService(t, &failingStore{loadErr: errors.New("corrupt")})

	report := svc.Report()
	if !report.TotalFlex.IsZero() || report.Goal.Active {
		t.Errorf("expected default state, got %+v", report)
	}
}

func TestBudgetService_NotifiesEveryMutation(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{err: errors.New("broker down")}
	svc := newService(t, storage.NewMemoryStore(), WithNotifier(notifier))

	svc.SetSalary(ctx, core.FirstPeriod, d("1000"))
	svc.AddBill(ctx, core.FirstPeriod, "Phone", d("100"))
	svc.DeleteBill(ctx, core.FirstPeriod, 0)
	svc.SetGoal(ctx, "Bike", d("500"))
	svc.Contribute(ctx, core.Contributions{core.FirstPeriod: d("100")})
	svc.DeleteGoal(ctx)

	want := []string{
		applog.OpSetSalary, applog.OpAddBill, applog.OpDeleteBill,
		applog.OpSetGoal, applog.OpContribute, applog.OpDeleteGoal,
	}
	if len(notifier.ops) != len(want) {
		t.Fatalf("notifications = %v, want %v", notifier.ops, want)
	}
	for i := range want {
		if notifier.ops[i] != want[i] {
			t.Errorf("notification %d = %s, want %s", i, notifier.ops[i], want[i])
		}
	}
}

func TestBudgetService_Apply(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	notifier := &recordingNotifier{}
	svc := newService(t, store, WithNotifier(notifier))

	salary := d("20000")
	applied := svc.Apply(ctx, Update{
		Period: core.FirstPeriod,
		Salary: &salary,
		Bill:   &BillInput{Name: "Rent", Amount: d("4000")},
		Goal:   &GoalInput{Name: "Car", Amount: d("100000")},
		Contributions: core.Contributions{
			core.FirstPeriod:  d("1000"),
			core.SecondPeriod: d("1000"),
		},
	})

	if !applied[core.FirstPeriod].Equal(d("1000")) {
		t.Errorf("first applied = %s, want 1000", applied[core.FirstPeriod])
	}
	if !applied[core.SecondPeriod].IsZero() {
		t.Errorf("second applied = %s, want 0 (no salary)", applied[core.SecondPeriod])
	}
	if store.saves != 1 || notifier.calls != 1 {
		t.Errorf("Apply should save and notify once (saves=%d, notifies=%d)", store.saves, notifier.calls)
	}

	report := svc.Report()
	first, _ := report.Account(core.FirstPeriod)
	// 20000 - 4000 - 4000 - 1000
	if !first.FlexMoney.Equal(d("11000")) {
		t.Errorf("FlexMoney = %s, want 11000", first.FlexMoney)
	}
	if report.Goal.Name != "Car" || !report.Goal.Covered.Equal(d("1000")) {
		t.Errorf("goal = %+v", report.Goal)
	}
}

func TestBudgetService_ApplyUnknownPeriodStillUpdatesGoal(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.NewMemoryStore())

	salary := d("999")
	svc.Apply(ctx, Update{
		Period: core.Period("bogus"),
		Salary: &salary,
		Goal:   &GoalInput{Name: "Fund", Amount: d("10")},
	})

	report := svc.Report()
	if !report.TotalFuture.IsZero() {
		t.Errorf("salary for unknown cutoff should be ignored")
	}
	if report.Goal.Name != "Fund" {
		t.Errorf("goal part should still apply, got %+v", report.Goal)
	}
}

func TestBudgetService_ApplyEmptyDoesNothing(t *testing.T) {
	store := &failingStore{}
	svc := newService(t, store)

	if got := svc.Apply(context.Background(), Update{Period: core.FirstPeriod}); got != nil {
		t.Errorf("Apply(empty) = %v, want nil", got)
	}
	if store.saves != 0 {
		t.Errorf("empty update should not save")
	}
}

func TestBudgetService_ApplyUnknownPeriodOnlyIsDropped(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	notifier := &recordingNotifier{}
	svc := newService(t, store, WithNotifier(notifier))

	salary := d("999")
	got := svc.Apply(ctx, Update{
		Period: core.Period("31st"),
		Salary: &salary,
		Bill:   &BillInput{Name: "Rent", Amount: d("100")},
	})
	if got != nil {
		t.Errorf("Apply() = %v, want nil", got)
	}
	if store.saves != 0 || notifier.calls != 0 {
		t.Errorf("dropped update should not save or notify (saves=%d, notifies=%d)", store.saves, notifier.calls)
	}
}

func TestBudgetService_SlowNotifierDoesNotBlockReads(t *testing.T) {
	ctx := context.Background()
	notifier := &blockingNotifier{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	svc := newService(t, storage.NewMemoryStore(), WithNotifier(notifier))

	done := make(chan error, 1)
	go func() {
		done <- svc.SetSalary(ctx, core.FirstPeriod, d("10000"))
	}()

	select {
	case <-notifier.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("notification never sent")
	}

	reported := make(chan core.Report, 1)
	go func() { reported <- svc.Report() }()

	select {
	case r := <-reported:
		first, _ := r.Account(core.FirstPeriod)
		if !first.Salary.Equal(d("10000")) {
			t.Errorf("Salary = %s, want 10000 while notification is pending", first.Salary)
		}
	case <-time.After(500 * time.Millisecond):
		t.Error("Report() blocked behind a pending notification")
	}

	close(notifier.release)
	if err := <-done; err != nil {
		t.Errorf("SetSalary() error = %v", err)
	}
}

func TestBudgetService_DeleteGoalIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.NewMemoryStore())

	svc.SetSalary(ctx, core.FirstPeriod, d("1500"))
	svc.SetSalary(ctx, core.SecondPeriod, d("1500"))
	svc.SetGoal(ctx, "Phone", d("5000"))
	svc.Contribute(ctx, core.Contributions{core.FirstPeriod: d("1000"), core.SecondPeriod: d("1000")})

	svc.DeleteGoal(ctx)
	first := svc.Report()
	svc.DeleteGoal(ctx)
	second := svc.Report()

	if first.Goal.Active || !first.Goal.Covered.IsZero() {
		t.Errorf("goal not reset: %+v", first.Goal)
	}
	if !first.TotalFlex.Equal(second.TotalFlex) || !first.TotalFlex.Equal(d("2400")) {
		t.Errorf("TotalFlex = %s then %s, want 2400", first.TotalFlex, second.TotalFlex)
	}
}

func TestBudgetService_Reload(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := newService(t, store)

	other := newService(t, store)
	other.SetSalary(ctx, core.FirstPeriod, d("7000"))

	if err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	first, _ := svc.Report().Account(core.FirstPeriod)
	if !first.Salary.Equal(d("7000")) {
		t.Errorf("Reload did not pick up stored state: %s", first.Salary)
	}
}

func TestBudgetService_ConcurrentContributionsNeverExceedFlex(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.NewMemoryStore())
	svc.SetSalary(ctx, core.FirstPeriod, d("10000"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Contribute(ctx, core.Contributions{core.FirstPeriod: d("1000")})
		}()
	}
	wg.Wait()

	first, _ := svc.Report().Account(core.FirstPeriod)
	if !first.ManualContrib.Equal(d("8000")) || !first.FlexMoney.IsZero() {
		t.Errorf("ManualContrib = %s, FlexMoney = %s; want 8000, 0", first.ManualContrib, first.FlexMoney)
	}
}
