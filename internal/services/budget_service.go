package services

import (
	"context"
	"fmt"
	"sync"

	"paycheck/internal/core"
	applog "paycheck/internal/log"
	"paycheck/internal/metrics"

	"github.com/shopspring/decimal"
)

// Store persists complete budget snapshots.
type Store interface {
	Load(ctx context.Context) (*core.Budget, error)
	Save(ctx context.Context, b *core.Budget) error
}

// Notifier announces that the budget changed. Implementations must not
// block for long; failures are logged and dropped.
type Notifier interface {
	NotifyChange(ctx context.Context, operation, period string) error
}

// BillInput is a bill to append as part of an Update.
type BillInput struct {
	Name   string
	Amount decimal.Decimal
}

// GoalInput replaces the savings goal target as part of an Update.
type GoalInput struct {
	Name   string
	Amount decimal.Decimal
}

// Update is one combined form submission. Nil or empty parts are skipped.
// Parts are applied in field order: salary, bill, goal, contributions.
type Update struct {
	Period        core.Period
	Salary        *decimal.Decimal
	Bill          *BillInput
	Goal          *GoalInput
	Contributions core.Contributions
}

// Empty reports whether the update would change nothing.
func (u Update) Empty() bool {
	return u.Salary == nil && u.Bill == nil && u.Goal == nil && u.Contributions == nil
}

// BudgetService owns the budget state. All mutations are serialized by one
// mutex; each is followed by a best effort save under the lock and a change
// notification once the lock is released.
type BudgetService struct {
	mu     sync.Mutex
	budget *core.Budget

	store    Store
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *applog.Logger
}

type Option func(*BudgetService)

func WithNotifier(n Notifier) Option {
	return func(s *BudgetService) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *BudgetService) { s.metrics = m }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *BudgetService) { s.logger = l.WithComponent(applog.ComponentBudget) }
}

// NewBudgetService loads the stored state. A missing store or a failed load
// starts from the default budget.
func NewBudgetService(ctx context.Context, store Store, opts ...Option) *BudgetService {
	s := &BudgetService{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		cfg := applog.DefaultConfig()
		cfg.Component = applog.ComponentBudget
		s.logger = applog.New(cfg)
	}

	s.budget = core.NewBudget()
	if store != nil {
		b, err := store.Load(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to load budget, starting from defaults",
				applog.FieldError, err)
		} else if b != nil {
			s.budget = b
		}
	}
	s.refreshGauges()
	return s
}

// SetSalary replaces the salary of the given cutoff.
func (s *BudgetService) SetSalary(ctx context.Context, p core.Period, v decimal.Decimal) error {
	var err error
	s.mutate(ctx, applog.OpSetSalary, p.String(), func() bool {
		acc := s.budget.Account(p)
		if acc == nil {
			err = s.unknownPeriod(ctx, applog.OpSetSalary, p)
			return false
		}
		acc.SetSalary(v)
		s.metrics.IncMutation(applog.OpSetSalary)
		s.logger.InfoContext(ctx, "Salary updated",
			applog.FieldCutoff, p.String(), applog.FieldAmount, v.String())
		return true
	})
	return err
}

// AddBill appends a bill to the given cutoff.
func (s *BudgetService) AddBill(ctx context.Context, p core.Period, name string, amount decimal.Decimal) error {
	var err error
	s.mutate(ctx, applog.OpAddBill, p.String(), func() bool {
		acc := s.budget.Account(p)
		if acc == nil {
			err = s.unknownPeriod(ctx, applog.OpAddBill, p)
			return false
		}
		acc.Bills.Append(name, amount)
		s.metrics.IncMutation(applog.OpAddBill)
		s.logger.InfoContext(ctx, "Bill added",
			applog.FieldCutoff, p.String(), "name", name, applog.FieldAmount, amount.String())
		return true
	})
	return err
}

// DeleteBill removes the bill at index. It reports whether a bill was
// removed; an out of range index is not an error.
func (s *BudgetService) DeleteBill(ctx context.Context, p core.Period, index int) (bool, error) {
	var err error
	removed := s.mutate(ctx, applog.OpDeleteBill, p.String(), func() bool {
		acc := s.budget.Account(p)
		if acc == nil {
			err = s.unknownPeriod(ctx, applog.OpDeleteBill, p)
			return false
		}
		if !acc.Bills.RemoveAt(index) {
			s.logger.DebugContext(ctx, "Bill index out of range, nothing deleted",
				applog.FieldCutoff, p.String(), applog.FieldIndex, index)
			return false
		}
		s.metrics.IncMutation(applog.OpDeleteBill)
		s.logger.InfoContext(ctx, "Bill deleted", applog.FieldCutoff, p.String(), applog.FieldIndex, index)
		return true
	})
	return removed, err
}

// SetGoal replaces the goal name and target. Progress is kept.
func (s *BudgetService) SetGoal(ctx context.Context, name string, amount decimal.Decimal) {
	s.mutate(ctx, applog.OpSetGoal, "", func() bool {
		s.setGoal(ctx, name, amount)
		s.metrics.IncMutation(applog.OpSetGoal)
		return true
	})
}

// Contribute moves money from each cutoff's flex money into the goal and
// returns the amounts actually moved.
func (s *BudgetService) Contribute(ctx context.Context, requests core.Contributions) core.Contributions {
	var applied core.Contributions
	s.mutate(ctx, applog.OpContribute, "", func() bool {
		applied = s.contribute(ctx, requests)
		s.metrics.IncMutation(applog.OpContribute)
		return true
	})
	return applied
}

// DeleteGoal clears the goal and every contribution made toward it.
func (s *BudgetService) DeleteGoal(ctx context.Context) {
	s.mutate(ctx, applog.OpDeleteGoal, "", func() bool {
		s.budget.DeleteGoal()
		s.metrics.IncMutation(applog.OpDeleteGoal)
		s.logger.InfoContext(ctx, "Savings goal deleted")
		return true
	})
}

// Apply runs a combined update under a single lock with one save. An
// unknown period skips the salary and bill parts only; when nothing else
// was requested the update is dropped without a save or notification.
func (s *BudgetService) Apply(ctx context.Context, u Update) core.Contributions {
	if u.Empty() {
		return nil
	}

	var applied core.Contributions
	s.mutate(ctx, applog.OpUpdate, u.Period.String(), func() bool {
		changed := false
		if u.Salary != nil || u.Bill != nil {
			if acc := s.budget.Account(u.Period); acc != nil {
				if u.Salary != nil {
					acc.SetSalary(*u.Salary)
					s.metrics.IncMutation(applog.OpSetSalary)
				}
				if u.Bill != nil {
					acc.Bills.Append(u.Bill.Name, u.Bill.Amount)
					s.metrics.IncMutation(applog.OpAddBill)
				}
				changed = true
			} else {
				s.logger.WarnContext(ctx, "Ignoring update for unknown cutoff", applog.FieldCutoff, u.Period.String())
			}
		}

		if u.Goal != nil {
			s.setGoal(ctx, u.Goal.Name, u.Goal.Amount)
			s.metrics.IncMutation(applog.OpSetGoal)
			changed = true
		}

		if u.Contributions != nil {
			applied = s.contribute(ctx, u.Contributions)
			s.metrics.IncMutation(applog.OpContribute)
			changed = true
		}

		if changed {
			s.logger.InfoContext(ctx, "Budget updated",
				applog.FieldCutoff, u.Period.String(),
				"salary", u.Salary != nil,
				"bill", u.Bill != nil,
				applog.FieldGoal, u.Goal != nil,
				"contribution", u.Contributions != nil)
		}
		return changed
	})
	return applied
}

// Report builds the current summary from a private copy of the state.
func (s *BudgetService) Report() core.Report {
	s.mu.Lock()
	snapshot := s.budget.Clone()
	s.mu.Unlock()

	report := core.BuildReport(snapshot)
	s.observeReport(report)
	return report
}

// Reload replaces the in-memory state with what the store holds.
func (s *BudgetService) Reload(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	b, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load budget: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.budget = b
	s.refreshGauges()
	return nil
}

func (s *BudgetService) setGoal(ctx context.Context, name string, amount decimal.Decimal) {
	s.budget.Goal.SetTarget(name, amount)
	s.logger.InfoContext(ctx, "Savings goal set",
		applog.FieldGoal, s.budget.Goal.Name, applog.FieldAmount, amount.String())
}

func (s *BudgetService) contribute(ctx context.Context, requests core.Contributions) core.Contributions {
	applied := s.budget.Contribute(requests)
	for _, p := range core.Periods {
		requested := requests[p]
		actual := applied[p]
		s.metrics.ObserveContribution(p.String(), requested, actual)
		if requested.IsPositive() {
			s.logger.InfoContext(ctx, "Contribution applied",
				applog.FieldCutoff, p.String(),
				applog.FieldRequested, requested.String(),
				applog.FieldApplied, actual.String())
		}
	}
	return applied
}

// mutate runs fn under s.mu. When fn reports a change the state is saved
// before the lock is released and the change is announced after.
func (s *BudgetService) mutate(ctx context.Context, operation, period string, fn func() bool) bool {
	changed := func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !fn() {
			return false
		}
		s.persist(ctx)
		s.refreshGauges()
		return true
	}()
	if changed {
		s.notify(ctx, operation, period)
	}
	return changed
}

func (s *BudgetService) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, s.budget); err != nil {
		s.metrics.IncPersistFailure()
		s.logger.ErrorContext(ctx, "Failed to save budget, keeping in-memory state",
			applog.FieldError, err)
	}
}

func (s *BudgetService) notify(ctx context.Context, operation, period string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyChange(ctx, operation, period); err != nil {
		s.metrics.IncNotifyFailure()
		s.logger.WarnContext(ctx, "Failed to publish budget change",
			applog.FieldOperation, operation, applog.FieldError, err)
	}
}

func (s *BudgetService) unknownPeriod(ctx context.Context, operation string, p core.Period) error {
	s.logger.WarnContext(ctx, "Ignoring operation for unknown cutoff",
		applog.FieldOperation, operation, applog.FieldCutoff, p.String())
	return fmt.Errorf("%s %q: %w", operation, p, core.ErrUnknownPeriod)
}

// refreshGauges must be called with s.mu held or before the service is shared.
func (s *BudgetService) refreshGauges() {
	if s.metrics == nil {
		return
	}
	s.observeReport(core.BuildReport(s.budget))
}

func (s *BudgetService) observeReport(r core.Report) {
	for _, a := range r.Accounts {
		s.metrics.SetFlexMoney(a.Period.String(), a.FlexMoney)
	}
	s.metrics.SetGoalRemaining(r.Goal.Remaining)
}
