package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"paycheck/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Store persists the whole budget state. Save always writes a complete
// snapshot; there are no partial updates.
type Store interface {
	Load(ctx context.Context) (*core.Budget, error)
	Save(ctx context.Context, b *core.Budget) error
	Close() error
}

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database at dbPath and brings its schema up
// to date. A file that is not a readable SQLite database is renamed to
// <dbPath>.corrupt-<timestamp> and replaced by an empty one, so the budget
// starts from defaults instead of failing startup.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := openSQLite(dbPath)
	if err != nil && isCorruptDatabase(err) {
		movedTo, moveErr := quarantineDatabase(dbPath, time.Now())
		if moveErr != nil {
			return nil, fmt.Errorf("move corrupt database aside: %w (open error: %v)", moveErr, err)
		}
		slog.Warn("Database file unreadable, starting from defaults",
			"component", "storage",
			"path", dbPath,
			"moved_to", movedTo,
			"error", err)
		db, err = openSQLite(dbPath)
	}
	if err != nil {
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func openSQLite(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps SQLite away from SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// SQLite result codes for damaged files. Extended codes keep the primary
// code in the low byte.
const (
	sqliteCorrupt = 11
	sqliteNotADB  = 26
)

// isCorruptDatabase reports whether err says the file is not a usable
// SQLite database. The migrate driver flattens driver errors into text, so
// the messages are matched as well as the result codes.
func isCorruptDatabase(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() & 0xff {
		case sqliteCorrupt, sqliteNotADB:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "file is not a database") ||
		strings.Contains(msg, "database disk image is malformed")
}

// quarantineDatabase renames dbPath and its journal files out of the way
// and returns the new name of the main file.
func quarantineDatabase(dbPath string, now time.Time) (string, error) {
	movedTo := fmt.Sprintf("%s.corrupt-%s", dbPath, now.UTC().Format("20060102T150405"))
	if err := os.Rename(dbPath, movedTo); err != nil {
		return "", err
	}
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if err := os.Rename(dbPath+suffix, movedTo+suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return movedTo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load reads the stored snapshot. An empty database yields the default
// budget. Stored amounts that fail to parse read as zero.
func (r *SQLiteRepository) Load(ctx context.Context) (*core.Budget, error) {
	b := core.NewBudget()

	rows, err := r.db.QueryContext(ctx, `SELECT period, salary, manual_contrib FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	for rows.Next() {
		var period, salary, contrib string
		if err := rows.Scan(&period, &salary, &contrib); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan account: %w", err)
		}
		acc := b.Account(core.Period(period))
		if acc == nil {
			slog.WarnContext(ctx, "Skipping stored account with unknown cutoff", "cutoff", period)
			continue
		}
		acc.Salary = parseStored(salary)
		acc.ManualContrib = parseStored(contrib)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close account rows: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `SELECT period, name, amount FROM bills ORDER BY period, position`)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	for rows.Next() {
		var period, name, amount string
		if err := rows.Scan(&period, &name, &amount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		acc := b.Account(core.Period(period))
		if acc == nil {
			continue
		}
		acc.Bills.Append(name, parseStored(amount))
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close bill rows: %w", err)
	}

	var name, amount, covered string
	err = r.db.QueryRowContext(ctx,
		`SELECT name, amount, goal_covered FROM savings_goal WHERE id = 1`).
		Scan(&name, &amount, &covered)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("query savings goal: %w", err)
	default:
		b.Goal.Name = name
		b.Goal.Amount = parseStored(amount)
		b.Goal.GoalCovered = parseStored(covered)
	}

	return b, nil
}

// Save replaces the stored snapshot with b in a single transaction.
func (r *SQLiteRepository) Save(ctx context.Context, b *core.Budget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM bills`,
		`DELETE FROM accounts`,
		`DELETE FROM savings_goal`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
	}

	for _, p := range core.Periods {
		acc := b.Account(p)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (period, salary, manual_contrib) VALUES (?, ?, ?)`,
			p.String(), acc.Salary.String(), acc.ManualContrib.String()); err != nil {
			return fmt.Errorf("insert account %s: %w", p, err)
		}
		for i, bill := range acc.Bills.Items() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO bills (period, position, name, amount) VALUES (?, ?, ?, ?)`,
				p.String(), i, bill.Name, bill.Amount.String()); err != nil {
				return fmt.Errorf("insert bill %s/%d: %w", p, i, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO savings_goal (id, name, amount, goal_covered) VALUES (1, ?, ?, ?)`,
		b.Goal.Name, b.Goal.Amount.String(), b.Goal.GoalCovered.String()); err != nil {
		return fmt.Errorf("insert savings goal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func parseStored(s string) decimal.Decimal {
	return core.ParseDecimalOrZero(s)
}
