package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"finreport/internal/core"
	applog "finreport/internal/log"
	"finreport/internal/records"

	_ "modernc.org/sqlite"
)

const (
	metaVersion    = "version"
	metaImportedAt = "imported_at"

	// snapshotAttempts bounds retries when an import lands mid-load.
	snapshotAttempts = 3
)

var ErrSnapshotChanged = errors.New("records changed while loading snapshot")

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ records.Store = (*SQLiteRepository)(nil)

func dsn(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Snapshot implements records.Source. Users, expenses and incomes are read
// concurrently; the stored version is compared before and after so a
// concurrent import is never mixed into one snapshot.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (core.Snapshot, error) {
	for attempt := 1; attempt <= snapshotAttempts; attempt++ {
		before, err := r.version(ctx)
		if err != nil {
			return core.Snapshot{}, err
		}

		snap, err := r.load(ctx)
		if err != nil {
			return core.Snapshot{}, err
		}

		after, err := r.version(ctx)
		if err != nil {
			return core.Snapshot{}, err
		}
		if before == after {
			snap.Version = after
			snap.FetchedAt = r.now()
			return snap, nil
		}

		slog.WarnContext(ctx, "Records changed during snapshot load, retrying",
			applog.FieldComponent, applog.ComponentStorage,
			"attempt", attempt,
			"version_before", before,
			"version_after", after)
	}
	return core.Snapshot{}, ErrSnapshotChanged
}

func (r *SQLiteRepository) load(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		users, err := r.loadUsers(gctx)
		if err != nil {
			return fmt.Errorf("load users: %w", err)
		}
		snap.Users = users
		return nil
	})
	g.Go(func() error {
		expenses, err := r.loadExpenses(gctx)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		snap.Expenses = expenses
		return nil
	})
	g.Go(func() error {
		incomes, err := r.loadIncomes(gctx)
		if err != nil {
			return fmt.Errorf("load incomes: %w", err)
		}
		snap.Incomes = incomes
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

func (r *SQLiteRepository) version(ctx context.Context) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, metaVersion).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read version: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) loadUsers(ctx context.Context) ([]core.UserRef, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, first_name, last_name, email, role FROM users ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.UserRef{}
	for rows.Next() {
		var u core.UserRef
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Role); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, amount_cents,
		       category_id, category_name, subcategory_id, subcategory_name,
		       user_id, user_first_name, user_last_name, user_email,
		       vendor_id, vendor_name,
		       transaction_date, created_at, description
		FROM expenses ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.ExpenseRecord{}
	for rows.Next() {
		var (
			e                         core.ExpenseRecord
			amount                    sql.NullInt64
			catID, catName            sql.NullString
			subID, subName            sql.NullString
			userID, first, last, mail sql.NullString
			vendorID, vendorName      sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Title, &amount,
			&catID, &catName, &subID, &subName,
			&userID, &first, &last, &mail,
			&vendorID, &vendorName,
			&e.TransactionDate, &e.CreatedAt, &e.Description); err != nil {
			return nil, err
		}
		e.Amount = amountFrom(amount)
		e.Category = categoryFrom(catID, catName)
		e.Subcategory = categoryFrom(subID, subName)
		e.User = userFrom(userID, first, last, mail)
		if vendorName.Valid || vendorID.Valid {
			e.Vendor = &core.VendorRef{ID: vendorID.String, Name: vendorName.String}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadIncomes(ctx context.Context) ([]core.IncomeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount_cents, status,
		       user_id, user_first_name, user_last_name, user_email,
		       transaction_date, created_at, source, description
		FROM incomes ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.IncomeRecord{}
	for rows.Next() {
		var (
			in                        core.IncomeRecord
			amount                    sql.NullInt64
			status                    string
			userID, first, last, mail sql.NullString
		)
		if err := rows.Scan(&in.ID, &amount, &status,
			&userID, &first, &last, &mail,
			&in.TransactionDate, &in.CreatedAt, &in.Source, &in.Description); err != nil {
			return nil, err
		}
		in.Amount = amountFrom(amount)
		in.Status = core.IncomeStatus(status)
		in.User = userFrom(userID, first, last, mail)
		out = append(out, in)
	}
	return out, rows.Err()
}

// Import implements records.Importer. All records are replaced in a single
// transaction and a fresh version is stored.
func (r *SQLiteRepository) Import(ctx context.Context, snap core.Snapshot) (records.ImportStats, error) {
	if err := records.Check(snap); err != nil {
		return records.ImportStats{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return records.ImportStats{}, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"users", "expenses", "incomes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return records.ImportStats{}, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertUsers(ctx, tx, snap.Users); err != nil {
		return records.ImportStats{}, err
	}
	if err := insertExpenses(ctx, tx, snap.Expenses); err != nil {
		return records.ImportStats{}, err
	}
	if err := insertIncomes(ctx, tx, snap.Incomes); err != nil {
		return records.ImportStats{}, err
	}

	version := uuid.NewString()
	for key, value := range map[string]string{
		metaVersion:    version,
		metaImportedAt: r.now().UTC().Format(time.RFC3339Nano),
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metadata (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
			return records.ImportStats{}, fmt.Errorf("store %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return records.ImportStats{}, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Records imported into SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldOperation, applog.OpImport,
		applog.FieldSnapshot, version,
		"users", len(snap.Users),
		applog.FieldExpenseCount, len(snap.Expenses),
		applog.FieldIncomeCount, len(snap.Incomes))

	return records.ImportStats{
		Users:    len(snap.Users),
		Expenses: len(snap.Expenses),
		Incomes:  len(snap.Incomes),
		Version:  version,
	}, nil
}

func insertUsers(ctx context.Context, tx *sql.Tx, users []core.UserRef) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO users (id, position, first_name, last_name, email, role) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare user insert: %w", err)
	}
	defer stmt.Close()

	for i, u := range users {
		if _, err := stmt.ExecContext(ctx, u.ID, i, u.FirstName, u.LastName, u.Email, u.Role); err != nil {
			return fmt.Errorf("insert user %s: %w", u.ID, err)
		}
	}
	return nil
}

func insertExpenses(ctx context.Context, tx *sql.Tx, expenses []core.ExpenseRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO expenses (
			id, position, title, amount_cents,
			category_id, category_name, subcategory_id, subcategory_name,
			user_id, user_first_name, user_last_name, user_email,
			vendor_id, vendor_name,
			transaction_date, created_at, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare expense insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range expenses {
		catID, catName := categoryArgs(e.Category)
		subID, subName := categoryArgs(e.Subcategory)
		userID, first, last, mail := userArgs(e.User)
		var vendorID, vendorName any
		if e.Vendor != nil {
			vendorID, vendorName = e.Vendor.ID, e.Vendor.Name
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, i, e.Title, amountArg(e.Amount),
			catID, catName, subID, subName,
			userID, first, last, mail,
			vendorID, vendorName,
			e.TransactionDate, e.CreatedAt, e.Description); err != nil {
			return fmt.Errorf("insert expense %s: %w", e.ID, err)
		}
	}
	return nil
}

func insertIncomes(ctx context.Context, tx *sql.Tx, incomes []core.IncomeRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO incomes (
			id, position, amount_cents, status,
			user_id, user_first_name, user_last_name, user_email,
			transaction_date, created_at, source, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare income insert: %w", err)
	}
	defer stmt.Close()

	for i, in := range incomes {
		userID, first, last, mail := userArgs(in.User)
		if _, err := stmt.ExecContext(ctx,
			in.ID, i, amountArg(in.Amount), string(in.Status),
			userID, first, last, mail,
			in.TransactionDate, in.CreatedAt, in.Source, in.Description); err != nil {
			return fmt.Errorf("insert income %s: %w", in.ID, err)
		}
	}
	return nil
}

func amountArg(a core.Amount) any {
	if !a.Present {
		return nil
	}
	return a.Cents
}

func amountFrom(v sql.NullInt64) core.Amount {
	if !v.Valid {
		return core.Amount{}
	}
	return core.Some(v.Int64)
}

func categoryArgs(c *core.CategoryRef) (id, name any) {
	if c == nil {
		return nil, nil
	}
	return c.ID, c.Name
}

func categoryFrom(id, name sql.NullString) *core.CategoryRef {
	if !id.Valid && !name.Valid {
		return nil
	}
	return &core.CategoryRef{ID: id.String, Name: name.String}
}

func userArgs(u *core.UserRef) (id, first, last, email any) {
	if u == nil {
		return nil, nil, nil, nil
	}
	return u.ID, u.FirstName, u.LastName, u.Email
}

func userFrom(id, first, last, email sql.NullString) *core.UserRef {
	if !id.Valid {
		return nil
	}
	return &core.UserRef{ID: id.String, FirstName: first.String, LastName: last.String, Email: email.String}
}
