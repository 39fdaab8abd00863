package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"finreport/internal/core"
	"finreport/internal/records"
)

// Seed file names read by NewFromFiles.
const (
	SeedFile     = "seed.json"
	UsersFile    = "users.json"
	ExpensesFile = "expenses.json"
	IncomesFile  = "incomes.json"
)

// Store keeps every record in memory. Snapshots are copies, so callers may
// hold them while the store is reloaded.
type Store struct {
	mu       sync.RWMutex
	users    []core.UserRef
	expenses []core.ExpenseRecord
	incomes  []core.IncomeRecord
	version  int
	now      func() time.Time
}

func New(snap core.Snapshot) *Store {
	s := &Store{now: time.Now}
	s.replace(snap)
	return s
}

// NewFromFiles loads base/seed.json when present, otherwise the separate
// users.json, expenses.json and incomes.json arrays. Missing files yield an
// empty collection; malformed files are an error, malformed records are
// skipped.
func NewFromFiles(base string) (*Store, error) {
	seed := filepath.Join(base, SeedFile)
	if _, err := os.Stat(seed); err == nil {
		snap, err := records.ReadDumpFile(seed)
		if err != nil {
			return nil, err
		}
		return New(snap), nil
	}

	var snap core.Snapshot
	var raw records.Dump
	for _, f := range []struct {
		name string
		out  *[]json.RawMessage
	}{
		{UsersFile, &raw.Users},
		{ExpensesFile, &raw.Expenses},
		{IncomesFile, &raw.Incomes},
	} {
		if err := readArray(filepath.Join(base, f.name), f.out); err != nil {
			return nil, err
		}
	}
	snap.Users = records.DecodeRecords("user", raw.Users, func(u core.UserRef) string { return u.ID })
	snap.Expenses = records.DecodeRecords("expense", raw.Expenses, func(e core.ExpenseRecord) string { return e.ID })
	snap.Incomes = records.DecodeRecords("income", raw.Incomes, func(i core.IncomeRecord) string { return i.ID })
	if err := records.Check(snap); err != nil {
		return nil, err
	}
	return New(snap), nil
}

// Snapshot returns a copy of the current records.
func (s *Store) Snapshot(ctx context.Context) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.Snapshot{
		Users:     slices.Clone(s.users),
		Expenses:  slices.Clone(s.expenses),
		Incomes:   slices.Clone(s.incomes),
		Version:   s.versionString(),
		FetchedAt: s.now(),
	}, nil
}

// Import replaces every record.
func (s *Store) Import(ctx context.Context, snap core.Snapshot) (records.ImportStats, error) {
	if err := ctx.Err(); err != nil {
		return records.ImportStats{}, err
	}
	if err := records.Check(snap); err != nil {
		return records.ImportStats{}, err
	}
	s.replace(snap)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return records.ImportStats{
		Users:    len(s.users),
		Expenses: len(s.expenses),
		Incomes:  len(s.incomes),
		Version:  s.versionString(),
	}, nil
}

func (s *Store) replace(snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = slices.Clone(snap.Users)
	s.expenses = slices.Clone(snap.Expenses)
	s.incomes = slices.Clone(snap.Incomes)
	s.version++
}

func (s *Store) versionString() string {
	return fmt.Sprintf("mem:%d", s.version)
}

func readArray(path string, out *[]json.RawMessage) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", records.ErrInvalidDump, filepath.Base(path), err)
	}
	return nil
}
