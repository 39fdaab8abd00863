package records

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"finreport/internal/core"
	applog "finreport/internal/log"
)

// Dump is the on-disk JSON layout shared by seed files and the importer.
// Records stay raw so each one decodes on its own.
type Dump struct {
	Users    []json.RawMessage `json:"users"`
	Expenses []json.RawMessage `json:"expenses"`
	Incomes  []json.RawMessage `json:"incomes"`
}

// DecodeDump reads a dump. Records that are not objects or carry no id are
// skipped and logged; duplicate ids fail the whole dump.
func DecodeDump(r io.Reader) (core.Snapshot, error) {
	var d Dump
	dec := json.NewDecoder(r)
	if err := dec.Decode(&d); err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidDump, err)
	}
	snap := core.Snapshot{
		Users:    DecodeRecords("user", d.Users, func(u core.UserRef) string { return u.ID }),
		Expenses: DecodeRecords("expense", d.Expenses, func(e core.ExpenseRecord) string { return e.ID }),
		Incomes:  DecodeRecords("income", d.Incomes, func(i core.IncomeRecord) string { return i.ID }),
	}
	if err := Check(snap); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

// DecodeRecords decodes each raw record on its own, dropping the ones that
// fail to decode or have no id.
func DecodeRecords[T any](kind string, raw []json.RawMessage, id func(T) string) []T {
	if raw == nil {
		return nil
	}
	out := make([]T, 0, len(raw))
	for i, msg := range raw {
		var rec T
		if err := json.Unmarshal(msg, &rec); err != nil {
			slog.Warn("Skipping malformed record",
				applog.FieldComponent, applog.ComponentImport,
				"kind", kind,
				"index", i,
				applog.FieldError, err)
			continue
		}
		if strings.TrimSpace(id(rec)) == "" {
			slog.Warn("Skipping record without id",
				applog.FieldComponent, applog.ComponentImport,
				"kind", kind,
				"index", i)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// ReadDumpFile decodes the dump stored at path.
func ReadDumpFile(path string) (core.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()
	return DecodeDump(f)
}

// Check validates record ids within each collection.
func Check(snap core.Snapshot) error {
	users := make([]string, 0, len(snap.Users))
	for _, u := range snap.Users {
		users = append(users, u.ID)
	}
	if err := uniqueIDs("user", users); err != nil {
		return err
	}
	expenses := make([]string, 0, len(snap.Expenses))
	for _, e := range snap.Expenses {
		expenses = append(expenses, e.ID)
	}
	if err := uniqueIDs("expense", expenses); err != nil {
		return err
	}
	incomes := make([]string, 0, len(snap.Incomes))
	for _, i := range snap.Incomes {
		incomes = append(incomes, i.ID)
	}
	return uniqueIDs("income", incomes)
}

func uniqueIDs(kind string, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return fmt.Errorf("%w: %s #%d: %w", ErrInvalidDump, kind, i+1, core.ErrEmptyID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s %q", ErrDuplicateID, kind, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// FilterOptions lists what a report can be filtered by.
type FilterOptions struct {
	Users      []core.UserRef `json:"users"`
	Categories []string       `json:"categories"`
}

// Options collects the known users (directory first, then users referenced
// by records) and the category names in use, sorted by name.
func Options(snap core.Snapshot) FilterOptions {
	opts := FilterOptions{Users: []core.UserRef{}, Categories: []string{}}

	seenUsers := map[string]struct{}{}
	addUser := func(u *core.UserRef) {
		if u == nil || strings.TrimSpace(u.ID) == "" {
			return
		}
		if _, ok := seenUsers[u.ID]; ok {
			return
		}
		seenUsers[u.ID] = struct{}{}
		opts.Users = append(opts.Users, *u)
	}
	for i := range snap.Users {
		addUser(&snap.Users[i])
	}
	for _, e := range snap.Expenses {
		addUser(e.User)
	}
	for _, in := range snap.Incomes {
		addUser(in.User)
	}

	seenCats := map[string]struct{}{}
	for _, e := range snap.Expenses {
		name := e.CategoryName()
		if _, ok := seenCats[name]; ok {
			continue
		}
		seenCats[name] = struct{}{}
		opts.Categories = append(opts.Categories, name)
	}
	slices.Sort(opts.Categories)
	slices.SortStableFunc(opts.Users, func(a, b core.UserRef) int {
		return strings.Compare(a.DisplayName(), b.DisplayName())
	})
	return opts
}
