package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Labels used when a record reference cannot be resolved.
const (
	UncategorizedLabel = "Uncategorized"
	AutoGeneratedLabel = "Auto-Generated"
	NotAvailableLabel  = "N/A"
)

// Income statuses. Completed is the only status that counts toward totals
// when a report requires completed income.
const (
	StatusCompleted IncomeStatus = "completed"
	StatusPending   IncomeStatus = "pending"
)

type (
	IncomeStatus string

	Date struct {
		time.Time
	}

	UserRef struct {
		ID        string `json:"id"`
		FirstName string `json:"firstName,omitempty"`
		LastName  string `json:"lastName,omitempty"`
		Email     string `json:"email,omitempty"`
		Role      string `json:"role,omitempty"`
	}

	CategoryRef struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name"`
	}

	VendorRef struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name"`
	}

	ExpenseRecord struct {
		ID              string       `json:"id"`
		Title           string       `json:"title"`
		Amount          Amount       `json:"amount"`
		Category        *CategoryRef `json:"category"`
		Subcategory     *CategoryRef `json:"subcategory,omitempty"`
		User            *UserRef     `json:"user"`
		Vendor          *VendorRef   `json:"vendor,omitempty"`
		TransactionDate string       `json:"transactionDate,omitempty"`
		CreatedAt       string       `json:"createdAt,omitempty"`
		Description     string       `json:"description,omitempty"`
	}

	IncomeRecord struct {
		ID              string       `json:"id"`
		Amount          Amount       `json:"amount"`
		Status          IncomeStatus `json:"status"`
		User            *UserRef     `json:"user"`
		TransactionDate string       `json:"transactionDate,omitempty"`
		CreatedAt       string       `json:"createdAt,omitempty"`
		Source          string       `json:"source,omitempty"`
		Description     string       `json:"description,omitempty"`
	}

	// Snapshot is a consistent, read-only view of every record a report can draw on.
	Snapshot struct {
		Users     []UserRef       `json:"users"`
		Expenses  []ExpenseRecord `json:"expenses"`
		Incomes   []IncomeRecord  `json:"incomes"`
		Version   string          `json:"version,omitempty"`
		FetchedAt time.Time       `json:"fetchedAt"`
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyID       = errors.New("empty id")
)

// NewDate creates a Date at midnight of the given calendar day in loc.
func NewDate(year, month, day int, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)}
}

// ParseDate parses a YYYY-MM-DD string as a calendar day in loc.
func ParseDate(s string, loc *time.Location) (Date, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// DisplayName returns "<first> <last>", falling back to the user ID.
func (u *UserRef) DisplayName() string {
	if u == nil {
		return AutoGeneratedLabel
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.ID
	}
	return name
}

// UnmarshalJSON accepts a populated user object or a bare user ID, string
// or numeric. Any other shape decodes as an empty reference.
func (u *UserRef) UnmarshalJSON(data []byte) error {
	*u = UserRef{}
	if id, ok := scalarText(data); ok {
		u.ID = id
		return nil
	}
	var p struct {
		ID        looseText `json:"id"`
		FirstName looseText `json:"firstName"`
		LastName  looseText `json:"lastName"`
		Email     looseText `json:"email"`
		Role      looseText `json:"role"`
	}
	if json.Unmarshal(data, &p) != nil {
		return nil
	}
	*u = UserRef{
		ID:        string(p.ID),
		FirstName: string(p.FirstName),
		LastName:  string(p.LastName),
		Email:     string(p.Email),
		Role:      string(p.Role),
	}
	return nil
}

// UnmarshalJSON accepts a populated category object, a bare name or a
// numeric ID.
func (c *CategoryRef) UnmarshalJSON(data []byte) error {
	id, name := decodeNamedRef(data)
	*c = CategoryRef{ID: id, Name: name}
	return nil
}

// UnmarshalJSON accepts a populated vendor object, a bare name or a
// numeric ID.
func (v *VendorRef) UnmarshalJSON(data []byte) error {
	id, name := decodeNamedRef(data)
	*v = VendorRef{ID: id, Name: name}
	return nil
}

// UnmarshalJSON normalizes the status to a lowercase marker. Boolean
// statuses map true to completed and false to pending; any other
// non-string value leaves the status empty.
func (s *IncomeStatus) UnmarshalJSON(data []byte) error {
	*s = ""
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*s = StatusCompleted
		return nil
	case "false":
		*s = StatusPending
		return nil
	}
	if raw, ok := bareString(data); ok {
		*s = IncomeStatus(strings.ToLower(strings.TrimSpace(raw)))
	}
	return nil
}

// UnmarshalJSON decodes an expense leniently: text fields of the wrong
// type decode as empty and an unparseable timestamp drops back to the
// other one, or leaves the record without a date.
func (e *ExpenseRecord) UnmarshalJSON(data []byte) error {
	type plain ExpenseRecord
	aux := struct {
		*plain
		ID              looseText `json:"id"`
		Title           looseText `json:"title"`
		TransactionDate looseText `json:"transactionDate"`
		CreatedAt       looseText `json:"createdAt"`
		Description     looseText `json:"description"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.ID = string(aux.ID)
	e.Title = string(aux.Title)
	e.TransactionDate = string(aux.TransactionDate)
	e.CreatedAt = string(aux.CreatedAt)
	e.Description = string(aux.Description)
	return nil
}

// UnmarshalJSON decodes an income with the same leniency as expenses.
func (i *IncomeRecord) UnmarshalJSON(data []byte) error {
	type plain IncomeRecord
	aux := struct {
		*plain
		ID              looseText `json:"id"`
		TransactionDate looseText `json:"transactionDate"`
		CreatedAt       looseText `json:"createdAt"`
		Source          looseText `json:"source"`
		Description     looseText `json:"description"`
	}{plain: (*plain)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	i.ID = string(aux.ID)
	i.TransactionDate = string(aux.TransactionDate)
	i.CreatedAt = string(aux.CreatedAt)
	i.Source = string(aux.Source)
	i.Description = string(aux.Description)
	return nil
}

// CategoryName resolves the category, "Uncategorized" when missing.
func (e ExpenseRecord) CategoryName() string {
	if e.Category == nil || strings.TrimSpace(e.Category.Name) == "" {
		return UncategorizedLabel
	}
	return e.Category.Name
}

// UserID returns the referenced user ID, if any.
func (e ExpenseRecord) UserID() (string, bool) {
	return refID(e.User)
}

// EffectiveTime returns the transaction timestamp, falling back to the
// creation timestamp when the former is absent or unparseable.
func (e ExpenseRecord) EffectiveTime(loc *time.Location) (time.Time, bool) {
	return effectiveTime(e.TransactionDate, e.CreatedAt, loc)
}

// UserID returns the referenced user ID, if any.
func (i IncomeRecord) UserID() (string, bool) {
	return refID(i.User)
}

// EffectiveTime returns the transaction timestamp, falling back to the
// creation timestamp.
func (i IncomeRecord) EffectiveTime(loc *time.Location) (time.Time, bool) {
	return effectiveTime(i.TransactionDate, i.CreatedAt, loc)
}

// Completed reports whether the income carries the completed marker.
func (i IncomeRecord) Completed() bool {
	return i.Status == StatusCompleted
}

// FindUser looks up a user in the snapshot directory. Users referenced only
// from records are found as well.
func (s Snapshot) FindUser(id string) (UserRef, bool) {
	if id == "" {
		return UserRef{}, false
	}
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	for _, e := range s.Expenses {
		if e.User != nil && e.User.ID == id {
			return *e.User, true
		}
	}
	for _, in := range s.Incomes {
		if in.User != nil && in.User.ID == id {
			return *in.User, true
		}
	}
	return UserRef{}, false
}

func refID(u *UserRef) (string, bool) {
	if u == nil || strings.TrimSpace(u.ID) == "" {
		return "", false
	}
	return u.ID, true
}

func effectiveTime(transaction, created string, loc *time.Location) (time.Time, bool) {
	if t, ok := ParseTimestamp(transaction, loc); ok {
		return t, true
	}
	return ParseTimestamp(created, loc)
}

func bareString(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", false
	}
	return s, true
}

// looseText decodes strings as is and numbers as their literal text.
// Every other JSON value decodes as "".
type looseText string

func (t *looseText) UnmarshalJSON(data []byte) error {
	s, _ := scalarText(data)
	*t = looseText(s)
	return nil
}

func scalarText(data []byte) (string, bool) {
	if s, ok := bareString(data); ok {
		return s, true
	}
	var n json.Number
	if json.Unmarshal(bytes.TrimSpace(data), &n) == nil {
		return n.String(), true
	}
	return "", false
}

// decodeNamedRef reads a category or vendor reference. A bare string is a
// name, a bare number an ID.
func decodeNamedRef(data []byte) (id, name string) {
	if s, ok := bareString(data); ok {
		return "", s
	}
	if n, ok := scalarText(data); ok {
		return n, ""
	}
	var p struct {
		ID   looseText `json:"id"`
		Name looseText `json:"name"`
	}
	if json.Unmarshal(data, &p) != nil {
		return "", ""
	}
	return string(p.ID), string(p.Name)
}
