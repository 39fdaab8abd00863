package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"finreport/internal/report"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// YYYY-MM-DD calendar date
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", strings.TrimSpace(fl.Field().String()))
		return err == nil
	})

	// Report error messages with the query parameter names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("query"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// ReportRequest is the transport form of a report request.
type ReportRequest struct {
	Kind          string `query:"kind" json:"kind" validate:"required,oneof=monthly quarterly yearly custom"`
	StartDate     string `query:"start" json:"startDate" validate:"required_if=Kind custom,omitempty,isodate"`
	EndDate       string `query:"end" json:"endDate" validate:"required_if=Kind custom,omitempty,isodate"`
	UserID        string `query:"user" json:"userId" validate:"required_if=Scope user,max=128"`
	Category      string `query:"category" json:"category" validate:"max=128"`
	Scope         string `query:"scope" json:"scope" validate:"omitempty,oneof=admin user"`
	CompletedOnly bool   `query:"completed_only" json:"completedOnly"`
	Description   string `query:"description" json:"description" validate:"max=2000"`
}

func (r ReportRequest) normalized() ReportRequest {
	r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
	r.Scope = strings.ToLower(strings.TrimSpace(r.Scope))
	r.StartDate = strings.TrimSpace(r.StartDate)
	r.EndDate = strings.TrimSpace(r.EndDate)
	r.UserID = strings.TrimSpace(r.UserID)
	r.Category = strings.TrimSpace(r.Category)
	r.Description = strings.TrimSpace(r.Description)
	return r
}

// ToRequest validates the transport form and converts it to an engine
// request. Failures wrap report.ErrInvalidRequest and, where one applies,
// the more specific engine sentinel.
func (r ReportRequest) ToRequest() (report.Request, error) {
	r = r.normalized()
	if err := validate.Struct(r); err != nil {
		return report.Request{}, validationError(err)
	}

	req := report.Request{
		Kind:                   report.Kind(r.Kind),
		Range:                  report.Range{StartDate: r.StartDate, EndDate: r.EndDate},
		UserID:                 r.UserID,
		Category:               r.Category,
		Scope:                  report.Scope(r.Scope),
		RequireCompletedIncome: r.CompletedOnly,
		Description:            r.Description,
	}.Normalize()

	if err := req.Validate(); err != nil {
		return report.Request{}, fmt.Errorf("%w: %w", report.ErrInvalidRequest, err)
	}
	return req, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", report.ErrInvalidRequest, err)
	}

	msgs := make([]string, 0, len(verrs))
	var specific error
	for _, e := range verrs {
		msgs = append(msgs, fieldErrorToString(e))
		if specific == nil {
			specific = fieldSentinel(e)
		}
	}

	detail := strings.Join(msgs, "; ")
	if specific != nil {
		return fmt.Errorf("%w: %w: %s", report.ErrInvalidRequest, specific, detail)
	}
	return fmt.Errorf("%w: %s", report.ErrInvalidRequest, detail)
}

func fieldSentinel(e validator.FieldError) error {
	switch e.StructField() {
	case "Kind":
		return report.ErrInvalidPeriod
	case "StartDate", "EndDate":
		return report.ErrInvalidRange
	case "Scope":
		return report.ErrInvalidScope
	case "UserID":
		if e.Tag() == "required_if" {
			return report.ErrInvalidScope
		}
	}
	return nil
}

func fieldErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "required_if":
		return fmt.Sprintf("%s is required when %s", e.Field(), strings.Replace(e.Param(), " ", " is ", 1))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), strings.ReplaceAll(e.Param(), " ", ", "))
	case "isodate":
		return fmt.Sprintf("%s must be in YYYY-MM-DD format", e.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}
