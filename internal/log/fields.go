package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldReportKind    = "report_kind"
	FieldReportScope   = "report_scope"
	FieldReportUser    = "report_user"
	FieldCategory      = "category"
	FieldPeriodStart   = "period_start"
	FieldPeriodEnd     = "period_end"
	FieldExpenseCount  = "expense_count"
	FieldIncomeCount   = "income_count"
	FieldBalanceCents  = "balance_cents"
	FieldFormat        = "format"
	FieldCacheHit      = "cache_hit"
	FieldSnapshot      = "snapshot_version"
	FieldBackend       = "backend"
	FieldMessageID     = "message_id"
	FieldSpreadsheetID = "spreadsheet_id"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentReport  = "report"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
	ComponentImport  = "import"
)

// Operations defines standard operation names
const (
	OpGenerate = "generate"
	OpExport   = "export"
	OpPublish  = "publish"
	OpImport   = "import"
	OpLoad     = "load"
	OpValidate = "validate"
	OpPurge    = "purge"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithReport adds the request side of a report: kind, scope, user and
// category filters.
func (f LogFields) WithReport(kind, scope, user, category string) LogFields {
	f[FieldReportKind] = kind
	f[FieldReportScope] = scope
	f[FieldReportUser] = user
	f[FieldCategory] = category
	return f
}

// WithTotals adds the headline numbers of a generated report.
func (f LogFields) WithTotals(expenses, incomes int, balanceCents int64) LogFields {
	f[FieldExpenseCount] = expenses
	f[FieldIncomeCount] = incomes
	f[FieldBalanceCents] = balanceCents
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
