package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldScreen        = "screen"
	FieldUserID        = "user_id"
	FieldAccountID     = "account_id"
	FieldTransactionID = "transaction_id"
	FieldCategoryID    = "category_id"
	FieldAction        = "action"
	FieldState         = "state"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldAmountCents   = "amount_cents"
	FieldIsIncome      = "is_income"
	FieldCount         = "count"
	FieldCacheHit      = "cache_hit"
	FieldForceRefresh  = "force_refresh"
	FieldBackend       = "backend"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentGateway     = "gateway"
	ComponentStorage     = "storage"
	ComponentAppwrite    = "appwrite"
	ComponentAMQP        = "amqp"
	ComponentEvents      = "events"
	ComponentCoordinator = "coordinator"
	ComponentForm        = "form"
	ComponentScreen      = "screen"
	ComponentCache       = "cache"
	ComponentSession     = "session"
	ComponentUpload      = "upload"
	ComponentChat        = "chat"
	ComponentReport      = "report"
	ComponentBackend     = "backend"
	ComponentHTTP        = "http"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpRefresh  = "refresh"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpValidate = "validate"
	OpMigrate  = "migrate"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithUser adds the session user
func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(id, accountID, categoryID string, amountCents int64, isIncome bool) LogFields {
	f[FieldTransactionID] = id
	f[FieldAccountID] = accountID
	f[FieldCategoryID] = categoryID
	f[FieldAmountCents] = amountCents
	f[FieldIsIncome] = isIncome
	return f
}

// WithPeriod adds year and month
func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
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
