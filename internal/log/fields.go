package log

import (
	"maps"
	"slices"
)

// Field names shared by every component.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldAction     = "gateway_action"
	FieldEmail      = "email"
	FieldProject    = "project"
	FieldActivity   = "activity"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldRows       = "rows"
)

// Component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentGateway   = "gateway"
	ComponentSession   = "session"
	ComponentActivity  = "activity"
	ComponentLogFeed   = "logfeed"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
)

// Operation names.
const (
	OpUpdate   = "update"
	OpAppend   = "append"
	OpExport   = "export"
	OpPoll     = "poll"
	OpShutdown = "shutdown"
)

// Error categories, derived from the HTTP status for request failures.
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields collects attributes for one record. The With methods mutate
// and return the receiver so calls chain.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithClientIP(ip string) LogFields {
	if ip != "" {
		f[FieldClientIP] = ip
	}
	return f
}

// WithError is a no-op for a nil err.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithGatewayAction(action string) LogFields {
	f[FieldAction] = action
	return f
}

// WithProgress adds the cell an edit refers to. month is empty for overall
// progress and observations.
func (f LogFields) WithProgress(project, activity, month string) LogFields {
	f[FieldProject] = project
	f[FieldActivity] = activity
	if month != "" {
		f[FieldMonth] = month
	}
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice flattens f into slog key/value pairs in key order.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		out = append(out, k, f[k])
	}
	return out
}
