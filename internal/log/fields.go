package log

// Common field names for structured logging
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
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldSheet      = "sheet"
	FieldRange      = "range"
	FieldRows       = "rows"
	FieldCols       = "cols"
	FieldSession    = "session"
	FieldKind       = "kind"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentDashboard = "dashboard"
	ComponentAnalysis  = "analysis"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
)

const (
	OpOpen     = "open"
	OpEdit     = "edit"
	OpSave     = "save"
	OpExport   = "export"
	OpAnalyze  = "analyze"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields builds a set of slog attributes.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError is a no-op for a nil error.
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

// WithSheet adds the worksheet and, when known, the A1 range and its size.
func (f LogFields) WithSheet(sheet, rangeA1 string, rows, cols int) LogFields {
	f[FieldSheet] = sheet
	if rangeA1 != "" {
		f[FieldRange] = rangeA1
		f[FieldRows] = rows
		f[FieldCols] = cols
	}
	return f
}

func (f LogFields) WithSession(id string) LogFields {
	f[FieldSession] = id
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to slog key/value pairs.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
