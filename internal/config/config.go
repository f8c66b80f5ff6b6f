package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"barjas/internal/core"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection: sheets, xlsx or memory
	DataBackend string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleCredentialsFile    string

	// Local backends
	XLSXPath      string
	MemoryDataDir string

	// Sheet layout
	HeaderRows       int
	DataStartRow     int
	PlaceholderLabel string
	AllowedSheets    string
	AnalysisSheet    string
	HeaderMarker     string

	// Value handling
	MissingValuePolicy string
	ColumnRoleRules    string
	ClearRemovedRows   bool

	// Save history; empty path disables it
	SQLiteDBPath string

	// AMQP; empty URL disables events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sessions and caches
	SessionTTL        time.Duration
	MaxSessions       int
	SecureCookies     bool
	WorksheetCacheTTL time.Duration
}

func Load() *Config {
	headerRows := getEnvInt("HEADER_ROWS", 4)
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleCredentialsFile:    getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		XLSXPath:      getEnv("XLSX_PATH", "./data/barjas.xlsx"),
		MemoryDataDir: getEnv("MEMORY_DATA_DIR", "data"),

		HeaderRows:       headerRows,
		DataStartRow:     getEnvInt("DATA_START_ROW", headerRows+1),
		PlaceholderLabel: getEnv("PLACEHOLDER_LABEL", core.DefaultPlaceholder),
		AllowedSheets:    getEnv("ALLOWED_SHEETS", "bun,nak,psp,tph"),
		AnalysisSheet:    getEnv("ANALYSIS_SHEET", "Belanja Barang dan Jasa"),
		HeaderMarker:     getEnv("HEADER_MARKER", "PAGU"),

		MissingValuePolicy: getEnv("MISSING_VALUE_POLICY", "zero"),
		ColumnRoleRules:    getEnv("COLUMN_ROLE_RULES", ""),
		ClearRemovedRows:   getEnvBool("CLEAR_REMOVED_ROWS", false),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "barjas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sheet_saved"),

		SessionTTL:        getEnvDuration("SESSION_TTL", 8*time.Hour),
		MaxSessions:       getEnvInt("MAX_SESSIONS", 500),
		SecureCookies:     getEnvBool("SECURE_COOKIES", false),
		WorksheetCacheTTL: getEnvDuration("WORKSHEET_CACHE_TTL", 5*time.Minute),
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	validBackends := []string{"sheets", "xlsx", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "GOOGLE_SPREADSHEET_ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleCredentialsFile == "" {
			errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS is required when using sheets backend")
		}
		for _, f := range []string{c.GoogleServiceAccountFile, c.GoogleCredentialsFile} {
			if f == "" {
				continue
			}
			if _, err := os.Stat(f); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("service account file does not exist: %s", f))
			}
		}
	case "xlsx":
		if c.XLSXPath == "" {
			errors = append(errors, "XLSX_PATH is required when using xlsx backend")
		} else if ext := strings.ToLower(filepath.Ext(c.XLSXPath)); ext != ".xlsx" && ext != ".xlsm" {
			errors = append(errors, fmt.Sprintf("invalid XLSX_PATH '%s': must end in .xlsx or .xlsm", c.XLSXPath))
		}
	}

	if c.HeaderRows < 1 || c.HeaderRows > 50 {
		errors = append(errors, fmt.Sprintf("invalid header rows %d: must be between 1 and 50", c.HeaderRows))
	}
	if c.DataStartRow <= c.HeaderRows {
		errors = append(errors, fmt.Sprintf("invalid data start row %d: must be below the %d header rows", c.DataStartRow, c.HeaderRows))
	}
	if strings.TrimSpace(c.PlaceholderLabel) == "" {
		errors = append(errors, "placeholder label cannot be empty")
	}
	if len(splitList(c.AllowedSheets)) == 0 {
		errors = append(errors, "ALLOWED_SHEETS must name at least one sheet")
	}
	if strings.TrimSpace(c.AnalysisSheet) == "" {
		errors = append(errors, "ANALYSIS_SHEET cannot be empty")
	}
	if strings.TrimSpace(c.HeaderMarker) == "" {
		errors = append(errors, "HEADER_MARKER cannot be empty")
	}

	if _, err := core.ParseMissingPolicy(c.MissingValuePolicy); err != nil {
		errors = append(errors, fmt.Sprintf("invalid MISSING_VALUE_POLICY: %v", err))
	}
	if _, err := core.ParseRoleRules(c.ColumnRoleRules); err != nil {
		errors = append(errors, fmt.Sprintf("invalid COLUMN_ROLE_RULES: %v", err))
	}

	if c.SQLiteDBPath != "" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.MaxSessions < 1 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be at least 1", c.MaxSessions))
	}
	if c.WorksheetCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid worksheet cache TTL %v: cannot be negative", c.WorksheetCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Anchor is the top-left cell of the data block on the tracking sheets.
func (c *Config) Anchor() core.Anchor {
	return core.Anchor{Row: c.DataStartRow, Col: 1}
}

// AllowedSheetList returns ALLOWED_SHEETS split on commas.
func (c *Config) AllowedSheetList() []string { return splitList(c.AllowedSheets) }

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
