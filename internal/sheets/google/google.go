package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"barjas/internal/core"
	ports "barjas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// valueInputOption makes the API parse written values as if typed into the UI,
// so "1500" lands as a number and "2025-01-02" as a date.
const valueInputOption = "USER_ENTERED"

var errNoService = errors.New("sheets service not initialized")

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ ports.Store = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID and one of GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// credentialsFromEnv resolves service account JSON from the environment.
// Inline JSON wins over a file path.
func credentialsFromEnv() ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := credentialsFromEnv()
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling returns an HTTP client with pooled keep-alive
// connections and bounded timeouts for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// ListWorksheets returns the worksheet titles in tab order.
func (c *Client) ListWorksheets(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errNoService
	}
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list worksheets: %w", err)
	}
	out := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			out = append(out, s.Properties.Title)
		}
	}
	return out, nil
}

// ReadAll returns the formatted text of every row of the sheet.
func (c *Client) ReadAll(ctx context.Context, sheet string) (core.RawSheet, error) {
	if c.svc == nil {
		return nil, errNoService
	}
	rng := quoteSheet(sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return toRawSheet(resp.Values), nil
}

// WriteRange overwrites req.Range in one update call.
func (c *Client) WriteRange(ctx context.Context, sheet string, req core.WriteRequest) error {
	if c.svc == nil {
		return errNoService
	}
	rng := a1(sheet, req.Range)
	vr := &gsheet.ValueRange{Range: rng, MajorDimension: "ROWS", Values: toValues(req.Grid())}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	slog.DebugContext(ctx, "Range updated", "range", rng, "updated_cells", resp.UpdatedCells)
	return nil
}

func (c *Client) ClearRange(ctx context.Context, sheet string, rangeA1 string) error {
	if c.svc == nil {
		return errNoService
	}
	rng := a1(sheet, rangeA1)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// quoteSheet wraps a title in single quotes, doubling embedded quotes, so
// names with spaces such as "Belanja Barang dan Jasa" resolve.
func quoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func a1(sheet, rng string) string { return quoteSheet(sheet) + "!" + rng }

func toRawSheet(values [][]any) core.RawSheet {
	out := make(core.RawSheet, len(values))
	for i, row := range values {
		out[i] = toStrings(row)
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}

func toValues(grid [][]string) [][]any {
	out := make([][]any, len(grid))
	for i, row := range grid {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}
