package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"barjas/internal/core"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got: %v", err)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		env     map[string]string
		want    string
		wantErr bool
	}{
		{name: "inline wins", env: map[string]string{"GOOGLE_SERVICE_ACCOUNT_JSON": `{"inline":true}`, "GOOGLE_SERVICE_ACCOUNT_FILE": path}, want: `{"inline":true}`},
		{name: "file", env: map[string]string{"GOOGLE_SERVICE_ACCOUNT_FILE": path}, want: `{"type":"service_account"}`},
		{name: "application default path", env: map[string]string{"GOOGLE_APPLICATION_CREDENTIALS": path}, want: `{"type":"service_account"}`},
		{name: "unreadable file", env: map[string]string{"GOOGLE_SERVICE_ACCOUNT_FILE": filepath.Join(dir, "missing.json")}, wantErr: true},
		{name: "nothing set", env: map[string]string{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
				t.Setenv(k, tt.env[k])
			}
			got, err := credentialsFromEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil || string(got) != tt.want {
				t.Fatalf("got %q, %v", got, err)
			}
		})
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	ctx := context.Background()

	if _, err := c.ListWorksheets(ctx); !errors.Is(err, errNoService) {
		t.Errorf("ListWorksheets: %v", err)
	}
	if _, err := c.ReadAll(ctx, "bun"); !errors.Is(err, errNoService) {
		t.Errorf("ReadAll: %v", err)
	}
	if err := c.WriteRange(ctx, "bun", core.WriteRequest{Range: "A5:A5"}); !errors.Is(err, errNoService) {
		t.Errorf("WriteRange: %v", err)
	}
	if err := c.ClearRange(ctx, "bun", "A5:A6"); !errors.Is(err, errNoService) {
		t.Errorf("ClearRange: %v", err)
	}
}

func TestA1Quoting(t *testing.T) {
	tests := map[string]string{
		"bun":                     "'bun'!A5:C6",
		"Belanja Barang dan Jasa": "'Belanja Barang dan Jasa'!A5:C6",
		"Jum'at":                  "'Jum''at'!A5:C6",
	}
	for sheet, want := range tests {
		if got := a1(sheet, "A5:C6"); got != want {
			t.Errorf("a1(%q) = %q, want %q", sheet, got, want)
		}
	}
}

func TestToRawSheet(t *testing.T) {
	values := [][]any{
		{"NO", "NAMA PEKERJAAN", "NILAI"},
		{},
		{1.0, "Jalan", "1,500,000", nil},
	}
	got := toRawSheet(values)
	want := core.RawSheet{
		{"NO", "NAMA PEKERJAAN", "NILAI"},
		{},
		{"1", "Jalan", "1,500,000", ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("toRawSheet = %#v, want %#v", got, want)
	}
}

func TestToValues(t *testing.T) {
	got := toValues([][]string{{"a", ""}, {"1500", "2025-01-02"}})
	want := [][]any{{"a", ""}, {"1500", "2025-01-02"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("toValues = %#v", got)
	}
}
