// Package backend builds the worksheet store selected by DATA_BACKEND.
package backend

import (
	"context"

	"barjas/internal/sheets"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

type Result struct {
	Store   sheets.Store
	Cleanup CleanupFunc
}

// Factory creates stores from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	// Google Sheets; credentials are resolved from the environment.
	GoogleSpreadsheetID string

	// xlsx; a missing file is created from the demo workbook.
	XLSXPath string

	// memory; CSV seed files, or the demo workbook when none exist.
	DataDirectory string
}

type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	XLSXBackend   BackendType = "xlsx"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SheetsBackend, XLSXBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
