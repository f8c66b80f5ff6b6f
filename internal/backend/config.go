package backend

import (
	"errors"
	"fmt"

	"barjas/internal/config"
)

func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{
		Type:                backendType,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		XLSXPath:            appConfig.XLSXPath,
		DataDirectory:       appConfig.MemoryDataDir,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	switch c.Type {
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
	case XLSXBackend:
		if c.XLSXPath == "" {
			return errors.New("workbook path is required for xlsx backend")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types.
func GetBackendTypes() []BackendType {
	return []BackendType{SheetsBackend, XLSXBackend, MemoryBackend}
}

func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
