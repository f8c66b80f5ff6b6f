package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxBodyBytes bounds edit and table-replace bodies.
const maxBodyBytes = 4 << 20

// RequestBodyParser reads a JSON object or a form-encoded body once.
// HTMX posts forms; the grid widget posts JSON.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		dec := json.NewDecoder(bytes.NewReader(p.body))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Has reports whether key was sent, even with an empty value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// Get returns the trimmed value of key with control characters removed.
func (p *RequestBodyParser) Get(key string) string {
	return strings.TrimSpace(sanitizeInput(p.value(key)))
}

// GetUntrimmed keeps surrounding spaces, for cell values typed by a user.
func (p *RequestBodyParser) GetUntrimmed(key string) string {
	return sanitizeInput(p.value(key))
}

func (p *RequestBodyParser) value(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return stringValue(val)
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// Int parses key as a non-negative integer.
func (p *RequestBodyParser) Int(key string) (int, error) {
	return parseIndex(key, p.Get(key))
}

func (p *RequestBodyParser) GetRaw() []byte { return p.body }

func (p *RequestBodyParser) IsJSON() bool { return p.jsonData != nil }

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseIndex parses a zero-based row or column index.
func parseIndex(name, s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, s)
	}
	return n, nil
}

// parseLimit reads ?limit=, clamped to [1, max].
func parseLimit(query url.Values, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(query.Get("limit")))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// sanitizeInput drops control characters except tab, newline and carriage
// return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
