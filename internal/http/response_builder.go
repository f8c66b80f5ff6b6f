// Package http serves the dashboard, the analysis pages and the JSON API.
//
// HTMX fragments are built with HTMXResponseBuilder so every handler sends
// its HX-Trigger events in the same shape.
package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// HTMXResponseBuilder collects status, headers, HX-Trigger events and an
// HTML body, then writes them in one go.
type HTMXResponseBuilder struct {
	status int
	header http.Header
	events map[string]any
	body   []byte
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status: http.StatusOK,
		header: make(http.Header),
		events: make(map[string]any),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// Trigger adds a client event to HX-Trigger. A later event with the same
// name replaces the earlier one.
func (b *HTMXResponseBuilder) Trigger(name string, detail any) *HTMXResponseBuilder {
	b.events[name] = detail
	return b
}

// TriggerTableChanged tells the page that the session copy of sheet changed
// and has unsaved edits.
func (b *HTMXResponseBuilder) TriggerTableChanged(sheet string, rows int) *HTMXResponseBuilder {
	return b.Trigger("table:changed", map[string]any{"sheet": sheet, "rows": rows})
}

// TriggerSheetSaved refreshes the history panel after a write-back.
func (b *HTMXResponseBuilder) TriggerSheetSaved(sheet, rangeA1 string) *HTMXResponseBuilder {
	return b.Trigger("sheet:saved", map[string]string{"sheet": sheet, "range": rangeA1})
}

// NotificationType is also the CSS modifier of a message element.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// TriggerNotification asks app.js to show a toast for durationMs.
func (b *HTMXResponseBuilder) TriggerNotification(kind NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger("show-notification", map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5000)
}

// Retarget swaps the response into selector instead of the element that
// issued the request.
func (b *HTMXResponseBuilder) Retarget(selector string) *HTMXResponseBuilder {
	b.header.Set("HX-Retarget", selector)
	b.header.Set("HX-Reswap", "innerHTML")
	return b
}

func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = []byte(html)
	return b
}

// Write sends the built response. Events that fail to encode are dropped
// rather than failing the response.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	dst := w.Header()
	for name, values := range b.header {
		dst[name] = values
	}
	if len(b.events) > 0 {
		if enc, err := json.Marshal(b.events); err == nil {
			dst.Set("HX-Trigger", string(enc))
		}
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// MessageFragment renders the single message element that status fragments
// swap into #messages. The message is escaped.
func MessageFragment(kind NotificationType, message string) string {
	return `<div class="message message--` + string(kind) + `" role="status">` + template.HTMLEscapeString(message) + `</div>`
}

// ErrorResponse builds an error fragment retargeted to the message area so
// the table the user is editing stays on screen.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(status).
		Retarget("#messages").
		BodyHTML(MessageFragment(NotificationError, message))
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
