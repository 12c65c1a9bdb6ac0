// Package notify delivers templated messages on behalf of the booking
// engine. Delivery is a side channel: callers log failures and carry on.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"sync"
)

// Template keys.
const (
	TemplateBookingConfirmation = "booking-confirmation"
	TemplateBookingCancelled    = "booking-cancelled"
	TemplateDeleteCode          = "delete-experience-code"
)

// Attachment is a file handed to the notifier. Path points at a temporary
// file owned by the caller, valid only for the duration of Send.
type Attachment struct {
	Filename    string
	ContentType string
	Path        string
}

// Message is a templated notification.
type Message struct {
	To          string
	Subject     string
	Template    string
	Vars        map[string]any
	Attachments []Attachment
}

// Notifier sends messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

//go:embed templates/*.html
var templateFS embed.FS

var (
	parseOnce sync.Once
	parsed    *template.Template
	parseErr  error
)

func templates() (*template.Template, error) {
	parseOnce.Do(func() {
		parsed, parseErr = template.New("notify").Funcs(template.FuncMap{
			// Credential images are data URLs minted by the ticket codec.
			"safeURL": func(s string) template.URL { return template.URL(s) },
		}).ParseFS(templateFS, "templates/*.html")
	})
	return parsed, parseErr
}

// Render executes the template named key with vars.
func Render(key string, vars map[string]any) (string, error) {
	t, err := templates()
	if err != nil {
		return "", fmt.Errorf("parse templates: %w", err)
	}
	tmpl := t.Lookup(key + ".html")
	if tmpl == nil {
		return "", fmt.Errorf("unknown template %q", key)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}
	return buf.String(), nil
}
