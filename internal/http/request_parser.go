package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"paie/internal/view"
)

const maxFormBytes = 64 << 10

// RequestBodyParser reads a form submitted either url-encoded (plain HTMX)
// or as JSON (the json-enc extension).
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body once, up to maxFormBytes.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxFormBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
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
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns the sanitized value of key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// WorkerDraft maps the add-worker form fields.
func (p *RequestBodyParser) WorkerDraft() view.WorkerDraft {
	return view.WorkerDraft{
		Name:     p.Get("name"),
		Position: p.Get("position"),
		Phone:    p.Get("phone"),
	}
}

// TransactionDraft maps the add-transaction form fields.
func (p *RequestBodyParser) TransactionDraft() view.TransactionDraft {
	return view.TransactionDraft{
		WorkerID:    p.Get("worker_id"),
		Type:        p.Get("type"),
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
	}
}

// confirmed reports whether the user accepted the page's confirmation
// dialog. htmx 1.x sends the hx-vals of a DELETE in the body and 2.x in
// the query string; the body wins when both carry the flag.
func confirmed(r *http.Request, p *RequestBodyParser) bool {
	v := r.URL.Query().Get("confirmed")
	if p != nil && p.Parse() == nil {
		if fromBody := p.Get("confirmed"); fromBody != "" {
			v = fromBody
		}
	}
	ok, _ := strconv.ParseBool(strings.TrimSpace(v))
	return ok
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
