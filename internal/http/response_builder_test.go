package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyHTML([]byte("<p>ok</p>")).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger should be absent without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerAlert("Erreur lors de la suppression", "Réessayez").
		TriggerLedgerChanged().
		Write(w)

	var got map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &got); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if _, ok := got[EventLedgerChanged]; !ok {
		t.Errorf("missing %s: %v", EventLedgerChanged, got)
	}

	var alert struct{ Message string }
	if err := json.Unmarshal(got[EventAlert], &alert); err != nil {
		t.Fatalf("alert payload: %v", err)
	}
	if alert.Message != "Erreur lors de la suppression\nRéessayez" {
		t.Errorf("alert message = %q", alert.Message)
	}
}

func TestHTMXResponseBuilder_TriggerHeaderIsASCII(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().TriggerAlert("Ouvrier non trouvé", "Trop de requêtes… 💶").Write(w)

	raw := w.Header().Get("HX-Trigger")
	for i := 0; i < len(raw); i++ {
		if raw[i] >= 0x80 {
			t.Fatalf("HX-Trigger has non-ASCII byte at %d: %q", i, raw)
		}
	}
	if !strings.Contains(raw, `trouv\u00e9`) {
		t.Errorf("HX-Trigger = %q, want escaped é", raw)
	}

	var got map[string]struct{ Message string }
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if msg := got[EventAlert].Message; msg != "Ouvrier non trouvé\nTrop de requêtes… 💶" {
		t.Errorf("alert message = %q", msg)
	}
}

func TestHTMXResponseBuilder_NoAlertWithoutMessages(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().TriggerAlert().Write(w)
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("HX-Trigger = %q, want empty", w.Header().Get("HX-Trigger"))
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		status  int
	}{
		{"not found", NotFoundError("Ouvrier <non> trouvé"), http.StatusNotFound},
		{"internal", InternalServerError("Erreur interne du serveur"), http.StatusInternalServerError},
		{"generic", ErrorResponse(http.StatusTooManyRequests, "Trop de requêtes"), http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Body.String(), `class="error"`) {
				t.Errorf("body = %q", w.Body.String())
			}
			if strings.Contains(w.Body.String(), "<non>") {
				t.Error("message must be escaped")
			}
			if !strings.Contains(w.Header().Get("HX-Trigger"), EventAlert) {
				t.Error("errors should raise an alert")
			}
		})
	}
}

func TestConflictResponse(t *testing.T) {
	w := httptest.NewRecorder()
	ConflictResponse().Write(w)
	if w.Code != http.StatusConflict || w.Header().Get("HX-Reswap") != "none" || w.Body.Len() != 0 {
		t.Errorf("got %d reswap=%q body=%q", w.Code, w.Header().Get("HX-Reswap"), w.Body.String())
	}
}
