package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tweetcompare/internal/core"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		Body([]byte("test")).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
}

func TestHTMXResponseBuilder_ComparisonTrigger(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerComparisonUpdated(core.ComparisonRequest{YearA: 2020, YearB: 2022, Month: 3}).
		BodyHTML([]byte("<section></section>")).
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{`"comparison:updated"`, `"yearA":2020`, `"yearB":2022`, `"month":3`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHTMXResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		Status(http.StatusCreated).
		Write(w)

	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{
			name:       "unprocessable entity",
			builder:    UnprocessableEntityError("invalid month: 13"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `<div class="error">invalid month: 13</div>`,
		},
		{
			name:       "internal server error",
			builder:    InternalServerError("<b>broke</b>"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `<div class="error">&lt;b&gt;broke&lt;/b&gt;</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/comparison", nil)

	writeJSONError(w, r, http.StatusUnprocessableEntity, "invalid month: 0")

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Status code = %d", w.Code)
	}
	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "invalid month: 0" || body.Status != http.StatusUnprocessableEntity {
		t.Errorf("unexpected body %+v", body)
	}
}
