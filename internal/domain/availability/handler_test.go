package availability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func checkRequest(f *fixture, start, end string) *http.Request {
	q := url.Values{}
	q.Set("professional_id", f.profID.String())
	q.Set("service_id", f.serviceID.String())
	q.Set("clinic_id", f.clinicID.String())
	q.Set("start", start)
	q.Set("end", end)
	return httptest.NewRequest(http.MethodGet, "/availability?"+q.Encode(), nil)
}

func TestHandler_Check(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.putRule(t, time.Monday, nil)
	h := NewHandler(f.eval)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(checkRequest(f, "2026-03-02T12:30:00Z", "2026-03-02T13:00:00Z"), rec)
	if err := h.Check(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var d Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.OK || d.Reason != ReasonOnBreak {
		t.Errorf("expected on_break, got %+v", d)
	}
}

func TestHandler_Check_BadInput(t *testing.T) {
	f := newFixture(t, time.UTC)
	h := NewHandler(f.eval)
	e := echo.New()

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"end before start", checkRequest(f, "2026-03-02T13:00:00Z", "2026-03-02T12:30:00Z")},
		{"bad start", checkRequest(f, "monday", "2026-03-02T12:30:00Z")},
		{"missing ids", httptest.NewRequest(http.MethodGet, "/availability?professional_id="+uuid.New().String(), nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Check(e.NewContext(tt.req, httptest.NewRecorder()))
			httpErr, ok := err.(*echo.HTTPError)
			if !ok || httpErr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %v", err)
			}
		})
	}
}
