package servicepolicy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(NewService(NewMemoryRepo())), echo.New()
}

func TestHandler_Put(t *testing.T) {
	h, e := newTestHandler()
	clinicID := uuid.New()
	body := `{"pre_buffer_minutes":5,"post_buffer_minutes":10,"allow_simultaneous":true,"max_simultaneous":3}`
	req := httptest.NewRequest(http.MethodPut, "/?clinic_id="+clinicID.String(), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("service_id")
	c.SetParamValues(uuid.New().String())

	if err := h.Put(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Put_MissingClinic(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("service_id")
	c.SetParamValues(uuid.New().String())

	err := h.Put(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_Get(t *testing.T) {
	h, e := newTestHandler()
	p := newPolicy()
	if err := h.svc.Put(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/?clinic_id="+p.ClinicID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("service_id")
	c.SetParamValues(p.ServiceID.String())
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/?clinic_id="+uuid.New().String(), nil)
	c = e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("service_id")
	c.SetParamValues(p.ServiceID.String())
	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other clinic, got %v", err)
	}
}
