package appointment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicbook/slotengine/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(NewService(NewMemoryRepo())), echo.New()
}

func getAs(t *testing.T, h *Handler, e *echo.Echo, id uuid.UUID, clientID string, roles ...string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), clientID, "", roles))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	return rec, h.Get(c)
}

func TestHandler_Get(t *testing.T) {
	h, e := newTestHandler()
	a := newAppointment(uuid.New(), 1)
	if err := h.svc.Book(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	rec, err := getAs(t, h, e, a.ID, "client-a", auth.RoleClient)
	if err != nil {
		t.Fatalf("owner should read: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	if _, err := getAs(t, h, e, a.ID, "staff-1", auth.RoleStaff); err != nil {
		t.Errorf("staff should read: %v", err)
	}

	_, err = getAs(t, h, e, a.ID, "client-b", auth.RoleClient)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another client, got %v", err)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, e := newTestHandler()
	_, err := getAs(t, h, e, uuid.New(), "client-a")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}
