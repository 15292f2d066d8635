package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHasRole(t *testing.T) {
	tests := []struct {
		granted  []string
		required []string
		want     bool
	}{
		{[]string{RoleStaff}, []string{RoleStaff}, true},
		{[]string{RoleClient}, []string{RoleStaff}, false},
		{[]string{RoleAdmin}, []string{RoleStaff}, true},
		{[]string{" staff"}, []string{RoleStaff}, true},
		{nil, []string{RoleStaff}, false},
	}
	for _, tt := range tests {
		if got := HasRole(tt.granted, tt.required...); got != tt.want {
			t.Errorf("HasRole(%v, %v) = %v, want %v", tt.granted, tt.required, got, tt.want)
		}
	}
}

func requestWithRoles(roles []string, clientID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(context.Background(), clientID, "", roles))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireRole_Allowed(t *testing.T) {
	c, rec := requestWithRoles([]string{RoleStaff}, "staff-1")
	err := RequireRole(RoleStaff)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	c, _ := requestWithRoles([]string{RoleClient}, "client-1")
	err := RequireRole(RoleStaff)(func(c echo.Context) error { return nil })(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireClient(t *testing.T) {
	c, _ := requestWithRoles([]string{RoleClient}, "")
	err := RequireClient()(func(c echo.Context) error { return nil })(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}

	c, _ = requestWithRoles([]string{RoleClient}, "client-1")
	if err := RequireClient()(func(c echo.Context) error { return nil })(c); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
