package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/labstack/echo/v4"
)

func contextFor(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(contextFor("/"))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(contextFor("/?limit=50&offset=10"))
	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := FromContext(contextFor("/?limit=500"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_InvalidValues(t *testing.T) {
	p := FromContext(contextFor("/?limit=abc&offset=-5"))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit for invalid input, got %d", p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0 for negative input, got %d", p.Offset)
	}
}

func TestParams_Apply(t *testing.T) {
	query, _, err := New(10, 30).Apply(sq.Select("id").From("slot")).ToSql()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SELECT id FROM slot LIMIT 10 OFFSET 30"
	if query != want {
		t.Errorf("expected %q, got %q", want, query)
	}
}

func TestParams_Bounds(t *testing.T) {
	tests := []struct {
		p      Params
		n      int
		lo, hi int
	}{
		{Params{Limit: 10, Offset: 0}, 25, 0, 10},
		{Params{Limit: 10, Offset: 20}, 25, 20, 25},
		{Params{Limit: 10, Offset: 30}, 25, 25, 25},
		{Params{Limit: 10, Offset: 0}, 0, 0, 0},
	}
	for _, tt := range tests {
		lo, hi := tt.p.Bounds(tt.n)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("Bounds(%d) with %+v = [%d,%d), want [%d,%d)", tt.n, tt.p, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestNewResponse(t *testing.T) {
	items := []string{"a", "b"}
	resp := NewResponse(items, 5, 2, 0)
	if !resp.HasMore {
		t.Error("expected HasMore true")
	}
	resp = NewResponse(items, 2, 2, 0)
	if resp.HasMore {
		t.Error("expected HasMore false")
	}
}

func TestParams_HasNext(t *testing.T) {
	p := Params{Limit: 10, Offset: 10}
	if !p.HasNext(25) {
		t.Error("expected next page")
	}
	if p.HasNext(20) {
		t.Error("expected no next page")
	}
	if p.NextOffset() != 20 {
		t.Errorf("expected next offset 20, got %d", p.NextOffset())
	}
}
