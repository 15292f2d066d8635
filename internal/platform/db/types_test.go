package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clinicbook/slotengine/pkg/civil"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert slot: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation})
	if !IsUniqueViolation(err) {
		t.Error("expected wrapped unique violation to be detected")
	}
	if IsUniqueViolation(errors.New("other")) {
		t.Error("plain error reported as unique violation")
	}
	if IsForeignKeyViolation(err) {
		t.Error("unique violation reported as foreign key violation")
	}
}

func TestTimeOfDayRoundTrip(t *testing.T) {
	tod := civil.NewTimeOfDay(12, 30)
	p := TimeParam(tod)
	if !p.Valid || p.Microseconds != int64(12*60+30)*60_000_000 {
		t.Fatalf("unexpected pg time %+v", p)
	}
	if TimeOfDay(p) != tod {
		t.Errorf("TimeOfDay() = %s, want %s", TimeOfDay(p), tod)
	}
	if NullableTimeOfDay(pgtype.Time{}) != nil {
		t.Error("expected nil for NULL time")
	}
	if NullableTimeParam(nil).Valid {
		t.Error("expected invalid pg time for nil")
	}
}
