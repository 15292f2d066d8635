package schedulerule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbook/slotengine/pkg/civil"
)

func TestService_PutGetList(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepo())
	r := mondayRule()

	require.NoError(t, svc.Put(ctx, r))
	assert.NotEqual(t, uuid.Nil, r.ID)

	got, err := svc.Get(ctx, r.ProfessionalID, time.Monday)
	require.NoError(t, err)
	assert.Equal(t, r.StartTime, got.StartTime)

	friday := mondayRule()
	friday.ProfessionalID = r.ProfessionalID
	friday.Weekday = time.Friday
	require.NoError(t, svc.Put(ctx, friday))

	items, err := svc.List(ctx, r.ProfessionalID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, time.Monday, items[0].Weekday)
	assert.Equal(t, time.Friday, items[1].Weekday)
}

func TestService_PutReplacesSameWeekday(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepo())
	r := mondayRule()
	require.NoError(t, svc.Put(ctx, r))
	firstID := r.ID

	replacement := mondayRule()
	replacement.ProfessionalID = r.ProfessionalID
	replacement.EndTime = civil.NewTimeOfDay(16, 0)
	require.NoError(t, svc.Put(ctx, replacement))
	assert.Equal(t, firstID, replacement.ID)

	got, err := svc.Get(ctx, r.ProfessionalID, time.Monday)
	require.NoError(t, err)
	assert.Equal(t, civil.NewTimeOfDay(16, 0), got.EndTime)
}

func TestService_PutRejectsInvalid(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	r := mondayRule()
	r.EndTime = r.StartTime
	assert.Error(t, svc.Put(context.Background(), r))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepo())
	r := mondayRule()
	require.NoError(t, svc.Put(ctx, r))

	require.NoError(t, svc.Delete(ctx, r.ProfessionalID, time.Monday))
	_, err := svc.Get(ctx, r.ProfessionalID, time.Monday)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, r.ProfessionalID, time.Monday), ErrNotFound)
}
