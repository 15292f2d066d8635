package audit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ err error }

func (f failingSink) Record(context.Context, Event) error { return f.err }

func TestFanout_DeliversToEverySink(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	slotID := uuid.New()

	err := Fanout{a, b}.Record(context.Background(), Event{Type: SlotHeld, SlotID: slotID, Version: 2})
	require.NoError(t, err)

	require.Len(t, a.Events(), 1)
	require.Len(t, b.Events(), 1)
	assert.Equal(t, a.Events()[0].ID, b.Events()[0].ID, "sinks see the same stamped event")
	assert.False(t, a.Events()[0].RecordedAt.IsZero())
}

func TestFanout_JoinsErrors(t *testing.T) {
	rec := NewRecorder()
	boom := errors.New("boom")

	err := Fanout{failingSink{boom}, rec}.Record(context.Background(), Event{Type: SlotReleased, SlotID: uuid.New()})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.Events(), 1, "a failing sink does not stop the others")
}

func TestRecorder_ListBySlot(t *testing.T) {
	rec := NewRecorder()
	ctx := context.Background()
	slotID, other := uuid.New(), uuid.New()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, rec.Record(ctx, Event{Type: SlotHeld, SlotID: slotID, RecordedAt: base}))
	require.NoError(t, rec.Record(ctx, Event{Type: SlotHeld, SlotID: other, RecordedAt: base}))
	require.NoError(t, rec.Record(ctx, Event{Type: SlotConfirmed, SlotID: slotID, RecordedAt: base.Add(time.Minute)}))

	events, err := rec.ListBySlot(ctx, slotID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []EventType{SlotHeld, SlotConfirmed}, rec.Types(slotID))

	events, err = rec.ListBySlot(ctx, slotID, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, SlotHeld, events[0].Type)
}

func TestLogSink_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: zerolog.New(&buf)}
	until := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)

	err := sink.Record(context.Background(), Event{
		Type: SlotHeld, SlotID: uuid.New(), ClientID: "c-1", Version: 2, HeldUntil: &until,
	})
	require.NoError(t, err)

	out := buf.String()
	for _, want := range []string{`"event":"slot.held"`, `"client_id":"c-1"`, `"version":2`, `"held_until"`} {
		assert.True(t, strings.Contains(out, want), "log line missing %s: %s", want, out)
	}
}
