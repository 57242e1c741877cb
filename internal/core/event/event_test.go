package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestBuffer_RecordStampsIDAndTime(t *testing.T) {
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	buf := NewBuffer(func() time.Time { return now })

	buf.Record(New("LeaveApprovedEvent", "leave", "l-1", snapshot{ID: "l-1"}))

	events := buf.Events()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, now, events[0].OccurredAt)
	assert.Equal(t, []string{"LeaveApprovedEvent"}, buf.Names())
}

func TestBuffer_RecordKeepsExplicitValues(t *testing.T) {
	buf := NewBuffer(nil)
	at := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	buf.Record(Event{ID: "fixed", Name: "X", OccurredAt: at})

	e := buf.Events()[0]
	assert.Equal(t, "fixed", e.ID)
	assert.Equal(t, at, e.OccurredAt)
}

func TestBuffer_Drain(t *testing.T) {
	buf := NewBuffer(nil)
	buf.Record(New("A", "x", "1", nil))
	buf.Record(New("B", "x", "1", nil))

	drained := buf.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "A", drained[0].Name)
	assert.Equal(t, 0, buf.Len())
}

func TestBuffer_Flush(t *testing.T) {
	t.Run("clears on success", func(t *testing.T) {
		buf := NewBuffer(nil)
		buf.Record(New("A", "x", "1", nil))

		var got []Event
		err := buf.Flush(context.Background(), PublisherFunc(func(_ context.Context, events ...Event) error {
			got = append(got, events...)
			return nil
		}))
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, 0, buf.Len())
	})

	t.Run("keeps events on failure", func(t *testing.T) {
		buf := NewBuffer(nil)
		buf.Record(New("A", "x", "1", nil))

		boom := errors.New("boom")
		err := buf.Flush(context.Background(), PublisherFunc(func(context.Context, ...Event) error { return boom }))
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, buf.Len())
	})

	t.Run("no-op when empty", func(t *testing.T) {
		buf := NewBuffer(nil)
		called := false
		err := buf.Flush(context.Background(), PublisherFunc(func(context.Context, ...Event) error {
			called = true
			return nil
		}))
		require.NoError(t, err)
		assert.False(t, called)
	})
}

func TestEncode(t *testing.T) {
	at := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	env, err := Encode(Event{
		ID:            "evt-1",
		Name:          "TrainingStartedEvent",
		AggregateType: "training",
		AggregateID:   "t-1",
		OccurredAt:    at,
		Entity:        snapshot{ID: "t-1", Status: "in_progress"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t-1","status":"in_progress"}`, string(env.Payload))
	assert.Equal(t, "training:t-1", env.Key())
	assert.Equal(t, at, env.OccurredAt)

	_, err = Encode(Event{Name: "Bad", Entity: make(chan int)})
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.Publish(context.Background(), New("A", "x", "1", nil)))
}
