package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	first := &Recorder{}
	last := &Recorder{}
	boom := errors.New("boom")
	failing := SinkFunc(func(context.Context, Event) error { return boom })

	err := Multi{first, failing, nil, last}.Publish(context.Background(), Event{Type: SessionEnqueued, SessionID: "s1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, first.Events(), 1)
	assert.Len(t, last.Events(), 1)
}

func TestRecorderForSession(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	_ = r.Publish(ctx, Event{Type: SessionEnqueued, SessionID: "a"})
	_ = r.Publish(ctx, Event{Type: SessionEnqueued, SessionID: "b"})
	_ = r.Publish(ctx, Event{Type: SessionCalled, SessionID: "a"})

	assert.Equal(t, []Type{SessionEnqueued, SessionEnqueued, SessionCalled}, r.Types())
	got := r.ForSession("a")
	require.Len(t, got, 2)
	assert.Equal(t, SessionCalled, got[1].Type)
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.Publish(context.Background(), Event{}))
}
