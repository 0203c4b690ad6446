package command

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autito-icc/relay/internal/model"
)

func newCommand(directive string) *model.Command {
	return &model.Command{ID: directive, Directive: directive, Raw: directive, Source: model.CommandSourceWS}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: log.New(&buf, "", 0)}

	require.NoError(t, sink.Handle(context.Background(), newCommand("forward")))
	assert.Contains(t, buf.String(), "Command: forward")
}

func TestProcessor_FansOutInOrder(t *testing.T) {
	var calls []string
	first := SinkFunc(func(_ context.Context, cmd *model.Command) error {
		calls = append(calls, "first:"+cmd.Directive)
		return nil
	})
	second := SinkFunc(func(_ context.Context, cmd *model.Command) error {
		calls = append(calls, "second:"+cmd.Directive)
		return nil
	})

	p := NewProcessor(10, nil, first, second)
	require.NoError(t, p.Process(context.Background(), newCommand("STOP")))

	assert.Equal(t, []string{"first:STOP", "second:STOP"}, calls)
	assert.Equal(t, model.OutcomeLogged, p.Last().Outcome)
}

func TestProcessor_SinkFailureDoesNotStopOthers(t *testing.T) {
	boom := errors.New("boom")
	reached := false

	p := NewProcessor(10, nil,
		SinkFunc(func(context.Context, *model.Command) error { return boom }),
		SinkFunc(func(context.Context, *model.Command) error { reached = true; return nil }),
	)

	err := p.Process(context.Background(), newCommand("LEFT"))
	assert.ErrorIs(t, err, boom)
	assert.True(t, reached)
	assert.Equal(t, "LEFT", p.Last().Directive)
}

type queueDelivery struct {
	room int
	got  []string
}

func (q *queueDelivery) Handle(_ context.Context, cmd *model.Command) error {
	if len(q.got) == q.room {
		return errors.New("queue full")
	}
	q.got = append(q.got, cmd.Directive)
	return nil
}

func (q *queueDelivery) Outcome() model.CommandOutcome { return model.OutcomeQueued }

func TestProcessor_DeliversBeforeRecording(t *testing.T) {
	var recorded []*model.Command
	recorder := SinkFunc(func(_ context.Context, cmd *model.Command) error {
		// Recorders see the final outcome
		recorded = append(recorded, &model.Command{Directive: cmd.Directive, Outcome: cmd.Outcome})
		return nil
	})

	delivery := &queueDelivery{room: 1}
	p := NewProcessor(10, delivery, recorder)

	require.NoError(t, p.Process(context.Background(), newCommand("FORWARD")))
	err := p.Process(context.Background(), newCommand("LEFT"))
	require.Error(t, err)

	assert.Equal(t, []string{"FORWARD"}, delivery.got)
	require.Len(t, recorded, 2)
	assert.Equal(t, model.OutcomeQueued, recorded[0].Outcome)
	assert.Equal(t, model.OutcomeFailed, recorded[1].Outcome)

	// The dropped command is in the history but is not reported as the last one
	assert.Len(t, p.Recent(0), 2)
	assert.Equal(t, "FORWARD", p.Last().Directive)
}

func TestProcessor_ProcessViaOverridesDelivery(t *testing.T) {
	queued := &queueDelivery{room: 10}
	p := NewProcessor(10, queued)

	var sent []string
	direct := DeliveryFunc(func(_ context.Context, cmd *model.Command) error {
		sent = append(sent, cmd.Directive)
		return nil
	})

	cmd := newCommand("STOP")
	require.NoError(t, p.ProcessVia(context.Background(), cmd, direct))

	assert.Equal(t, []string{"STOP"}, sent)
	assert.Empty(t, queued.got)
	assert.Equal(t, model.OutcomeSent, cmd.Outcome)
}

func TestProcessor_LastSkipsOnlyFailedTail(t *testing.T) {
	p := NewProcessor(10, &queueDelivery{room: 0})
	require.Error(t, p.Process(context.Background(), newCommand("LEFT")))
	assert.Nil(t, p.Last())

	require.NoError(t, p.ProcessVia(context.Background(), newCommand("STOP"), nil))
	assert.Equal(t, "STOP", p.Last().Directive)
}

func TestProcessor_Recent(t *testing.T) {
	p := NewProcessor(3, nil)
	assert.Nil(t, p.Last())
	assert.Empty(t, p.Recent(0))

	for _, d := range []string{"A", "B", "C", "D"} {
		require.NoError(t, p.Process(context.Background(), newCommand(d)))
	}

	recent := p.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "D", recent[0].Directive)
	assert.Equal(t, "B", recent[2].Directive)

	recent = p.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "C", recent[1].Directive)
}
