package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func testProducer(w messageWriter) *Producer {
	return &Producer{writer: w, topic: "assessment-events", logger: slog.Default()}
}

func TestPublishBatchEncodesJSON(t *testing.T) {
	w := &recordingWriter{}
	p := testProducer(w)

	err := p.PublishBatch(context.Background(), []Event{
		{Key: "5", Value: map[string]int{"predict_id": 1}},
		{Key: "6", Value: map[string]int{"predict_id": 2}},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "5", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"predict_id":2}`, string(w.msgs[1].Value))

	require.NoError(t, p.PublishBatch(context.Background(), nil))
	assert.Len(t, w.msgs, 2)
}

func TestPublishErrors(t *testing.T) {
	w := &recordingWriter{}
	p := testProducer(w)

	err := p.PublishBatch(context.Background(), []Event{{Key: "ok", Value: 1}, {Key: "x", Value: make(chan int)}})
	assert.ErrorContains(t, err, "marshaling event 1")
	assert.Empty(t, w.msgs)

	w.err = errors.New("leader not available")
	err = p.PublishBatch(context.Background(), []Event{{Key: "x", Value: 1}})
	assert.ErrorIs(t, err, w.err)
}

func TestPingWithoutBrokers(t *testing.T) {
	assert.Error(t, testProducer(&recordingWriter{}).Ping(context.Background()))
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Disease string `json:"top_disease"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"top_disease":"Migraine"}`))
	require.NoError(t, err)
	assert.Equal(t, "Migraine", got.Disease)

	_, err = DecodeJSON[payload]([]byte(`not json`))
	assert.Error(t, err)
}
