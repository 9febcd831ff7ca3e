package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func header(msg kafka.Message, key string) string {
	return NewHeaderCarrier(&msg.Headers).Get(key)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "wokeornot.review.created", Topic("review", "created"))
}

func TestNewEvent(t *testing.T) {
	type payload struct {
		ReviewID string `json:"review_id"`
		Rating   int    `json:"rating"`
	}
	ev, err := NewEvent("review.created", "c-1", "content", "wokeornot", payload{ReviewID: "r-1", Rating: 7})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, 1, ev.Version)
	assert.WithinDuration(t, time.Now().UTC(), ev.Timestamp, 2*time.Second)

	var got payload
	require.NoError(t, json.Unmarshal(ev.Data, &got))
	assert.Equal(t, 7, got.Rating)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("x", "a", "b", "c", make(chan int))
	assert.Error(t, err)
}

func TestProducer_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, nil, discardLogger())

	ev, err := NewEvent("review.created", "content-1", "content", "wokeornot", map[string]int{"rating": 5})
	require.NoError(t, err)
	ev.WithCorrelationID("corr-1")

	topic := Topic("review", "created")
	before := testutil.ToFloat64(producerPublished.WithLabelValues(topic))
	require.NoError(t, p.Publish(context.Background(), topic, ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, topic, msg.Topic)
	assert.Equal(t, "content-1", string(msg.Key))
	assert.Equal(t, "review.created", header(msg, "event_type"))
	assert.Equal(t, "corr-1", header(msg, "correlation_id"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.EventID, decoded.EventID)
	assert.Equal(t, before+1, testutil.ToFloat64(producerPublished.WithLabelValues(topic)))
}

func TestProducer_PublishInjectsTraceContext(t *testing.T) {
	prevProp := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prevProp) })

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	w := &recordingWriter{}
	p := NewProducerWithWriter(w, nil, discardLogger())
	ev, err := NewEvent("review.deleted", "c-2", "content", "wokeornot", struct{}{})
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, Topic("review", "deleted"), ev))

	assert.Contains(t, header(w.msgs[0], "traceparent"), span.SpanContext().TraceID().String())
}

func TestProducer_PublishError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, nil, discardLogger())
	ev, err := NewEvent("review.updated", "c-3", "content", "wokeornot", struct{}{})
	require.NoError(t, err)

	topic := Topic("review", "updated")
	before := testutil.ToFloat64(producerErrors.WithLabelValues(topic))
	err = p.Publish(context.Background(), topic, ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, before+1, testutil.ToFloat64(producerErrors.WithLabelValues(topic)))
}

func TestProducer_Close(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, NewProducerWithWriter(w, nil, discardLogger()).Close())
	assert.True(t, w.closed)
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := NewHeaderCarrier(&headers)

	assert.Equal(t, "1", c.Get("a"))
	assert.Empty(t, c.Get("missing"))

	c.Set("a", "2")
	c.Set("b", "3")
	assert.Equal(t, "2", c.Get("a"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
	assert.Len(t, headers, 2)
}
