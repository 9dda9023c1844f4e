package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type fakeReader struct {
	ch        chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.ch:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) offsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type flakyHandler struct {
	mu       sync.Mutex
	failures map[string]int
	handled  []string
}

func (h *flakyHandler) Topic() string { return "snapshots" }

func (h *flakyHandler) Handle(_ context.Context, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := string(data)
	if h.failures[key] > 0 {
		h.failures[key]--
		return errors.New("transient")
	}
	h.handled = append(h.handled, key)
	return nil
}

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "snapshots", "snappy")

	require.NoError(t, p.Publish(context.Background(), []byte("GME"), map[string]int{"a": 1}))
	require.NoError(t, p.PublishBatch(context.Background(), []Message{{Key: []byte("AMC"), Value: "raw"}}))

	msgs := w.written()
	require.Len(t, msgs, 2)
	assert.Equal(t, "GME", string(msgs[0].Key))
	assert.JSONEq(t, `{"a":1}`, string(msgs[0].Value))
	assert.Equal(t, "raw", string(msgs[1].Value))
}

func TestProducerWrapsWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "snapshots", "")
	err := p.Publish(context.Background(), nil, "x")
	assert.ErrorContains(t, err, "broker down")
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	reader := &fakeReader{ch: make(chan kafka.Message, 4)}
	dlq := &fakeWriter{}
	h := &flakyHandler{failures: map[string]int{"a": 1, "poison": 100}}

	cfg := defaultConsumerConfig()
	cfg.RetryMax = 2
	cfg.BackoffMin = time.Millisecond
	cfg.BackoffMax = 2 * time.Millisecond
	c := newConsumer(cfg, h, reader, dlq, nil)

	reader.ch <- kafka.Message{Offset: 1, Value: []byte("a")}
	reader.ch <- kafka.Message{Offset: 2, Value: []byte("poison")}
	reader.ch <- kafka.Message{Offset: 3, Value: []byte("b")}

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return len(reader.offsets()) == 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	assert.Equal(t, []int64{1, 2, 3}, reader.offsets())
	assert.Equal(t, []string{"a", "b"}, h.handled)
	require.Len(t, dlq.written(), 1)
	assert.Equal(t, "poison", string(dlq.written()[0].Value))
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, time.Second, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
}
