package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HypeRadar/internal/domain/models"
	pkgkafka "HypeRadar/pkg/kafka"
)

type captureWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaHistoryPublishesKeyedSnapshot(t *testing.T) {
	w := &captureWriter{}
	reader := NewMemoryHistoryLog(time.Hour)
	log := NewKafkaHistoryLog(pkgkafka.NewProducerWithWriter(w, "hyperadar.snapshots", ""), reader)

	ts := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, log.AppendHistory(context.Background(), &models.Snapshot{
		CycleID: "c1", Ticker: "GME", AlertScore: 7.1, AlertLevel: models.AlertCritical, Timestamp: ts,
	}))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "GME", string(w.msgs[0].Key))
	var got models.Snapshot
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, models.AlertCritical, got.AlertLevel)
	assert.Equal(t, "c1", got.CycleID)

	snaps, err := log.ReadHistory(context.Background(), "GME", time.Hour)
	require.NoError(t, err)
	assert.Empty(t, snaps, "reads come from the consumer-filled store")

	require.NoError(t, log.Close())
	assert.True(t, w.closed)
}
