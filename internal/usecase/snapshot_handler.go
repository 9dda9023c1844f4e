package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	pkgkafka "HypeRadar/pkg/kafka"
	pkgmetrics "HypeRadar/pkg/metrics"
)

// SnapshotHandler consumes published snapshots and appends them to the
// ClickHouse history table.
type SnapshotHandler struct {
	topic   string
	sink    domrepo.HistoryLog
	metrics domrepo.Metrics
}

func NewSnapshotHandler(topic string, sink domrepo.HistoryLog, metrics domrepo.Metrics) *SnapshotHandler {
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &SnapshotHandler{topic: topic, sink: sink, metrics: metrics}
}

var _ pkgkafka.MessageHandler = (*SnapshotHandler)(nil)

func (h *SnapshotHandler) Topic() string { return h.topic }

func (h *SnapshotHandler) Handle(ctx context.Context, b []byte) error {
	var s models.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		h.metrics.RecordPersistError("consume_decode")
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Ticker == "" {
		h.metrics.RecordPersistError("consume_decode")
		return fmt.Errorf("decode snapshot: empty ticker")
	}
	if err := h.sink.AppendHistory(ctx, &s); err != nil {
		h.metrics.RecordPersistError("consume_append")
		return err
	}
	return nil
}
