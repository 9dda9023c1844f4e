package repository

import (
	"context"
	"fmt"
	"time"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	pkgkafka "HypeRadar/pkg/kafka"
)

// KafkaHistoryLog publishes snapshots to a topic keyed by ticker. Reads go
// to the ClickHouse table the snapshot consumer fills.
type KafkaHistoryLog struct {
	producer *pkgkafka.Producer
	reader   domrepo.HistoryLog
}

func NewKafkaHistoryLog(producer *pkgkafka.Producer, reader domrepo.HistoryLog) *KafkaHistoryLog {
	return &KafkaHistoryLog{producer: producer, reader: reader}
}

var _ domrepo.HistoryLog = (*KafkaHistoryLog)(nil)

func (k *KafkaHistoryLog) Init(ctx context.Context) error {
	return k.reader.Init(ctx)
}

func (k *KafkaHistoryLog) AppendHistory(ctx context.Context, s *models.Snapshot) error {
	if err := k.producer.Publish(ctx, []byte(s.Ticker), s); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", s.Ticker, err)
	}
	return nil
}

func (k *KafkaHistoryLog) ReadHistory(ctx context.Context, ticker string, window time.Duration) ([]*models.Snapshot, error) {
	return k.reader.ReadHistory(ctx, ticker, window)
}

func (k *KafkaHistoryLog) Close() error {
	if err := k.producer.Close(); err != nil {
		return err
	}
	return k.reader.Close()
}
