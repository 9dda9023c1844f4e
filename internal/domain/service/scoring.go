package service

import (
	"time"

	"HypeRadar/internal/domain/models"
)

// SignalScorer turns one raw sample into an early-warning score.
type SignalScorer interface {
	Score(sample *models.RawSignalSample, now time.Time) (*models.SignalScore, []models.DataQualityIssue)
}

// HypeAnalyzer scores a full batch relative to itself.
type HypeAnalyzer interface {
	Analyze(batch []models.HypeInput, now time.Time) []*models.HypeScore
}

// MoverPredictor scores a full batch; momentum is normalized across it.
type MoverPredictor interface {
	Predict(batch []models.MoverInput, now time.Time) []*models.MoverScore
}
