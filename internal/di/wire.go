//go:build wireinject
// +build wireinject

package di

import (
	domsvc "HypeRadar/internal/domain/service"
	"HypeRadar/internal/services/scoring"
	"HypeRadar/pkg/config"
	"HypeRadar/pkg/server"

	"github.com/google/wire"
)

var scoringSet = wire.NewSet(
	ProvideScoringConfig,
	ProvideScorer,
	ProvideMoverPredictor,
	ProvideHypeAnalyzer,
	wire.Bind(new(domsvc.SignalScorer), new(*scoring.Scorer)),
	wire.Bind(new(domsvc.MoverPredictor), new(*scoring.MoverPredictor)),
	wire.Bind(new(domsvc.HypeAnalyzer), new(*scoring.HypeAnalyzer)),
)

var providerSet = wire.NewSet(
	ProvideYahoo,
	ProvideFinnhub,
	ProvideApeWisdom,
	ProvidePolymarket,
	ProvideProviders,
	ProvideSampleCollector,
)

var storageSet = wire.NewSet(
	ProvideRedisCache,
	ProvideSharedCache,
	ProvideScoreStore,
	ProvideClickHouseClient,
	ProvideCHHistoryLog,
	ProvideHistoryLog,
	ProvideSnapshotConsumer,
)

var notifySet = wire.NewSet(
	ProvideDispatcher,
	ProvideNotifyQueue,
	ProvideNotifier,
)

// InitializeApp wires every dependency from cfg. The cleanup closes stores
// and clients in reverse construction order.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCacheOptions,
		ProvideWatchlist,

		scoringSet,
		providerSet,
		storageSet,
		notifySet,

		ProvideHub,
		ProvideRefreshCycle,
		ProvideAlertService,
		ProvideHypeService,
		ProvideMacroService,
		ProvideThematicService,
		ProvideStockService,
		ProvideDashboardHandler,
		ProvideHTTPServer,
		ProvideScheduler,
		ProvideApp,
	)
	return nil, nil, nil
}
