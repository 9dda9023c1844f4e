package di

import (
	"context"
	"fmt"
	"time"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	domsvc "HypeRadar/internal/domain/service"
	"HypeRadar/internal/handler/api"
	"HypeRadar/internal/handler/ws"
	"HypeRadar/internal/repository"
	icache "HypeRadar/internal/service/cache"
	svcmetrics "HypeRadar/internal/service/metrics"
	"HypeRadar/internal/service/notify"
	"HypeRadar/internal/service/providers"
	"HypeRadar/internal/service/ratelimit"
	"HypeRadar/internal/services/scoring"
	"HypeRadar/internal/usecase"
	pkgcache "HypeRadar/pkg/cache"
	pkgch "HypeRadar/pkg/clickhouse"
	"HypeRadar/pkg/config"
	xhttp "HypeRadar/pkg/http"
	pkgkafka "HypeRadar/pkg/kafka"
	applogger "HypeRadar/pkg/logger"
	pkgmetrics "HypeRadar/pkg/metrics"
	"HypeRadar/pkg/postgres"
	"HypeRadar/pkg/queue"
	"HypeRadar/pkg/server"
	xutil "HypeRadar/pkg/util"
)

const (
	initTimeout        = 15 * time.Second
	memHistoryFloor    = 30 * 24 * time.Hour
	sharedCacheL1TTL   = time.Minute
	redisPoolSize      = 10
	redisMinIdleConns  = 2
	redisPoolTimeout   = 30 * time.Second
	clickhouseLifetime = 5 * time.Minute
)

// CacheOptions are passed to every in-process TTL cache.
type CacheOptions []icache.Option

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics returns the Prometheus recorder, or a no-op one when
// metrics are disabled.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return pkgmetrics.Nop{}
	}
	return pkgmetrics.New()
}

func ProvideCacheOptions(cfg *config.Config) CacheOptions {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return CacheOptions{icache.WithObserver(svcmetrics.NewCacheObserver())}
}

func ProvideWatchlist(cfg *config.Config) models.Watchlist {
	wl := make(models.Watchlist, 0, len(cfg.Watchlist))
	for _, w := range cfg.Watchlist {
		wl = append(wl, models.WatchlistEntry{
			Ticker:  w.Ticker,
			Sector:  w.Sector,
			Group:   w.Group,
			Aliases: w.Aliases,
		})
	}
	return wl
}

// ProvideScoringConfig layers the configured overrides on the built-in
// constants. Weight groups are replaced as a whole so a single zero weight
// can be configured on purpose.
func ProvideScoringConfig(cfg *config.Config) (scoring.Config, error) {
	sc := scoring.DefaultConfig()
	o := cfg.Scoring

	if o.Weights.Options+o.Weights.Volume+o.Weights.Social > 0 {
		sc.Weights = scoring.Weights{Options: o.Weights.Options, Volume: o.Weights.Volume, Social: o.Weights.Social}
	}
	if o.Tiers.Critical+o.Tiers.High+o.Tiers.Medium > 0 {
		sc.Tiers = scoring.Tiers{Critical: o.Tiers.Critical, High: o.Tiers.High, Medium: o.Tiers.Medium}
	}
	if o.Hype.Social+o.Hype.News > 0 {
		sc.Hype = scoring.HypeWeights{Social: o.Hype.Social, News: o.Hype.News}
	}

	n := &sc.Normalizer
	setFloat(&n.TriggerThreshold, o.TriggerThreshold)
	setFloat(&n.PutSkewFactor, o.PutSkewFactor)
	setFloat(&n.VolatilityThreshold, o.VolatilityThreshold)
	setFloat(&n.VolatilityBoost, o.VolatilityBoost)
	setScale(&n.OptionsScale, o.OptionsScale)
	setScale(&n.VolumeScale, o.VolumeScale)
	setScale(&n.SocialRatioScale, o.SocialRatioScale)
	setScale(&n.SocialAbsoluteScale, o.SocialAbsoluteScale)
	setSteps(&n.SustainedVolumeBoost, o.SustainedVolume)
	setSteps(&n.RankBoost, o.RankBoost)
	if len(o.HighAttention) > 0 {
		n.HighAttention = xutil.UniqueTickers(o.HighAttention)
	}

	m, mo := &sc.Mover, o.Mover
	if mo.AlertWeight+mo.MomentumWeight+mo.LevelWeight > 0 {
		m.AlertWeight, m.MomentumWeight, m.LevelWeight = mo.AlertWeight, mo.MomentumWeight, mo.LevelWeight
	}
	setFloat(&m.MomentumScale, mo.MomentumScale)
	setFloat(&m.LevelBonus, mo.LevelBonus)
	setFloat(&m.NearHighPct, mo.NearHighPct)
	setFloat(&m.NearRoundPct, mo.NearRoundPct)
	setFloat(&m.Breakout, mo.Breakout)
	setFloat(&m.Watch, mo.Watch)
	if len(mo.RoundLevels) > 0 {
		m.RoundLevels = mo.RoundLevels
	}
	if mo.MomentumDays > 0 {
		m.MomentumDays = mo.MomentumDays
	}

	if err := sc.Validate(); err != nil {
		return scoring.Config{}, fmt.Errorf("scoring config: %w", err)
	}
	return sc, nil
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setSteps(dst *scoring.Steps, steps []config.Step) {
	if len(steps) == 0 {
		return
	}
	s := make(scoring.Steps, len(steps))
	for i, st := range steps {
		s[i] = scoring.Step{Threshold: st.Threshold, Boost: st.Boost}
	}
	*dst = s
}

func setScale(dst *scoring.Scale, pts []config.Point) {
	if len(pts) == 0 {
		return
	}
	s := make(scoring.Scale, len(pts))
	for i, p := range pts {
		s[i] = scoring.Point{X: p.X, Y: p.Y}
	}
	*dst = s
}

func ProvideScorer(sc scoring.Config) *scoring.Scorer { return scoring.NewScorer(sc) }

func ProvideMoverPredictor(sc scoring.Config) *scoring.MoverPredictor {
	return scoring.NewMoverPredictor(sc.Mover)
}

func ProvideHypeAnalyzer(sc scoring.Config) *scoring.HypeAnalyzer {
	return scoring.NewHypeAnalyzer(sc.Hype)
}

func providerOptions(p config.ProviderConfig, cfg *config.Config, m domrepo.Metrics, l *applogger.Logger, co CacheOptions) []providers.Option {
	return []providers.Option{
		providers.WithTimeout(p.Timeout),
		providers.WithMinDelay(p.MinDelay),
		providers.WithBreaker(cfg.Providers.Breaker.MaxFailures, cfg.Providers.Breaker.OpenTimeout),
		providers.WithMetrics(m),
		providers.WithLogger(l),
		providers.WithCacheOptions(co...),
	}
}

func ProvideYahoo(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger, co CacheOptions) *providers.Yahoo {
	p := cfg.Providers.Yahoo
	return providers.NewYahoo(p.BaseURL, cfg.Cache.OptionsTTL, providerOptions(p, cfg, m, l, co)...)
}

func ProvideFinnhub(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger, co CacheOptions) *providers.Finnhub {
	p := cfg.Providers.Finnhub
	return providers.NewFinnhub(p.BaseURL, p.APIKey, p.Days, providerOptions(p, cfg, m, l, co)...)
}

func ProvideApeWisdom(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger, co CacheOptions) *providers.ApeWisdom {
	p := cfg.Providers.ApeWisdom
	return providers.NewApeWisdom(p.BaseURL, p.Pages, cfg.Cache.AggregateTTL, providerOptions(p, cfg, m, l, co)...)
}

// ProvidePolymarket tags events with the watchlist tickers and aliases.
func ProvidePolymarket(cfg *config.Config, wl models.Watchlist, m domrepo.Metrics, l *applogger.Logger, co CacheOptions) *providers.Polymarket {
	subjects := make([]providers.Subject, 0, len(wl))
	for _, w := range wl {
		subjects = append(subjects, providers.Subject{Ticker: w.Ticker, Aliases: w.Aliases})
	}
	p := cfg.Providers.Polymarket
	return providers.NewPolymarket(p.BaseURL, p.Limit, providers.NewMatcher(subjects), providerOptions(p, cfg, m, l, co)...)
}

func ProvideProviders(y *providers.Yahoo, f *providers.Finnhub, a *providers.ApeWisdom) usecase.Providers {
	return usecase.Providers{Options: y, Price: y, Social: a, News: f}
}

func ProvideSampleCollector(cfg *config.Config, p usecase.Providers, sc scoring.Config, l *applogger.Logger) *usecase.SampleCollector {
	return usecase.NewSampleCollector(p, cfg.Cycle.Workers, cfg.Cycle.ProviderTimeout, sc.Mover.MomentumDays, l)
}

// ProvideRedisCache returns nil when Redis is disabled. The shared cache
// owns closing it.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(redisPoolSize, redisMinIdleConns, redisPoolTimeout),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideSharedCache holds the cycle lock and the latest report: layered
// over Redis when configured, process-local otherwise.
func ProvideSharedCache(rc *pkgcache.RedisCache, l *applogger.Logger) (pkgcache.Service, func()) {
	var svc pkgcache.Service
	if rc != nil {
		svc = pkgcache.NewLayeredCache(rc, sharedCacheL1TTL)
	} else {
		svc = pkgcache.NewMemoryCache()
	}
	return svc, func() {
		if err := svc.Close(); err != nil {
			l.Warn("shared cache close", applogger.Error(err))
		}
	}
}

func ProvideScoreStore(cfg *config.Config, l *applogger.Logger) (domrepo.ScoreStore, func(), error) {
	var store domrepo.ScoreStore
	switch cfg.Store.Type {
	case "postgres":
		db, err := postgres.Open(cfg.Postgres.DSN,
			postgres.WithPool(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime),
			postgres.WithPingTimeout(initTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		store = repository.NewPostgresStore(db, cfg.Cycle.PersistTimeout, l)
	default:
		store = repository.NewMemoryStore()
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("score store init: %w", err)
	}
	l.Info("score store ready", applogger.String("type", cfg.Store.Type))
	return store, func() {
		if err := store.Close(); err != nil {
			l.Warn("score store close", applogger.Error(err))
		}
	}, nil
}

// ProvideClickHouseClient is nil for the memory history backend.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if cfg.Backend.Type == "memory" {
		return nil, func() {}, nil
	}
	c := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(c.Host, c.Port),
		pkgch.WithDatabase(c.Database),
		pkgch.WithCredentials(c.User, c.Password),
		pkgch.WithPool(10, 5, clickhouseLifetime),
		pkgch.WithTimeouts(c.DialTimeout, c.ReadTimeout),
		pkgch.WithHTTP(c.UseHTTP),
		pkgch.WithAsyncInsert(c.AsyncInsert, false),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := client.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", client.Database())); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready", applogger.String("database", client.Database()))
	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close", applogger.Error(err))
		}
	}, nil
}

func ProvideCHHistoryLog(ch *pkgch.Client, l *applogger.Logger) *repository.CHHistoryLog {
	if ch == nil {
		return nil
	}
	return repository.NewCHHistoryLog(ch, l)
}

// ProvideHistoryLog picks the snapshot path. With kafka the cycle only
// publishes; the snapshot consumer writes ClickHouse and reads go there.
func ProvideHistoryLog(cfg *config.Config, chh *repository.CHHistoryLog, l *applogger.Logger) (domrepo.HistoryLog, func(), error) {
	var hist domrepo.HistoryLog
	switch cfg.Backend.Type {
	case "clickhouse":
		hist = chh
	case "kafka":
		k := cfg.Kafka
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(k.Brokers),
			pkgkafka.WithTopic(k.Topic),
			pkgkafka.WithCompression(k.Compression),
			pkgkafka.WithRequiredAcks(k.RequiredAcks),
			pkgkafka.WithMaxAttempts(k.Producer.MaxAttempts),
			pkgkafka.WithBatching(k.Producer.BatchSize, k.Producer.Linger),
			pkgkafka.WithWriteTimeout(k.Producer.WriteTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka producer: %w", err)
		}
		hist = repository.NewKafkaHistoryLog(producer, chh)
	default:
		hist = repository.NewMemoryHistoryLog(max(cfg.Cycle.HistoryWindow, memHistoryFloor))
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := hist.Init(ctx); err != nil {
		_ = hist.Close()
		return nil, nil, fmt.Errorf("history init: %w", err)
	}
	l.Info("history log ready", applogger.String("backend", cfg.Backend.Type))
	return hist, func() {
		if err := hist.Close(); err != nil {
			l.Warn("history close", applogger.Error(err))
		}
	}, nil
}

// ProvideSnapshotConsumer is nil unless the kafka backend is selected.
func ProvideSnapshotConsumer(cfg *config.Config, chh *repository.CHHistoryLog, m domrepo.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	k := cfg.Kafka
	handler := usecase.NewSnapshotHandler(k.Topic, chh, m)
	consumer, err := pkgkafka.NewConsumer(handler, l,
		pkgkafka.WithConsumerBrokers(k.Brokers),
		pkgkafka.WithConsumerGroupID(k.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(k.Consumer.Workers),
		pkgkafka.WithConsumerRetry(k.Consumer.RetryMax, k.Consumer.BackoffMin, k.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(k.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideDispatcher(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) (*notify.Dispatcher, error) {
	n := cfg.Notify
	var channels []notify.Channel
	if n.Email.Enabled {
		channels = append(channels, notify.NewEmail(notify.EmailConfig{
			Host:     n.Email.Host,
			Port:     n.Email.Port,
			Username: n.Email.Username,
			Password: n.Email.Password,
			From:     n.Email.From,
		}))
	}
	if n.Telegram.Enabled {
		tg, err := notify.NewTelegram(n.Telegram.Token, n.Telegram.ChatID)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		channels = append(channels, tg)
	}
	if len(channels) == 0 {
		l.Warn("no notification channel enabled, critical alerts are only logged")
	}
	return notify.NewDispatcher(channels, n.Recipients, m, l), nil
}

// ProvideNotifyQueue is nil unless queued delivery is enabled. Its worker
// hands jobs to the dispatcher.
func ProvideNotifyQueue(cfg *config.Config, rc *pkgcache.RedisCache, d *notify.Dispatcher, l *applogger.Logger) *queue.RedisQueue {
	q := cfg.Notify.Queue
	if !q.Enabled || rc == nil {
		return nil
	}
	rq := queue.NewRedisQueue(rc.Client(), queue.Config{
		Workers:    q.Workers,
		RetryLimit: q.MaxRetries,
		RetryDelay: q.RetryDelay,
	}, l, queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	rq.Register(notify.NewCriticalJob(d))
	return rq
}

func ProvideNotifier(d *notify.Dispatcher, q *queue.RedisQueue) domrepo.Notifier {
	if q != nil {
		return notify.NewQueued(q)
	}
	return d
}

func ProvideHub(cfg *config.Config, l *applogger.Logger) *ws.Hub {
	return ws.NewHub(cfg.Server.WSOrigins, l)
}

// ProvideRefreshCycle also subscribes the websocket hub to finished cycles.
func ProvideRefreshCycle(
	cfg *config.Config,
	wl models.Watchlist,
	collector *usecase.SampleCollector,
	scorer domsvc.SignalScorer,
	movers domsvc.MoverPredictor,
	hype domsvc.HypeAnalyzer,
	store domrepo.ScoreStore,
	history domrepo.HistoryLog,
	notifier domrepo.Notifier,
	shared pkgcache.Service,
	m domrepo.Metrics,
	l *applogger.Logger,
	hub *ws.Hub,
) *usecase.RefreshCycle {
	c := usecase.NewRefreshCycle(wl, collector, scorer, movers, hype, store, history, notifier, shared, m, l,
		usecase.CycleOptions{
			LockTTL:        cfg.Cycle.LockTTL,
			PersistTimeout: cfg.Cycle.PersistTimeout,
			HistoryWindow:  cfg.Cycle.HistoryWindow,
			Recipients:     cfg.Notify.Recipients,
		})
	c.Subscribe(hub)
	return c
}

func ProvideAlertService(
	cfg *config.Config,
	wl models.Watchlist,
	store domrepo.ScoreStore,
	history domrepo.HistoryLog,
	collector *usecase.SampleCollector,
	scorer domsvc.SignalScorer,
	co CacheOptions,
) *usecase.AlertService {
	return usecase.NewAlertService(wl, store, history, collector, scorer, cfg.Cache.ScoreTTL, co...)
}

// ProvideHypeService gives the trending pipeline its own collector over
// Finnhub alone; hype never reads options, prices or social batches.
func ProvideHypeService(
	cfg *config.Config,
	wl models.Watchlist,
	f *providers.Finnhub,
	sc scoring.Config,
	analyzer domsvc.HypeAnalyzer,
	store domrepo.ScoreStore,
	l *applogger.Logger,
	co CacheOptions,
) *usecase.HypeService {
	news := usecase.NewSampleCollector(usecase.Providers{News: f}, cfg.Cycle.Workers, cfg.Cycle.ProviderTimeout, sc.Mover.MomentumDays, l)
	return usecase.NewHypeService(wl, news, analyzer, store, cfg.Cache.ScoreTTL, co...)
}

func ProvideMacroService(cfg *config.Config, p *providers.Polymarket, co CacheOptions) *usecase.MacroService {
	return usecase.NewMacroService(p, cfg.Cache.AggregateTTL, co...)
}

func ProvideThematicService(cfg *config.Config, store domrepo.ScoreStore, y *providers.Yahoo, co CacheOptions) *usecase.ThematicService {
	return usecase.NewThematicService(cfg.Themes, store, y, cfg.Cache.AggregateTTL, co...)
}

func ProvideStockService(cfg *config.Config, y *providers.Yahoo, co CacheOptions) *usecase.StockService {
	return usecase.NewStockService(y, cfg.Cache.AggregateTTL, co...)
}

func ProvideDashboardHandler(
	cfg *config.Config,
	l *applogger.Logger,
	alerts *usecase.AlertService,
	hype *usecase.HypeService,
	macro *usecase.MacroService,
	themes *usecase.ThematicService,
	stocks *usecase.StockService,
	cycle *usecase.RefreshCycle,
) *api.DashboardHandler {
	rl := ratelimit.New(cfg.Server.ScanRateLimit.Every, cfg.Server.ScanRateLimit.Burst)
	return api.NewDashboardHandler(l, alerts, hype, macro, themes, stocks, cycle, rl)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, dash *api.DashboardHandler, hub *ws.Hub) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	s := cfg.Server
	return xhttp.NewServer([]xhttp.Handler{dash, hub},
		xhttp.WithHost(s.Host),
		xhttp.WithPort(s.Port),
		xhttp.WithTimeouts(s.ReadTimeout, s.WriteTimeout, s.ShutdownTimeout),
		xhttp.WithCORS(s.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideScheduler bounds a scheduled run by the lock TTL so a hung cycle
// never outlives its lock.
func ProvideScheduler(cfg *config.Config, cycle *usecase.RefreshCycle, l *applogger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(cycle, cfg.Cycle.Schedule, cfg.Cycle.RunOnStart, cfg.Cycle.LockTTL, l)
}

func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	scheduler *usecase.Scheduler,
	hub *ws.Hub,
	cycle *usecase.RefreshCycle,
	consumer *pkgkafka.Consumer,
	notifyQueue *queue.RedisQueue,
) *server.App {
	return server.New(cfg, l, httpServer, scheduler, hub, cycle, consumer, notifyQueue)
}
