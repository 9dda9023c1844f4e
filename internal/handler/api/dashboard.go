package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	"HypeRadar/internal/service/ratelimit"
	"HypeRadar/internal/usecase"
	xhttp "HypeRadar/pkg/http"
	applogger "HypeRadar/pkg/logger"
	xutil "HypeRadar/pkg/util"
)

type AlertQueries interface {
	Dashboard(ctx context.Context, level models.AlertLevel, limit int) ([]models.AlertView, error)
	Score(ctx context.Context, ticker string) (*models.SignalScore, error)
	Movers(ctx context.Context, label models.MoverLabel, limit int) ([]*models.MoverScore, error)
	History(ctx context.Context, ticker string, window time.Duration, limit int) ([]*models.Snapshot, error)
}

type HypeQueries interface {
	Trending(ctx context.Context, group string, limit int) ([]*models.HypeScore, error)
	Cached(ctx context.Context, group string, limit int) ([]*models.HypeScore, error)
	Raw(ctx context.Context, ticker string) (*models.HypeRaw, error)
}

type StockQueries interface {
	Quote(ctx context.Context, ticker string) (*models.StockQuote, error)
}

type MacroQueries interface {
	Events(ctx context.Context) ([]models.MacroEvent, error)
}

type ThemeQueries interface {
	Themes(ctx context.Context) (map[string][]models.ThemeEntry, error)
}

// CycleControl runs and reports refresh cycles.
type CycleControl interface {
	Run(ctx context.Context) (*models.CycleReport, error)
	Latest(ctx context.Context) (*models.CycleReport, error)
}

// DashboardHandler serves the /api/v1 routes.
type DashboardHandler struct {
	logger *applogger.Logger
	alerts AlertQueries
	hype   HypeQueries
	macro  MacroQueries
	themes ThemeQueries
	stocks StockQueries
	cycle  CycleControl
	scanRL *ratelimit.Limiter
}

func NewDashboardHandler(
	logger *applogger.Logger,
	alerts AlertQueries,
	hype HypeQueries,
	macro MacroQueries,
	themes ThemeQueries,
	stocks StockQueries,
	cycle CycleControl,
	scanRL *ratelimit.Limiter,
) *DashboardHandler {
	if logger == nil {
		logger = applogger.Nop()
	}
	if scanRL == nil {
		scanRL = ratelimit.New(time.Minute, 2)
	}
	return &DashboardHandler{
		logger: logger,
		alerts: alerts,
		hype:   hype,
		macro:  macro,
		themes: themes,
		stocks: stocks,
		cycle:  cycle,
		scanRL: scanRL,
	}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api/v1")
	g.GET("/alerts", h.Alerts)
	g.GET("/alerts/:ticker", h.AlertByTicker)
	g.POST("/scan", h.Scan)
	g.GET("/movers", h.Movers)
	g.GET("/hype/trending", h.HypeTrending)
	g.GET("/hype/cached", h.HypeCached)
	g.GET("/hype/:ticker", h.HypeByTicker)
	g.GET("/stock/:ticker", h.Stock)
	g.GET("/history/:ticker", h.History)
	g.GET("/macro", h.Macro)
	g.GET("/thematic", h.Thematic)
	g.GET("/cycle/latest", h.LatestCycle)
}

func (h *DashboardHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *DashboardHandler) Alerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.alerts.Dashboard(c.Request().Context(), models.AlertLevel(req.Level), req.Limit)
	if err != nil {
		return h.fail(c, "alerts", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DashboardHandler) AlertByTicker(c echo.Context) error {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	score, err := h.alerts.Score(c.Request().Context(), req.Ticker)
	if err != nil {
		return h.fail(c, "alert", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, score)
}

// Scan runs a refresh cycle inline. The cycle outlives a dropped client so
// a half-persisted cycle is never left behind.
func (h *DashboardHandler) Scan(c echo.Context) error {
	ip := xhttp.ClientIP(c)
	if !h.scanRL.Allow(ip) {
		h.logger.Warn("scan rate limited", applogger.String("remote", ip))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("scan rate limit exceeded"))
	}
	report, err := h.cycle.Run(context.WithoutCancel(c.Request().Context()))
	if err != nil {
		return h.fail(c, "scan", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *DashboardHandler) Movers(c echo.Context) error {
	req := &models.MoversRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.alerts.Movers(c.Request().Context(), models.MoverLabel(req.Label), req.Limit)
	if err != nil {
		return h.fail(c, "movers", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DashboardHandler) HypeTrending(c echo.Context) error {
	req := &models.HypeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.hype.Trending(c.Request().Context(), req.Group, req.Limit)
	if err != nil {
		return h.fail(c, "hype_trending", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DashboardHandler) HypeCached(c echo.Context) error {
	req := &models.HypeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.hype.Cached(c.Request().Context(), req.Group, req.Limit)
	if err != nil {
		return h.fail(c, "hype_cached", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DashboardHandler) HypeByTicker(c echo.Context) error {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	raw, err := h.hype.Raw(c.Request().Context(), req.Ticker)
	if err != nil {
		return h.fail(c, "hype_ticker", err)
	}
	return xhttp.SuccessResponse(c, raw)
}

func (h *DashboardHandler) Stock(c echo.Context) error {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	quote, err := h.stocks.Quote(c.Request().Context(), req.Ticker)
	if err != nil {
		return h.fail(c, "stock", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, quote)
}

func (h *DashboardHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	window, ok := xutil.ParseDuration(req.Window)
	if !ok || window <= 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid window %q", req.Window))
	}
	rows, err := h.alerts.History(c.Request().Context(), req.Ticker, window, req.Limit)
	if err != nil {
		return h.fail(c, "history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DashboardHandler) Macro(c echo.Context) error {
	events, err := h.macro.Events(c.Request().Context())
	if err != nil {
		return h.fail(c, "macro", err)
	}
	return xhttp.ListResponse(c, events, int64(len(events)))
}

func (h *DashboardHandler) Thematic(c echo.Context) error {
	themes, err := h.themes.Themes(c.Request().Context())
	if err != nil {
		return h.fail(c, "thematic", err)
	}
	return xhttp.SuccessResponse(c, themes)
}

func (h *DashboardHandler) LatestCycle(c echo.Context) error {
	report, err := h.cycle.Latest(c.Request().Context())
	if err != nil {
		return h.fail(c, "cycle_latest", err)
	}
	return xhttp.SuccessResponse(c, report)
}

// fail maps usecase errors onto HTTP statuses.
func (h *DashboardHandler) fail(c echo.Context, endpoint string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, usecase.ErrCycleInProgress):
		appErr = xhttp.ConflictError("a refresh cycle is already running")
	case errors.Is(err, domrepo.ErrNotFound):
		appErr = xhttp.NotFoundError(err.Error())
	case errors.Is(err, domrepo.ErrUnavailable):
		h.logger.Warn("upstream unavailable", applogger.String("endpoint", endpoint), applogger.Error(err))
		appErr = xhttp.ServiceUnavailableError(err.Error())
	default:
		h.logger.Error("request failed",
			applogger.String("endpoint", endpoint),
			applogger.String("path", c.Path()),
			applogger.Error(err),
		)
		appErr = xhttp.InternalError("internal error")
	}
	return xhttp.AppErrorResponse(c, appErr.WithError(err))
}
