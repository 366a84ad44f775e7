// Package api exposes the signal engine, the watchlist and live prices over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"CoinSentinel/internal/calculator"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/recorder"
	"CoinSentinel/internal/strategy"
	"CoinSentinel/internal/watchlist"
)

// maxDays caps the history window a caller may request.
const maxDays = 1000

// SignalService fetches and analyzes one asset. *collector.Collector satisfies it.
type SignalService interface {
	CollectDays(ctx context.Context, asset string, days int) (*model.Report, error)
}

// PriceSource serves live prices. *collector.PriceStream satisfies it.
type PriceSource interface {
	Latest(asset string) (model.PricePoint, bool)
}

// HistoryCache drops cached histories. *collector.CachingFetcher satisfies it.
type HistoryCache interface {
	Invalidate(ctx context.Context, asset string) error
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// EvaluateRequest is the body of POST /api/v1/signals/evaluate.
type EvaluateRequest struct {
	Prices  []float64 `json:"prices" binding:"required"`
	Volumes []float64 `json:"volumes"`
}

// Handler serves the /api/v1 routes.
type Handler struct {
	signals   SignalService
	watchlist *watchlist.Manager
	prices    PriceSource
	recorder  recorder.Recorder
	cache     HistoryCache
	days      int
	log       *zap.Logger
}

// NewHandler wires the handler. prices and rec may be nil.
func NewHandler(signals SignalService, wl *watchlist.Manager, prices PriceSource, rec recorder.Recorder, days int, log *zap.Logger) *Handler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		signals:   signals,
		watchlist: wl,
		prices:    prices,
		recorder:  rec,
		days:      days,
		log:       log.With(zap.String("component", "api")),
	}
}

// WithCache makes RemoveWatch drop the asset's cached histories.
func (h *Handler) WithCache(c HistoryCache) *Handler {
	h.cache = c
	return h
}

// Health handles /healthz and never caches.
func Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// GetSignal fetches and analyzes one asset.
//
// GET /api/v1/signals/:asset?days=90
func (h *Handler) GetSignal(c *gin.Context) {
	asset, err := watchlist.Normalize(c.Param("asset"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	days := h.days
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < strategy.MinSamples || n > maxDays {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "days must be an integer between 30 and 1000"})
			return
		}
		days = n
	}

	rep, err := h.signals.CollectDays(c.Request.Context(), asset, days)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.recorder.RecordSignal(&recorder.SignalSnapshot{Report: rep, Trigger: recorder.TriggerAPI}); err != nil {
		h.log.Error("record signal", zap.String("asset", asset), zap.Error(err))
	}
	c.JSON(http.StatusOK, rep)
}

// Evaluate analyzes a caller supplied price series without fetching anything.
//
// POST /api/v1/signals/evaluate
func (h *Handler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if len(req.Volumes) > 0 && len(req.Volumes) != len(req.Prices) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "volumes must align with prices"})
		return
	}

	hist := &model.PriceHistory{
		Asset:     "custom",
		Source:    "request",
		Points:    make([]model.PricePoint, len(req.Prices)),
		Volumes:   req.Volumes,
		FetchedAt: time.Now().UTC(),
	}
	for i, p := range req.Prices {
		hist.Points[i] = model.PricePoint{Price: p}
	}

	rep, err := strategy.Analyze(hist)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// ListWatchlist returns the watched assets.
func (h *Handler) ListWatchlist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"assets": h.watchlist.List()})
}

// AddWatch adds an asset. 201 when added, 200 when already present.
func (h *Handler) AddWatch(c *gin.Context) {
	added, err := h.watchlist.Add(c.Param("asset"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"assets": h.watchlist.List()})
}

// RemoveWatch removes an asset. 404 when it was not watched.
func (h *Handler) RemoveWatch(c *gin.Context) {
	removed, err := h.watchlist.Remove(c.Param("asset"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "asset is not on the watchlist"})
		return
	}
	if h.cache != nil {
		asset, _ := watchlist.Normalize(c.Param("asset"))
		if err := h.cache.Invalidate(c.Request.Context(), asset); err != nil {
			h.log.Warn("invalidate cached history", zap.String("asset", asset), zap.Error(err))
		}
	}
	c.Status(http.StatusNoContent)
}

// GetPrice returns the latest live price of an asset.
func (h *Handler) GetPrice(c *gin.Context) {
	asset, err := watchlist.Normalize(c.Param("asset"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if h.prices == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "live prices are disabled"})
		return
	}
	p, ok := h.prices.Latest(asset)
	if !ok {
		msg := "no live price for " + asset
		if !h.watchlist.Contains(asset) {
			msg = asset + " is not on the watchlist"
		}
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": asset, "price": p.Price, "time": p.Time})
}

// writeError maps domain errors onto status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, strategy.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, calculator.ErrInvalidInput), errors.Is(err, watchlist.ErrInvalidAsset):
		status = http.StatusBadRequest
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
