package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olyamironova/txbuilder/internal/api/dto"
	"github.com/olyamironova/txbuilder/internal/core"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/metrics"
	"github.com/olyamironova/txbuilder/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type HTTPServer struct {
	Eng      *core.Engine
	Market   *core.Market
	limiter  *middleware.RateLimiter
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewHTTPServer wires the REST API. A nil limiter disables rate limiting and
// a nil gatherer disables /metrics.
func NewHTTPServer(eng *core.Engine, market *core.Market, limiter *middleware.RateLimiter, gatherer prometheus.Gatherer, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{Eng: eng, Market: market, limiter: limiter, gatherer: gatherer, logger: logger}
}

func (s *HTTPServer) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(s.logger))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	if s.limiter != nil {
		v1.Use(s.limiter.Middleware())
	}
	v1.POST("/actions/:action/build", s.buildAction)
	v1.POST("/actions/:action/submit", s.submitAction)
	v1.GET("/inventory/:owner", s.getInventory)
	v1.GET("/pools", s.getPools)
	v1.GET("/pools/:id/orderbook", s.getOrderbook)
	v1.GET("/pools/:id/trades", s.getTrades)
	v1.GET("/pools/:id/candles", s.getCandles)
	v1.GET("/managers/:id/orders", s.getOrders)
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) bindAction(c *gin.Context) (core.Action, bool) {
	req, ok := dto.NewActionRequest(c.Param("action"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown action " + c.Param("action")})
		return nil, false
	}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	a, err := req.Action()
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return a, true
}

func (s *HTTPServer) buildAction(c *gin.Context) {
	a, ok := s.bindAction(c)
	if !ok {
		return
	}
	tx, err := s.Eng.Build(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BuildResponse{Action: a.Name(), Transaction: tx})
}

func (s *HTTPServer) submitAction(c *gin.Context) {
	a, ok := s.bindAction(c)
	if !ok {
		return
	}
	rcpt, err := s.Eng.Submit(c.Request.Context(), a)
	if err != nil {
		if rcpt != nil {
			resp := dto.NewSubmitResponse(rcpt, a.Assets())
			resp.Message = err.Error()
			c.JSON(StatusFor(err), resp)
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSubmitResponse(rcpt, a.Assets()))
}

func (s *HTTPServer) getInventory(c *gin.Context) {
	asset := domain.AssetType{Type: c.Query("asset")}
	if d := c.Query("decimals"); d != "" {
		n, err := strconv.ParseUint(d, 10, 8)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid decimals"})
			return
		}
		asset.Decimals = uint8(n)
	}
	owner := c.Param("owner")
	coins, err := s.Eng.Inventory(c.Request.Context(), owner, asset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewInventoryResponse(owner, asset, coins))
}

func (s *HTTPServer) getPools(c *gin.Context) {
	c.JSON(http.StatusOK, dto.PoolsResponse{Pools: s.Market.Pools(c.Request.Context())})
}

func (s *HTTPServer) getOrderbook(c *gin.Context) {
	depth, ok := intQuery(c, "depth", 20)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Market.Orderbook(c.Request.Context(), c.Param("id"), depth))
}

func (s *HTTPServer) getTrades(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 100)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.TradesResponse{Trades: s.Market.Trades(c.Request.Context(), c.Param("id"), limit)})
}

func (s *HTTPServer) getCandles(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 100)
	if !ok {
		return
	}
	interval := time.Minute
	if v := c.Query("interval"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < time.Minute {
			c.JSON(http.StatusBadRequest, gin.H{"error": "interval must be a duration of at least 1m"})
			return
		}
		interval = d
	}
	c.JSON(http.StatusOK, dto.CandlesResponse{
		Interval: interval.String(),
		Candles:  s.Market.Candles(c.Request.Context(), c.Param("id"), interval, limit),
	})
}

func (s *HTTPServer) getOrders(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 100)
	if !ok {
		return
	}
	orders := s.Market.Orders(c.Request.Context(), c.Param("id"), limit)
	c.JSON(http.StatusOK, dto.OrdersResponse{Orders: dto.ConvertOrders(orders)})
}

func intQuery(c *gin.Context, key string, def int) (int, bool) {
	v := c.Query(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return n, true
}

// StatusFor maps engine errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientGasReserve),
		errors.Is(err, domain.ErrNoSpendableCoin):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrActionInFlight):
		return http.StatusConflict
	case errors.Is(err, domain.ErrExecution):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error(), "kind": metrics.Reason(err)}
	var ef *domain.ExecutionFailure
	if errors.As(err, &ef) && ef.Digest != "" {
		body["digest"] = ef.Digest
	}
	var ib *domain.InsufficientBalanceError
	if errors.As(err, &ib) {
		body["asset"] = ib.Asset.Type
		body["shortfall"] = domain.FormatBaseUnits(ib.Shortfall(), ib.Asset.Decimals)
	}
	c.JSON(StatusFor(err), body)
}
