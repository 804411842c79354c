// Command server exposes the backtester over HTTP. Clients POST a CSV path
// plus optional overrides and get the full result back; runs can also be
// persisted to ClickHouse when storage is enabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"smc-backtest/internal/backtest"
	"smc-backtest/internal/config"
	"smc-backtest/internal/market"
	"smc-backtest/internal/storage"
	"smc-backtest/internal/strategy"
)

type backtestRequest struct {
	CSVPath  string           `json:"csv_path" binding:"required"`
	Symbol   string           `json:"symbol"`
	Save     bool             `json:"save"`
	Strategy *strategy.Params `json:"strategy,omitempty"`
	Backtest *backtest.Config `json:"backtest,omitempty"`
}

type backtestResponse struct {
	RunID     string                 `json:"run_id"`
	Metrics   backtest.MetricsResult `json:"metrics"`
	Trades    []backtest.Trade       `json:"trades"`
	ElapsedMs int64                  `json:"elapsed_ms"`
	Saved     bool                   `json:"saved"`
}

type server struct {
	cfg config.Config
	log *zap.Logger
}

func (s *server) routes(r *gin.Engine) {
	r.GET("/healthz", s.handleHealth)
	api := r.Group("/api/v1")
	{
		api.POST("/backtest", s.handleBacktest)
	}
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *server) handleBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := s.cfg.Strategy
	if req.Strategy != nil {
		params = *req.Strategy
	}
	btCfg := s.cfg.Backtest
	if req.Backtest != nil {
		btCfg = *req.Backtest
	}
	if err := btCfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	strat, err := strategy.NewSMC(params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bars, err := market.LoadCSV(req.CSVPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID := uuid.New().String()
	s.log.Info("running backtest",
		zap.String("run_id", runID),
		zap.String("csv", req.CSVPath),
		zap.Int("bars", len(bars)),
	)

	start := time.Now()
	res := backtest.New(strat, btCfg, s.log).Run(bars)

	saved := false
	if req.Save && s.cfg.Storage.Enabled {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		client, err := storage.NewClient(ctx, s.cfg.Storage, s.log)
		if err != nil {
			s.log.Error("storage connect failed", zap.Error(err))
		} else {
			defer client.Close()
			symbol := req.Symbol
			if symbol == "" {
				symbol = "UNKNOWN"
			}
			if err := client.SaveRun(ctx, runID, symbol, strat.Name(), res); err != nil {
				s.log.Error("save run failed", zap.Error(err))
			} else {
				saved = true
			}
		}
	}

	c.JSON(http.StatusOK, backtestResponse{
		RunID:     runID,
		Metrics:   res.Metrics,
		Trades:    res.Trades,
		ElapsedMs: time.Since(start).Milliseconds(),
		Saved:     saved,
	})
}

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "", "Path to YAML config; defaults apply when empty")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	srv := &server{cfg: cfg, log: log}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	srv.routes(router)

	httpSrv := &http.Server{Addr: *addr, Handler: router}
	go func() {
		log.Info("starting http server", zap.String("addr", *addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
