// Package apihttp exposes the intake and inspection API. Intake
// handlers only enqueue; all processing happens in the scheduled cycle.
package apihttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liorsolomon/ai-options-trading-bot/internal/ingest"
	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
	"github.com/liorsolomon/ai-options-trading-bot/internal/position"
	"github.com/liorsolomon/ai-options-trading-bot/internal/risk"
)

const maxBodyBytes = 4 << 20

type ServerConfig struct {
	Addr    string
	Queue   *ingest.Queue
	Parser  *ingest.ChatParser
	Tracker *position.Tracker
	Gate    *risk.Gate
	// Health contributes component states to the health payload.
	Health func() map[string]any
}

type Server struct {
	addr   string
	router *gin.Engine
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Queue == nil || cfg.Parser == nil {
		return nil, errors.New("http server requires queue and chat parser")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.POST("/signals", submitSignals(cfg.Queue))
	api.POST("/chat-export", submitChatExport(cfg.Queue, cfg.Parser))
	api.GET("/positions", listPositions(cfg.Tracker))
	api.GET("/health", healthHandler(cfg))

	return &Server{addr: cfg.Addr, router: router}, nil
}

func (s *Server) Addr() string { return s.addr }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("http server listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// submitSignals accepts one direct-submission JSON document. Schema
// validation happens in the cycle so a bad document is quarantined
// there, but obvious garbage is refused at the door.
func submitSignals(queue *ingest.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil || len(body) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty or unreadable body"})
			return
		}
		if !strings.HasPrefix(strings.TrimSpace(string(body)), "{") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
			return
		}
		queue.AddSubmission(body)
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	}
}

func submitChatExport(queue *ingest.Queue, parser *ingest.ChatParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := io.LimitReader(c.Request.Body, maxBodyBytes)
		msgs, quarantined := parser.Parse(body)
		queue.AddMessages(msgs)
		queue.CountQuarantined(quarantined)
		c.JSON(http.StatusAccepted, gin.H{
			"status":      "queued",
			"messages":    len(msgs),
			"quarantined": quarantined,
		})
	}
}

func listPositions(tracker *position.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tracker == nil {
			c.JSON(http.StatusOK, gin.H{"positions": []any{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"positions": tracker.Positions()})
	}
}

func healthHandler(cfg ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := gin.H{"status": "ok"}
		messages, submissions := cfg.Queue.Pending()
		payload["queue"] = gin.H{"messages": messages, "submissions": submissions}
		if cfg.Gate != nil {
			snap := cfg.Gate.Snapshot()
			payload["portfolio"] = gin.H{
				"version":            snap.Version,
				"equity":             snap.Equity,
				"open_exposure":      snap.OpenExposure,
				"daily_realized_pnl": snap.DailyRealizedPnL,
				"daily_loss_latched": snap.DailyLossLatched,
				"open_positions":     len(snap.Open),
			}
		}
		if cfg.Health != nil {
			for k, v := range cfg.Health() {
				payload[k] = v
			}
		}
		c.JSON(http.StatusOK, payload)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		client := c.ClientIP()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), client, time.Since(start))
	}
}
