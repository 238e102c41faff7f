// Package server exposes the meter over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"InferenceMeter/pkg/exporting"
	"InferenceMeter/pkg/logging"
	"InferenceMeter/pkg/ollama"
	"InferenceMeter/pkg/profiling"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Profiler meters one prompt.
type Profiler interface {
	Model() string
	Profile(ctx context.Context, prompt string) (*profiling.Report, error)
}

// Options configures a Server.
type Options struct {
	Port     int
	Static   exporting.Record
	Hub      *Hub
	Logger   *zap.Logger
	Endpoint string
}

// PromptRequest is the body of POST /process_prompt.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// Server serves the prompt, health, info, metrics and live tick endpoints.
type Server struct {
	opts     Options
	profiler Profiler
	engine   *gin.Engine
	log      *zap.Logger
	started  time.Time
}

// New creates a server and registers its routes.
func New(p Profiler, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Hub == nil {
		opts.Hub = NewHub(opts.Logger)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(opts.Logger))

	s := &Server{
		opts:     opts,
		profiler: p,
		engine:   engine,
		log:      opts.Logger,
		started:  time.Now(),
	}

	engine.POST("/process_prompt", s.handleProcessPrompt)
	engine.GET("/health", s.handleHealth)
	engine.GET("/info", s.handleInfo)
	engine.GET("/static", s.handleStatic)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/ws/ticks", gin.WrapF(opts.Hub.ServeWS))
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully. No write
// timeout is set because a prompt may take arbitrarily long.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("model", s.profiler.Model()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	s.opts.Hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleProcessPrompt(c *gin.Context) {
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Prompt == "" {
		PromptRequestsTotal.WithLabelValues("400").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}

	PromptsInFlight.Inc()
	defer PromptsInFlight.Dec()

	ctx := logging.WithContext(c.Request.Context(), s.log)
	report, err := s.profiler.Profile(ctx, req.Prompt)
	if err != nil {
		var se *ollama.StatusError
		if errors.As(err, &se) {
			PromptRequestsTotal.WithLabelValues(fmt.Sprint(se.Code)).Inc()
			c.JSON(se.Code, gin.H{"error": se.Error(), "details": se.Body})
			return
		}
		PromptRequestsTotal.WithLabelValues("502").Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": "LLM API unreachable", "details": err.Error()})
		return
	}

	RecordReport(report)
	PromptRequestsTotal.WithLabelValues("200").Inc()
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"model":        s.profiler.Model(),
		"endpoint":     s.opts.Endpoint,
		"uptime_s":     time.Since(s.started).Seconds(),
		"live_clients": s.opts.Hub.Clients(),
	})
}

func (s *Server) handleStatic(c *gin.Context) {
	if s.opts.Static == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.opts.Static)
}

// requestLogger logs every request except scrapes and the websocket.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "/metrics" || path == "/ws/ticks" {
			return
		}
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
