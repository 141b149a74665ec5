// Package server exposes the tester over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/gatherer/respbuilder"
	"github.com/programme-lv/executor/internal/tester"
	"golang.org/x/sync/semaphore"
)

// Runner is implemented by *tester.Tester.
type Runner interface {
	ExecuteSubmission(ctx context.Context, sub *internal.Submission, gath internal.ResultGatherer) (*internal.ExecutionResult, error)
	Strategies() []api.ExecutionStrategyType
}

// GathererFactory adds gatherers next to the response builder, e.g. one that
// persists test runs.
type GathererFactory func(sub *internal.Submission) internal.ResultGatherer

type Server struct {
	runner    Runner
	sem       *semaphore.Weighted
	extra     []GathererFactory
	logger    *slog.Logger
	maxBody   int64
	startedAt time.Time
}

type Option func(*Server)

// WithConcurrency bounds the number of submissions executed at once.
func WithConcurrency(n int64) Option {
	return func(s *Server) { s.sem = semaphore.NewWeighted(n) }
}

func WithGatherer(f GathererFactory) Option {
	return func(s *Server) { s.extra = append(s.extra, f) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxBodyBytes limits the decoded request body.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

func New(runner Runner, opts ...Option) *Server {
	s := &Server{
		runner:    runner,
		sem:       semaphore.NewWeighted(4),
		logger:    slog.Default(),
		maxBody:   64 << 20,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.POST("/executeSubmission", s.executeSubmission)
	router.GET("/health", s.health)
	return router
}

func (s *Server) executeSubmission(c *gin.Context) {
	keepDetails, err := boolQuery(c, "keepDetails")
	if err != nil {
		badRequest(c, err)
		return
	}
	escapeTests, err := boolQuery(c, "escapeTests")
	if err != nil {
		badRequest(c, err)
		return
	}

	req, err := s.decodeRequest(c.Request)
	if err != nil {
		badRequest(c, err)
		return
	}

	sub, err := internal.SubmissionFromRequest(uuid.NewString(), req)
	if err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		c.JSON(http.StatusServiceUnavailable, exception(err))
		return
	}
	defer s.sem.Release(1)

	builder := respbuilder.New()
	gath := internal.MultiGatherer{builder}
	for _, f := range s.extra {
		gath = append(gath, f(sub))
	}

	if _, err := s.runner.ExecuteSubmission(ctx, sub, gath); err != nil {
		if isValidationError(err) {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, exception(err))
		return
	}

	c.JSON(http.StatusOK, builder.Response(keepDetails, escapeTests))
}

func (s *Server) decodeRequest(r *http.Request) (api.ExecuteSubmissionRequest, error) {
	var req api.ExecuteSubmissionRequest

	var body io.Reader = r.Body
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return req, fmt.Errorf("invalid gzip body: %w", err)
		}
		defer zr.Close()
		body = zr
	}
	body = io.LimitReader(body, s.maxBody)

	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

func (s *Server) health(c *gin.Context) {
	strategies := make([]string, 0)
	for _, st := range s.runner.Strategies() {
		strategies = append(strategies, st.String())
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
		"strategies": strategies,
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		s.logger.Info("request completed",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

func boolQuery(c *gin.Context, key string) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s flag %q", key, v)
	}
	return b, nil
}

func isValidationError(err error) bool {
	for _, target := range []error{
		tester.ErrUnknownStrategy,
		tester.ErrNotApplicable,
		tester.ErrDuplicateTestID,
		tester.ErrUnknownChecker,
		tester.ErrNoTests,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func exception(err error) api.RemoteSubmissionResult {
	return api.RemoteSubmissionResult{Exception: &api.ExceptionModel{Message: err.Error()}}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, exception(err))
}
