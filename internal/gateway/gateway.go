// Package gateway sends prompt sequences to a hosted chat-completion model
// and classifies every way that can fail.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "propoflash/internal/common/errors"
	"propoflash/internal/common/logger"
	"propoflash/internal/common/metrics"
	"propoflash/internal/common/observability"
)

const bodyExcerptLimit = 512

// Kind classifies a gateway failure.
type Kind string

const (
	KindMissingCredentials Kind = "MISSING_CREDENTIALS"
	KindUpstreamHTTP       Kind = "UPSTREAM_HTTP_ERROR"
	KindUpstreamTimeout    Kind = "UPSTREAM_TIMEOUT"
	KindNetwork            Kind = "NETWORK_ERROR"
)

// Error is the only error type Complete returns.
type Error struct {
	Kind        Kind
	Provider    string
	Status      int
	BodyExcerpt string
	Timeout     time.Duration
	Err         error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUpstreamHTTP:
		return fmt.Sprintf("%s: %s returned %d: %s", e.Kind, e.Provider, e.Status, e.BodyExcerpt)
	case KindMissingCredentials:
		return fmt.Sprintf("%s: no API key for %s", e.Kind, e.Provider)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Provider, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Provider)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// StandardError maps the failure onto the service error taxonomy.
func (e *Error) StandardError() *apperrors.StandardError {
	var std *apperrors.StandardError
	switch e.Kind {
	case KindMissingCredentials:
		std = apperrors.NewMissingCredentialsError(e.Provider)
	case KindUpstreamHTTP:
		std = apperrors.NewUpstreamHTTPError(e.Status, e.BodyExcerpt)
	case KindUpstreamTimeout:
		std = apperrors.NewUpstreamTimeoutError(e.Timeout)
	default:
		std = apperrors.NewNetworkError(e.Err)
	}
	return std.WithMetadata("provider", e.Provider)
}

// Role of a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

type Options struct {
	Model       string
	Temperature float64
	JSONMode    bool
}

// Request is one prompt sequence. Turns are sent as FewShots, History,
// Context and finally UserTurn, all after SystemPrompt.
type Request struct {
	SystemPrompt string
	FewShots     []Message
	History      []Message
	Context      []string
	UserTurn     string
	Options      Options
}

// Turns flattens the request into the ordered message list.
func (r Request) Turns() []Message {
	turns := make([]Message, 0, len(r.FewShots)+len(r.History)+len(r.Context)+1)
	turns = append(turns, r.FewShots...)
	turns = append(turns, r.History...)
	for _, c := range r.Context {
		turns = append(turns, Message{Role: RoleUser, Content: c})
	}
	return append(turns, Message{Role: RoleUser, Content: r.UserTurn})
}

// Gateway performs one completion call.
type Gateway interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
}

// backend is a provider SDK adapter. call returns the raw text or an error
// that classify understands.
type backend interface {
	name() string
	hasCredentials() bool
	call(ctx context.Context, req Request) (string, error)
	classify(err error) *Error
}

// Client wraps a backend with credential checks, a bounded wait,
// error classification, tracing and metrics. It never retries.
type Client struct {
	backend      backend
	defaultModel string
	timeout      time.Duration
	logger       logger.Logger
	obs          *observability.Observability
}

func newClient(b backend, model string, timeout time.Duration, log logger.Logger, obs *observability.Observability) *Client {
	return &Client{
		backend:      b,
		defaultModel: model,
		timeout:      timeout,
		logger:       log.WithFields(map[string]interface{}{"provider": b.name()}),
		obs:          obs,
	}
}

func (c *Client) Provider() string { return c.backend.name() }

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.backend.hasCredentials() {
		metrics.GatewayCalls.WithLabelValues(c.backend.name(), string(KindMissingCredentials)).Inc()
		return "", &Error{Kind: KindMissingCredentials, Provider: c.backend.name()}
	}
	if req.Options.Model == "" {
		req.Options.Model = c.defaultModel
	}

	ctx, span := c.obs.StartSpan(ctx, "gateway.complete",
		attribute.String("provider", c.backend.name()),
		attribute.String("model", req.Options.Model),
	)
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.backend.call(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		gerr := c.classifyError(ctx, err)
		metrics.GatewayCalls.WithLabelValues(c.backend.name(), string(gerr.Kind)).Inc()
		c.obs.RecordStage(ctx, "gateway", string(gerr.Kind), elapsed)
		span.RecordError(gerr)
		c.logger.Warn("completion call failed", map[string]interface{}{
			"kind":       gerr.Kind,
			"status":     gerr.Status,
			"durationMs": elapsed.Milliseconds(),
		})
		return "", gerr
	}

	metrics.GatewayCalls.WithLabelValues(c.backend.name(), "ok").Inc()
	c.obs.RecordStage(ctx, "gateway", "ok", elapsed)
	c.logger.Debug("completion call succeeded", map[string]interface{}{
		"model":      req.Options.Model,
		"durationMs": elapsed.Milliseconds(),
		"chars":      len(text),
	})
	return text, nil
}

func (c *Client) classifyError(ctx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindUpstreamTimeout, Provider: c.backend.name(), Timeout: c.timeout, Err: err}
	}
	gerr := c.backend.classify(err)
	gerr.Provider = c.backend.name()
	return gerr
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > bodyExcerptLimit {
		return s[:bodyExcerptLimit]
	}
	return s
}
