// internal/workers/proposal/style/handler.go
package style

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "propoflash/internal/common/errors"
	"propoflash/internal/common/i18n"
	"propoflash/internal/common/logger"
	"propoflash/internal/common/metrics"
	"propoflash/internal/common/observability"
	"propoflash/internal/common/validation"
	"propoflash/internal/gateway"
	"propoflash/internal/proposal"
)

const (
	TaskType = "proposal-style"
	Endpoint = "/api/style"

	DegradedHeader = "X-PropoFlash-Degraded"

	incidentTimeout = 2 * time.Second
)

type Handler struct {
	config    *Config
	gateway   gateway.Gateway
	pack      gateway.Pack
	pipeline  *proposal.Pipeline
	incidents observability.IncidentSink
	obs       *observability.Observability
	logger    logger.Logger
}

type Option func(*Handler)

func WithIncidentSink(s observability.IncidentSink) Option {
	return func(h *Handler) { h.incidents = s }
}

func WithObservability(o *observability.Observability) Option {
	return func(h *Handler) { h.obs = o }
}

func NewHandler(config *Config, gw gateway.Gateway, pack gateway.Pack, pipeline *proposal.Pipeline, log logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		config:    config,
		gateway:   gw,
		pack:      pack,
		pipeline:  pipeline,
		incidents: observability.NopSink{},
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		metrics.RequestsTotal.WithLabelValues(Endpoint, metrics.OutcomeRejected).Inc()
		apperrors.WriteError(w, apperrors.NewMethodNotAllowedError(r.Method))
		return
	}

	input, stdErr := h.decode(w, r)
	if stdErr != nil {
		metrics.RequestsTotal.WithLabelValues(Endpoint, metrics.OutcomeRejected).Inc()
		h.logger.Info("rejected request", map[string]interface{}{"details": stdErr.Details})
		apperrors.WriteError(w, stdErr)
		return
	}

	output := h.execute(r.Context(), input, r.Header.Get("Accept-Language"))

	outcome := metrics.OutcomeOK
	if output.DegradedCode != "" {
		outcome = metrics.OutcomeDegraded
		w.Header().Set(DegradedHeader, output.DegradedCode)
	}
	metrics.RequestsTotal.WithLabelValues(Endpoint, outcome).Inc()
	w.Header().Set("Cache-Control", "no-store")
	apperrors.WriteJSON(w, http.StatusOK, output.StyleResponse)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*Input, *apperrors.StandardError) {
	limit := h.config.MaxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return nil, apperrors.NewInvalidRequestBodyError(fmt.Sprintf("read body: %v", err))
	}
	if strings.TrimSpace(string(raw)) == "" {
		return &Input{}, nil
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, apperrors.NewInvalidRequestBodyError(fmt.Sprintf("invalid JSON: %v", err))
	}
	if result := validation.ValidateInput(envelope, requestSchema()); !result.Valid {
		return nil, apperrors.NewInvalidRequestBodyError(result.Summary())
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, apperrors.NewInvalidRequestBodyError(fmt.Sprintf("invalid envelope: %v", err))
	}
	return &input, nil
}

// Execute interprets a free-text style description. It never fails: an
// unusable answer keeps the current design.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	return h.execute(ctx, input, "")
}

func (h *Handler) execute(ctx context.Context, input *Input, acceptLanguage string) *Output {
	ctx, span := h.obs.StartSpan(ctx, "style.execute")
	defer span.End()

	lang := i18n.Detect(i18n.Hints{
		Explicit:       input.Lang,
		Message:        input.UserText,
		AcceptLanguage: acceptLanguage,
	})

	start := time.Now()
	raw, err := h.gateway.Complete(ctx, h.buildRequest(input))
	if err != nil {
		var gerr *gateway.Error
		if !errors.As(err, &gerr) {
			gerr = &gateway.Error{Kind: gateway.KindNetwork, Provider: h.gateway.Provider(), Err: err}
		}
		return h.degrade(ctx, input, lang, gerr.StandardError())
	}
	h.obs.RecordStage(ctx, "complete", metrics.OutcomeOK, time.Since(start))

	extracted := proposal.ExtractJSON(raw)
	if !extracted.OK {
		metrics.ExtractionFailures.WithLabelValues(string(extracted.Reason)).Inc()
		stdErr := apperrors.NewOutputMalformedError(excerpt(raw))
		if extracted.Reason == proposal.Truncated {
			stdErr = apperrors.NewOutputTruncatedError(excerpt(raw))
		}
		return h.degrade(ctx, input, lang, stdErr)
	}

	diff := h.pipeline.Normalizer.Normalize(diffOf(extracted.Value), map[string]interface{}{})
	design, report := h.pipeline.BuildDesign(input.CurrentDesign, diff)
	if len(report.Fixes) > 0 {
		h.logger.Info("repaired style tokens", map[string]interface{}{"fixes": report.Fixes})
	}
	if len(report.Violations) > 0 {
		h.logger.Warn("design does not conform to schema", map[string]interface{}{"violations": report.Violations})
	}

	out := &Output{Lang: lang}
	out.DesignSpecDiff = diff
	out.DesignSpec = design
	return out
}

// diffOf reads designSpecDiff out of the answer. A bare design object is
// accepted as the diff itself.
func diffOf(obj map[string]interface{}) map[string]interface{} {
	if d, ok := obj["designSpecDiff"].(map[string]interface{}); ok {
		return d
	}
	for _, k := range designKeys {
		if _, ok := obj[k]; ok {
			return obj
		}
	}
	return map[string]interface{}{}
}

func (h *Handler) buildRequest(input *Input) gateway.Request {
	current := input.CurrentDesign
	if current == nil {
		current = map[string]interface{}{}
	}
	design, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		design = []byte("{}")
	}
	turn := strings.Join([]string{
		fmt.Sprintf("Texte utilisateur:\n\"\"\"%s\"\"\"", input.UserText),
		"\nDesign courant (contexte):\n" + string(design),
		"\nExigence: réponds STRICTEMENT { \"designSpecDiff\": { ... } }.",
	}, "\n")

	return gateway.Request{
		SystemPrompt: h.pack.System,
		FewShots:     h.pack.FewShots,
		UserTurn:     turn,
		Options: gateway.Options{
			Model:       h.config.Model,
			Temperature: h.pack.TemperatureOr(h.config.Temperature),
			JSONMode:    true,
		},
	}
}

func (h *Handler) degrade(ctx context.Context, input *Input, lang string, stdErr *apperrors.StandardError) *Output {
	design, _ := h.pipeline.BuildDesign(input.CurrentDesign, nil)

	h.logger.Warn("degraded response", map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"errorCategory": apperrors.GetErrorCategory(stdErr.Code),
		"details":       stdErr.Details,
		"requestId":     observability.RequestID(ctx),
	})
	h.recordIncident(ctx, stdErr, lang)

	out := &Output{Lang: lang, DegradedCode: string(stdErr.Code)}
	out.DesignSpecDiff = map[string]interface{}{}
	out.DesignSpec = design
	out.Reply = i18n.T(lang, i18n.KeyStyleFallback)
	return out
}

func (h *Handler) recordIncident(ctx context.Context, stdErr *apperrors.StandardError, lang string) {
	if _, ok := h.incidents.(observability.NopSink); ok {
		return
	}
	incident := observability.Incident{
		RequestID: observability.RequestID(ctx),
		Endpoint:  Endpoint,
		Code:      string(stdErr.Code),
		Category:  apperrors.GetErrorCategory(stdErr.Code),
		Provider:  h.gateway.Provider(),
		Lang:      lang,
		Detail:    stdErr.Details,
	}
	if status, ok := stdErr.Metadata["status"].(int); ok {
		incident.Status = status
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), incidentTimeout)
		defer cancel()
		if err := h.incidents.Record(ctx, incident); err != nil {
			h.logger.Warn("failed to record incident", map[string]interface{}{"error": err.Error()})
		}
	}()
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.ErrCodeInvalidRequestBody)).Inc()
		apperrors.NewErrorHandler(h.logger).HandleJobError(context.Background(), client, job,
			apperrors.NewInvalidRequestBodyError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output := h.Execute(ctx, &input)

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
