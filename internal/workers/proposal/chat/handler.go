// internal/workers/proposal/chat/handler.go
package chat

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
	"propoflash/internal/models"
	"propoflash/internal/proposal"
)

const (
	TaskType = "proposal-chat"
	Endpoint = "/api/chat"

	// DegradedHeader carries the error code when a 200 answer is a fallback.
	DegradedHeader = "X-PropoFlash-Degraded"

	incidentTimeout = 2 * time.Second
)

// Quota charges one request to a caller.
type Quota interface {
	Consume(ctx context.Context, userID string) error
}

type Handler struct {
	config    *Config
	gateway   gateway.Gateway
	pack      gateway.Pack
	pipeline  *proposal.Pipeline
	quota     Quota
	incidents observability.IncidentSink
	obs       *observability.Observability
	logger    logger.Logger
}

type Option func(*Handler)

func WithQuota(q Quota) Option { return func(h *Handler) { h.quota = q } }

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
	if input.UserID == "" {
		input.UserID = r.Header.Get("X-User-ID")
	}

	output, err := h.execute(r.Context(), input, r.Header.Get("Accept-Language"))
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(Endpoint, metrics.OutcomeRejected).Inc()
		h.writeRejection(w, err, output)
		return
	}

	outcome := metrics.OutcomeOK
	if output.DegradedCode != "" {
		outcome = metrics.OutcomeDegraded
		w.Header().Set(DegradedHeader, output.DegradedCode)
	}
	metrics.RequestsTotal.WithLabelValues(Endpoint, outcome).Inc()
	apperrors.WriteJSON(w, http.StatusOK, output.ChatResponse)
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
	if len(strings.TrimSpace(string(raw))) == 0 {
		return &Input{}, nil
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, apperrors.NewInvalidRequestBodyError(fmt.Sprintf("invalid JSON: %v", err))
	}
	if envelope == nil {
		return &Input{}, nil
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

func (h *Handler) writeRejection(w http.ResponseWriter, err error, output *Output) {
	stdErr := apperrors.Normalize(err)
	if stdErr.Code != apperrors.ErrCodeQuotaExceeded {
		apperrors.WriteError(w, stdErr)
		return
	}
	lang := i18n.Fallback
	if output != nil {
		lang = output.Lang
	}
	apperrors.WriteJSON(w, http.StatusPaymentRequired, apperrors.ErrorBody{
		Error:   stdErr.Message,
		Code:    stdErr.Code,
		Reply:   i18n.T(lang, i18n.KeyQuotaExceeded),
		Actions: []map[string]interface{}{{"type": "upgrade"}},
	})
}

// Execute runs one chat turn. The only error it returns is a quota
// rejection; every other failure yields a fallback Output.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input, "")
}

func (h *Handler) execute(ctx context.Context, input *Input, acceptLanguage string) (*Output, error) {
	ctx, span := h.obs.StartSpan(ctx, "chat.execute")
	defer span.End()

	lang := i18n.Detect(i18n.Hints{
		Explicit:       input.Lang,
		Prior:          input.ProposalSpec,
		Message:        input.Message,
		AcceptLanguage: acceptLanguage,
	})

	if h.quota != nil && input.UserID != "" {
		if err := h.quota.Consume(ctx, input.UserID); err != nil {
			var stdErr *apperrors.StandardError
			if errors.As(err, &stdErr) && stdErr.Code == apperrors.ErrCodeQuotaExceeded {
				return &Output{Lang: lang}, stdErr
			}
			h.logger.Warn("quota check error ignored", map[string]interface{}{"error": err.Error()})
		}
	}

	start := time.Now()
	raw, err := h.gateway.Complete(ctx, h.buildRequest(input))
	if err != nil {
		var gerr *gateway.Error
		if !errors.As(err, &gerr) {
			gerr = &gateway.Error{Kind: gateway.KindNetwork, Provider: h.gateway.Provider(), Err: err}
		}
		key := i18n.KeyFallbackReply
		if gerr.Kind == gateway.KindMissingCredentials {
			key = i18n.KeyMissingCredentials
		}
		return h.degrade(ctx, input, lang, gerr.StandardError(), key), nil
	}
	h.obs.RecordStage(ctx, "complete", metrics.OutcomeOK, time.Since(start))

	start = time.Now()
	extracted := proposal.ExtractJSON(raw)
	if !extracted.OK {
		metrics.ExtractionFailures.WithLabelValues(string(extracted.Reason)).Inc()
		h.obs.RecordStage(ctx, "extract", string(extracted.Reason), time.Since(start))
		stdErr := apperrors.NewOutputMalformedError(excerpt(raw))
		if extracted.Reason == proposal.Truncated {
			stdErr = apperrors.NewOutputTruncatedError(excerpt(raw))
		}
		return h.degrade(ctx, input, lang, stdErr, i18n.KeyFallbackReply), nil
	}

	env := h.pipeline.SplitEnvelope(extracted.Value)
	doc, report := h.pipeline.BuildProposal(input.ProposalSpec, env.Spec, lang)
	h.obs.RecordStage(ctx, "assemble", metrics.OutcomeOK, time.Since(start))
	h.logReport(report)

	reply := strings.TrimSpace(env.Reply)
	if reply == "" {
		reply = i18n.T(lang, i18n.KeyDefaultReply)
	}

	return &Output{
		ChatResponse: models.ChatResponse{
			Reply:        reply,
			ProposalSpec: doc,
			Actions:      toActions(env.Actions),
			Memory:       input.Memory,
		},
		Lang: lang,
	}, nil
}

func (h *Handler) buildRequest(input *Input) gateway.Request {
	req := gateway.Request{
		SystemPrompt: h.pack.System,
		FewShots:     h.pack.FewShots,
		History:      sanitizeHistory(input.History, h.config.HistoryLimit),
		UserTurn:     input.Message,
		Options: gateway.Options{
			Model:       h.config.Model,
			Temperature: h.pack.TemperatureOr(h.config.Temperature),
			JSONMode:    true,
		},
	}
	if input.ProposalSpec != nil {
		if b, err := json.Marshal(input.ProposalSpec); err == nil {
			req.Context = append(req.Context, "Spec actuelle:\n"+string(b))
		}
	}
	if len(input.Memory) > 0 {
		if b, err := json.Marshal(input.Memory); err == nil {
			req.Context = append(req.Context, "Mémoire:\n"+string(b))
		}
	}
	return req
}

// sanitizeHistory keeps the last limit non-empty turns. Any role other than
// assistant is sent as user.
func sanitizeHistory(history []models.Message, limit int) []gateway.Message {
	out := make([]gateway.Message, 0, len(history))
	for _, m := range history {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := gateway.RoleUser
		if m.Role == models.RoleAssistant {
			role = gateway.RoleAssistant
		}
		out = append(out, gateway.Message{Role: role, Content: content})
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// degrade answers with the fallback document and the caller's prior state
// merged back in.
func (h *Handler) degrade(ctx context.Context, input *Input, lang string, stdErr *apperrors.StandardError, key i18n.Key) *Output {
	reply, fallback := proposal.Fallback(lang, proposal.DefaultProposal(), key)
	doc, _ := h.pipeline.BuildProposal(proposal.DeepMerge(fallback, input.ProposalSpec), nil, lang)

	h.logger.Warn("degraded response", map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"errorCategory": apperrors.GetErrorCategory(stdErr.Code),
		"details":       stdErr.Details,
		"lang":          lang,
		"requestId":     observability.RequestID(ctx),
	})
	h.recordIncident(ctx, stdErr, lang)

	return &Output{
		ChatResponse: models.ChatResponse{
			Reply:        reply,
			ProposalSpec: doc,
			Actions:      []models.Action{},
			Memory:       input.Memory,
		},
		Lang:         lang,
		DegradedCode: string(stdErr.Code),
	}
}

func (h *Handler) recordIncident(ctx context.Context, stdErr *apperrors.StandardError, lang string) {
	if _, ok := h.incidents.(observability.NopSink); ok {
		return
	}
	incident := observability.Incident{
		Endpoint: Endpoint,
		Code:     string(stdErr.Code),
		Category: apperrors.GetErrorCategory(stdErr.Code),
		Provider: h.gateway.Provider(),
		Lang:     lang,
		Detail:   stdErr.Details,
	}
	if status, ok := stdErr.Metadata["status"].(int); ok {
		incident.Status = status
	}
	incident.RequestID = observability.RequestID(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), incidentTimeout)
		defer cancel()
		if err := h.incidents.Record(ctx, incident); err != nil {
			h.logger.Warn("failed to record incident", map[string]interface{}{"error": err.Error()})
		}
	}()
}

func (h *Handler) logReport(report proposal.Report) {
	if len(report.Fixes) > 0 {
		h.logger.Info("repaired style tokens", map[string]interface{}{"fixes": report.Fixes})
	}
	if len(report.Violations) > 0 {
		h.logger.Warn("document does not conform to schema", map[string]interface{}{"violations": report.Violations})
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, apperrors.NewInvalidRequestBodyError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}
	h.completeJob(client, job, output)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	apperrors.NewErrorHandler(h.logger).HandleJobError(context.Background(), client, job, stdErr)
}

func toActions(in []interface{}) []models.Action {
	out := make([]models.Action, 0, len(in))
	for _, a := range in {
		if m, ok := a.(map[string]interface{}); ok {
			out = append(out, models.Action(m))
		}
	}
	return out
}

func excerpt(s string) string {
	const max = 200
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max]
	}
	return s
}
