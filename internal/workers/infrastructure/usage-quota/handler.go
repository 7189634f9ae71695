// internal/workers/infrastructure/usage-quota/handler.go
package usagequota

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	apperrors "propoflash/internal/common/errors"
	"propoflash/internal/common/logger"
	"propoflash/internal/common/metrics"
)

const (
	TaskType = "usage-quota"

	defaultPlan = "free"
)

var (
	ErrQuotaExceeded    = errors.New("QUOTA_EXCEEDED")
	ErrQuotaCheckFailed = errors.New("QUOTA_CHECK_FAILED")
)

// Decision labels for metrics.QuotaDecisions.
const (
	decisionAllowed = "allowed"
	decisionDenied  = "denied"
	decisionSkipped = "skipped"
	decisionError   = "error"
)

// Handler counts requests per user and month against the plan allowance
// stored in Postgres.
type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, db *sql.DB, redis *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  redis,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    time.Now,
	}
}

// Consume charges one request to userID. It returns a QUOTA_EXCEEDED
// StandardError when the allowance is used up. Store failures are logged
// and let the request through.
func (h *Handler) Consume(ctx context.Context, userID string) error {
	if userID == "" || h.redis == nil {
		metrics.QuotaDecisions.WithLabelValues(decisionSkipped).Inc()
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()

	out, err := h.execute(ctx, &Input{UserID: userID})
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		metrics.QuotaDecisions.WithLabelValues(decisionDenied).Inc()
		h.logger.Info("quota exceeded", map[string]interface{}{
			"userId":    userID,
			"plan":      out.Plan,
			"used":      out.Used,
			"allowance": out.Allowance,
		})
		return apperrors.NewQuotaExceededError(userID, out.Used, out.Allowance).
			WithMetadata("plan", out.Plan)
	case err != nil:
		metrics.QuotaDecisions.WithLabelValues(decisionError).Inc()
		h.logger.Warn("quota check failed, allowing request", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return nil
	default:
		metrics.QuotaDecisions.WithLabelValues(decisionAllowed).Inc()
		return nil
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

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout())
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil && !errors.Is(err, ErrQuotaExceeded) {
		h.failJob(client, job, apperrors.NewQuotaCheckFailedError(err))
		return
	}

	h.completeJob(client, job, output)
}

// execute returns the decision together with ErrQuotaExceeded when denied.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if h.redis == nil {
		return nil, fmt.Errorf("%w: no redis client", ErrQuotaCheckFailed)
	}

	plan, err := h.lookupPlan(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	key := usageKey(input.UserID, h.now())
	used, err := h.redis.Incr(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: incr %s: %v", ErrQuotaCheckFailed, key, err)
	}
	if used == 1 {
		if err := h.redis.Expire(ctx, key, h.config.UsageTTL).Err(); err != nil {
			h.logger.Warn("failed to set usage expiry", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	out := &Output{Allowed: true, Plan: plan.Name, Used: used, Allowance: plan.Allowance}
	if plan.Allowance >= 0 && used > plan.Allowance {
		// Denied requests are not charged.
		if err := h.redis.Decr(ctx, key).Err(); err != nil {
			h.logger.Warn("failed to refund denied request", map[string]interface{}{"key": key, "error": err.Error()})
		} else {
			out.Used = used - 1
		}
		out.Allowed = false
		return out, ErrQuotaExceeded
	}
	return out, nil
}

func (h *Handler) lookupPlan(ctx context.Context, userID string) (Plan, error) {
	cacheKey := "plan:" + userID
	if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
		var plan Plan
		if err := json.Unmarshal([]byte(val), &plan); err == nil {
			return plan, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return Plan{}, fmt.Errorf("%w: read plan cache: %v", ErrQuotaCheckFailed, err)
	}

	plan := Plan{Name: defaultPlan, Allowance: h.config.DefaultAllowance}
	if h.db != nil {
		query := `SELECT plan, monthly_allowance FROM user_profiles WHERE user_id = $1`
		err := h.db.QueryRowContext(ctx, query, userID).Scan(&plan.Name, &plan.Allowance)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return Plan{}, fmt.Errorf("%w: %v", ErrQuotaCheckFailed, err)
		}
		if errors.Is(err, sql.ErrNoRows) {
			plan = Plan{Name: defaultPlan, Allowance: h.config.DefaultAllowance}
		}
	}

	data, _ := json.Marshal(plan)
	if err := h.redis.Set(ctx, cacheKey, data, h.config.PlanCacheTTL).Err(); err != nil {
		h.logger.Warn("failed to cache plan", map[string]interface{}{"userId": userID, "error": err.Error()})
	}
	return plan, nil
}

func (h *Handler) timeout() time.Duration {
	if h.config.Timeout <= 0 {
		return 2 * time.Second
	}
	return h.config.Timeout
}

func usageKey(userID string, now time.Time) string {
	return fmt.Sprintf("usage:%s:%s", userID, now.UTC().Format("2006-01"))
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *apperrors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	apperrors.NewErrorHandler(h.logger).HandleJobError(context.Background(), client, job, stdErr)
}
