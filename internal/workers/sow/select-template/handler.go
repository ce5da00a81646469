// internal/workers/sow/select-template/handler.go
package selecttemplate

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"sow-workers/internal/common/errors"
	"sow-workers/internal/common/logger"
	"sow-workers/internal/common/metrics"
	"sow-workers/internal/common/observability"
	"sow-workers/internal/sow/audit"
	"sow-workers/internal/sow/engine"
	"sow-workers/internal/sow/windzone"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	TaskType = "select-sow-template"
)

// Auditor records selection attempts.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry) (uuid.UUID, error)
}

type Handler struct {
	config       *Config
	engine       *engine.Engine
	windZones    windzone.Repository
	auditor      Auditor
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

// NewHandler wires the worker. windZones and auditor may be nil, which
// disables jurisdiction enrichment and audit rows respectively.
func NewHandler(
	config *Config,
	eng *engine.Engine,
	windZones windzone.Repository,
	auditor Auditor,
	obs *observability.Observability,
	log logger.Logger,
) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		engine:       eng,
		windZones:    windZones,
		auditor:      auditor,
		obs:          obs,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	ctx, span := h.obs.StartSpan(ctx, TaskType, attribute.Int64("jobKey", job.Key))
	defer span.End()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewInvalidJobVariablesError(err), start)
		return
	}

	output, err := h.execute(ctx, job.Key, &input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.fail(ctx, client, job, err, start)
		return
	}

	span.SetAttributes(
		attribute.String("templateId", output.SelectedTemplateID),
		attribute.Int("confidenceScore", output.ConfidenceScore),
	)
	h.completeJob(ctx, client, job, output, start)
}

func (h *Handler) execute(ctx context.Context, jobKey int64, input *Input) (*Output, error) {
	raw := input.ProjectSpecifications
	if raw == nil {
		raw = map[string]interface{}{}
	}

	zone, err := h.resolveWindZone(ctx, input.Jurisdiction, raw)
	if err != nil {
		return nil, err
	}

	result, err := h.engine.SelectTemplateFromMap(raw)
	if err != nil {
		stdErr := engine.ToStandardError(err)
		status := audit.StatusFailed
		if stdErr.Code == errors.ErrCodeSpecValidation {
			status = audit.StatusRejected
		}
		h.record(ctx, audit.Entry{
			JobKey:        jobKey,
			EngineVersion: h.engine.Version(),
			Status:        status,
			Input:         raw,
			ErrorCode:     string(stdErr.Code),
		})
		return nil, stdErr
	}

	primary := result.PrimaryTemplate
	confidence := result.Metadata.ConfidenceScore
	metrics.TemplateSelections.WithLabelValues(primary.ID, result.Metadata.EngineVersion).Inc()
	metrics.SelectionConfidence.Observe(float64(confidence))
	h.obs.RecordSelection(ctx, primary.ID, confidence)

	h.logger.Info("template selected", map[string]interface{}{
		"jobKey":          jobKey,
		"templateId":      primary.ID,
		"score":           primary.SelectionScore,
		"confidenceScore": confidence,
		"fallbacks":       len(result.FallbackTemplates),
	})

	auditID := h.record(ctx, audit.Entry{
		JobKey:        jobKey,
		EngineVersion: result.Metadata.EngineVersion,
		Status:        audit.StatusSelected,
		Input:         raw,
		Result:        result,
	})

	return &Output{
		SelectedTemplateID: primary.ID,
		ConfidenceScore:    confidence,
		TemplateSelection:  result,
		WindZone:           zone,
		AuditID:            auditID,
	}, nil
}

// resolveWindZone enriches raw in place when it lacks a wind speed and a
// jurisdiction was supplied.
func (h *Handler) resolveWindZone(ctx context.Context, j *windzone.Jurisdiction, raw map[string]interface{}) (*windzone.WindZone, error) {
	if j == nil || h.windZones == nil || !windzone.NeedsLookup(raw) {
		return nil, nil
	}

	zone, err := h.windZones.Lookup(ctx, *j)
	switch {
	case err == nil:
	case stderrors.Is(err, windzone.ErrNotFound):
		return nil, errors.NewWindZoneNotFoundError(j.String())
	case stderrors.Is(err, context.DeadlineExceeded):
		return nil, errors.NewQueryTimeoutError("wind zone lookup", err)
	default:
		return nil, errors.NewWindZoneLookupFailedError(j.String(), err)
	}

	windzone.Enrich(raw, zone)
	h.logger.Debug("specifications enriched from jurisdiction", map[string]interface{}{
		"jurisdiction":    j.String(),
		"designWindSpeed": zone.DesignWindSpeed,
		"hvhz":            zone.HVHZ,
	})
	return zone, nil
}

// record writes an audit row. Failures are logged and never fail the job.
func (h *Handler) record(ctx context.Context, entry audit.Entry) string {
	if h.auditor == nil || !h.config.AuditEnabled {
		return ""
	}
	id, err := h.auditor.Record(ctx, entry)
	if err != nil {
		h.logger.Warn("failed to record selection audit", map[string]interface{}{
			"jobKey":          entry.JobKey,
			"status":          entry.Status,
			"connectionError": audit.IsConnectionError(err),
			"error":           err.Error(),
		})
		return ""
	}
	return id.String()
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, start time.Time) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		h.fail(ctx, client, job, errors.NewInternalError(err), start)
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	code := string(errors.ErrCodeInternal)
	if se, ok := errors.AsStandardError(err); ok {
		code = string(se.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, 0, input)
}
