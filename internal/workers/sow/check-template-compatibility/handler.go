// internal/workers/sow/check-template-compatibility/handler.go
package checkcompatibility

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"sow-workers/internal/common/errors"
	"sow-workers/internal/common/logger"
	"sow-workers/internal/common/metrics"
	"sow-workers/internal/common/observability"
	"sow-workers/internal/sow/engine"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	TaskType = "check-template-compatibility"
)

type Handler struct {
	config       *Config
	engine       *engine.Engine
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, eng *engine.Engine, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		engine:       eng,
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

	output, err := h.execute(ctx, &input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.fail(ctx, client, job, err, start)
		return
	}

	span.SetAttributes(
		attribute.String("templateId", output.Compatibility.TemplateID),
		attribute.Bool("compatible", output.Compatible),
		attribute.String("confidence", output.Compatibility.Confidence),
	)
	h.completeJob(ctx, client, job, output, start)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	templateID := strings.ToUpper(strings.TrimSpace(input.TemplateID))
	if templateID == "" {
		return nil, errors.NewSpecValidationError("templateId is required",
			[]engine.FieldError{{Field: "templateId", Message: "template id is required", Code: engine.CodeRequired}}, nil)
	}

	specs, err := h.engine.Normalize(input.ProjectSpecifications)
	if err != nil {
		return nil, engine.ToStandardError(err)
	}

	report, err := h.engine.CheckCompatibility(templateID, specs)
	if err != nil {
		return nil, engine.ToStandardError(err)
	}

	available := h.engine.AvailableTemplates(string(specs.ProjectType), string(specs.MembraneType))
	ids := make([]string, 0, len(available))
	for _, t := range available {
		ids = append(ids, t.ID)
	}

	h.logger.Info("compatibility checked", map[string]interface{}{
		"templateId": templateID,
		"compatible": report.Compatible,
		"confidence": report.Confidence,
		"warnings":   len(report.Warnings),
	})

	return &Output{
		Compatible:         report.Compatible,
		Compatibility:      report,
		AvailableTemplates: ids,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, start time.Time) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
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
	return h.execute(ctx, input)
}
