// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler fails or throws a job according to the error's retry policy.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// JobAction is the outcome chosen for a failed job.
type JobAction int

const (
	ActionThrow JobAction = iota
	ActionRetry
)

// Decide picks between retrying the job and throwing a BPMN error. Retries
// are counted down from the job's remaining retries and capped by the code's
// policy, so a retryable error is thrown once the job runs out.
func Decide(job entities.Job, err error) (JobAction, *BPMNError, int) {
	bpmnErr := ConvertToBPMNError(normalizeError(err))

	remaining := 0
	if job.ActivatedJob != nil {
		remaining = int(job.Retries) - 1
	}
	if remaining > bpmnErr.Retries {
		remaining = bpmnErr.Retries
	}
	if bpmnErr.Retryable && remaining > 0 {
		return ActionRetry, bpmnErr, remaining
	}
	return ActionThrow, bpmnErr, 0
}

// HandleJobError reports err for job to Zeebe.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	action, bpmnErr, retries := Decide(job, err)
	h.logError(job, bpmnErr, action, retries)

	vars, marshalErr := json.Marshal(bpmnErr.ToErrorVariables())
	if marshalErr != nil {
		vars = nil
	}

	switch action {
	case ActionRetry:
		cmd := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(int32(retries)).
			ErrorMessage(bpmnErr.Message)
		if vars != nil {
			if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
				if _, err := withVars.Send(ctx); err != nil {
					h.sendFailed("fail", job, err)
				}
				return
			}
		}
		if _, err := cmd.Send(ctx); err != nil {
			h.sendFailed("fail", job, err)
		}
	default:
		cmd := client.NewThrowErrorCommand().
			JobKey(job.Key).
			ErrorCode(bpmnErr.Code).
			ErrorMessage(bpmnErr.Message)
		if vars != nil {
			if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
				if _, err := withVars.Send(ctx); err != nil {
					h.sendFailed("throw", job, err)
				}
				return
			}
		}
		if _, err := cmd.Send(ctx); err != nil {
			h.sendFailed("throw", job, err)
		}
	}
}

func normalizeError(err error) *StandardError {
	if se, ok := AsStandardError(err); ok {
		return se
	}
	return NewInternalError(err)
}

func (h *ErrorHandler) logError(job entities.Job, bpmnErr *BPMNError, action JobAction, retries int) {
	fields := map[string]interface{}{
		"bpmnErrorCode": bpmnErr.Code,
		"message":       bpmnErr.Message,
		"details":       bpmnErr.Details,
		"retryable":     bpmnErr.Retryable,
		"retries":       retries,
		"thrown":        action == ActionThrow,
	}
	if code, ok := bpmnErr.ErrorVariables["originalErrorCode"].(string); ok {
		fields["errorCode"] = code
		fields["errorCategory"] = GetErrorCategory(ErrorCode(code))
	}
	if job.ActivatedJob != nil {
		fields["jobKey"] = job.Key
		fields["jobType"] = job.Type
		fields["processInstanceKey"] = job.ProcessInstanceKey
	}
	h.logger.Error("job failed", fields)
}

func (h *ErrorHandler) sendFailed(command string, job entities.Job, err error) {
	h.logger.Error("failed to send job command", map[string]interface{}{
		"command": command,
		"jobKey":  job.GetKey(),
		"error":   err.Error(),
	})
}
