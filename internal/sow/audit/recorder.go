// Package audit persists one sow_generations row per template selection job.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"sow-workers/internal/sow/engine"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	StatusSelected = "selected"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

const insertGeneration = `
	INSERT INTO sow_generations
		(id, job_key, template_id, confidence_score, engine_version, status, input_specs, result, error_code)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Entry is one selection attempt. Result is nil unless Status is
// StatusSelected.
type Entry struct {
	JobKey        int64
	EngineVersion string
	Status        string
	Input         interface{}
	Result        *engine.TemplateSelectionResult
	ErrorCode     string
}

type Recorder struct {
	db    *sql.DB
	newID func() uuid.UUID
}

func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db, newID: uuid.New}
}

// Record inserts entry and returns the generated row id.
func (r *Recorder) Record(ctx context.Context, entry Entry) (uuid.UUID, error) {
	id := r.newID()

	input, err := json.Marshal(entry.Input)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode input specs: %w", err)
	}

	var (
		templateID sql.NullString
		confidence sql.NullInt64
		result     []byte
		errorCode  sql.NullString
	)
	if entry.Result != nil {
		templateID = sql.NullString{String: entry.Result.PrimaryTemplate.ID, Valid: true}
		confidence = sql.NullInt64{Int64: int64(entry.Result.Metadata.ConfidenceScore), Valid: true}
		if result, err = json.Marshal(entry.Result); err != nil {
			return uuid.Nil, fmt.Errorf("encode selection result: %w", err)
		}
	}
	if entry.ErrorCode != "" {
		errorCode = sql.NullString{String: entry.ErrorCode, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, insertGeneration,
		id.String(),
		entry.JobKey,
		templateID,
		confidence,
		entry.EngineVersion,
		entry.Status,
		string(input),
		nullableJSON(result),
		errorCode,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert sow_generations: %w", err)
	}
	return id, nil
}

func nullableJSON(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}

// IsConnectionError reports whether err is a postgres connection exception
// (SQLSTATE class 08) or a dropped connection.
func IsConnectionError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08"
	}
	return errors.Is(err, sql.ErrConnDone)
}
