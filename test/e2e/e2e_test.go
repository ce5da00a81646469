//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sow-workers/internal/common/camunda"
	"sow-workers/internal/common/config"
	"sow-workers/internal/common/database"
	"sow-workers/internal/common/logger"
	"sow-workers/internal/common/observability"
	"sow-workers/internal/sow/audit"
	"sow-workers/internal/sow/engine"
	"sow-workers/internal/sow/windzone"

	ctc "sow-workers/internal/workers/sow/check-template-compatibility"
	sst "sow-workers/internal/workers/sow/select-template"
)

const processID = "sow-template-selection"

// Test jurisdictions are prefixed so cleanup never touches real data.
var seedZones = []windzone.WindZone{
	{State: "ZZ", County: "", DesignWindSpeed: 110, ExposureCategory: "C", CodeReference: "ASCE 7-22"},
	{State: "ZZ", County: "coastal", DesignWindSpeed: 175, HVHZ: true, ExposureCategory: "D", CodeReference: "ASCE 7-22"},
}

type env struct {
	cfg       *config.Config
	pg        *database.PostgresClient
	redis     *database.RedisClient
	engine    *engine.Engine
	windZones *windzone.CachedRepository
	recorder  *audit.Recorder
	log       logger.Logger
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	cfg, err := config.Load()
	require.NoError(t, err)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	require.NoError(t, pg.Ping(ctx), "postgres unreachable")
	require.NoError(t, pg.EnsureSchema(ctx))

	redis, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	require.NoError(t, redis.Ping(ctx), "redis unreachable")

	seedWindZones(t, pg)

	eng, err := engine.New()
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	e := &env{
		cfg:       cfg,
		pg:        pg,
		redis:     redis,
		engine:    eng,
		windZones: windzone.NewCachedRepository(windzone.NewPostgresRepository(pg.DB), redis, time.Minute, log),
		recorder:  audit.NewRecorder(pg.DB),
		log:       log,
	}

	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pg.DB.ExecContext(ctx, `DELETE FROM wind_zones WHERE state = 'ZZ'`)
		_ = redis.Del(ctx, "sow:windzone:ZZ:", "sow:windzone:ZZ:coastal")
		redis.Close()
		pg.Close()
	})
	return e
}

func seedWindZones(t *testing.T, pg *database.PostgresClient) {
	t.Helper()
	for _, z := range seedZones {
		_, err := pg.DB.ExecContext(context.Background(), `
			INSERT INTO wind_zones (state, county, design_wind_speed, hvhz, exposure_category, code_reference)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (state, county) DO UPDATE SET
				design_wind_speed = EXCLUDED.design_wind_speed,
				hvhz = EXCLUDED.hvhz`,
			z.State, z.County, z.DesignWindSpeed, z.HVHZ, z.ExposureCategory, z.CodeReference)
		require.NoError(t, err)
	}
}

func (e *env) selectHandler() *sst.Handler {
	return sst.NewHandler(&sst.Config{Timeout: 10 * time.Second, AuditEnabled: true},
		e.engine, e.windZones, e.recorder, observability.NewNoop(), e.log)
}

// ==========================
// Handler against real stores
// ==========================

func TestSelectTemplate_WindZoneAndAudit(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	handler := e.selectHandler()

	tests := []struct {
		name         string
		county       string
		wantSpeed    float64
		wantTemplate string
	}{
		{name: "state wide row", county: "", wantSpeed: 110, wantTemplate: "T2"},
		{name: "hvhz county row", county: "Coastal County", wantSpeed: 175, wantTemplate: "T3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := handler.Execute(ctx, &sst.Input{
				ProjectSpecifications: map[string]interface{}{
					"projectType":  "tearoff",
					"roofArea":     8000.0,
					"membraneType": "TPO",
				},
				Jurisdiction: &windzone.Jurisdiction{State: "zz", County: tt.county},
			})
			require.NoError(t, err)
			require.NotNil(t, output.WindZone)
			assert.Equal(t, tt.wantSpeed, output.WindZone.DesignWindSpeed)
			assert.Equal(t, tt.wantTemplate, output.SelectedTemplateID)
			require.NotEmpty(t, output.AuditID)

			var (
				status, templateID string
				confidence         int
				result             []byte
			)
			err = e.pg.DB.QueryRowContext(ctx,
				`SELECT status, template_id, confidence_score, result FROM sow_generations WHERE id = $1`,
				output.AuditID).Scan(&status, &templateID, &confidence, &result)
			require.NoError(t, err)
			assert.Equal(t, audit.StatusSelected, status)
			assert.Equal(t, tt.wantTemplate, templateID)
			assert.Equal(t, output.ConfidenceScore, confidence)
			assert.Contains(t, string(result), tt.wantTemplate)
		})
	}
}

func TestSelectTemplate_CachedLookupSurvivesRowChange(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	first, err := e.windZones.Lookup(ctx, windzone.Jurisdiction{State: "ZZ"})
	require.NoError(t, err)

	_, err = e.pg.DB.ExecContext(ctx, `UPDATE wind_zones SET design_wind_speed = 130 WHERE state = 'ZZ' AND county = ''`)
	require.NoError(t, err)

	second, err := e.windZones.Lookup(ctx, windzone.Jurisdiction{State: "ZZ"})
	require.NoError(t, err)
	assert.Equal(t, first.DesignWindSpeed, second.DesignWindSpeed, "second lookup should be served from redis")
}

func TestSelectTemplate_RejectedIsAudited(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	var before int
	require.NoError(t, e.pg.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sow_generations WHERE status = $1`, audit.StatusRejected).Scan(&before))

	_, err := e.selectHandler().Execute(ctx, &sst.Input{
		ProjectSpecifications: map[string]interface{}{"projectType": "demolition", "roofArea": -1},
	})
	require.Error(t, err)

	var after int
	require.NoError(t, e.pg.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sow_generations WHERE status = $1`, audit.StatusRejected).Scan(&after))
	assert.Equal(t, before+1, after)
}

// ==========================
// Full process through Zeebe
// ==========================

func TestProcess_SelectThenCheckCompatibility(t *testing.T) {
	e := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         e.cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: e.cfg.Camunda.Plaintext,
		ConnectionTimeout:      10 * time.Second,
	})
	require.NoError(t, err, "zeebe unreachable")
	defer client.Close()

	deployProcess(t, ctx, client.GetClient())

	workers := []*camunda.Worker{
		camunda.StartWorker(client.GetClient(), camunda.WorkerOptions{
			TaskType: sst.TaskType, MaxJobsActive: 4, Timeout: 30 * time.Second,
		}, e.selectHandler().Handle, e.log),
		camunda.StartWorker(client.GetClient(), camunda.WorkerOptions{
			TaskType: ctc.TaskType, MaxJobsActive: 4, Timeout: 30 * time.Second,
		}, ctc.NewHandler(&ctc.Config{Timeout: 10 * time.Second}, e.engine, observability.NewNoop(), e.log).Handle, e.log),
	}
	defer func() {
		for _, w := range workers {
			w.Stop()
		}
	}()

	cmd, err := client.GetClient().NewCreateInstanceCommand().
		BPMNProcessId(processID).
		LatestVersion().
		VariablesFromMap(map[string]interface{}{
			"projectSpecifications": map[string]interface{}{
				"projectType":  "tearoff",
				"roofArea":     8000,
				"windSpeed":    110,
				"membraneType": "TPO",
			},
		})
	require.NoError(t, err)

	result, err := cmd.WithResult().Send(ctx)
	require.NoError(t, err)

	var vars struct {
		SelectedTemplateID string `json:"selectedTemplateId"`
		ConfidenceScore    int    `json:"confidenceScore"`
		Compatible         bool   `json:"compatible"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.GetVariables()), &vars))
	assert.Equal(t, "T2", vars.SelectedTemplateID)
	assert.Equal(t, 70, vars.ConfidenceScore)
	assert.True(t, vars.Compatible)
}

func deployProcess(t *testing.T, ctx context.Context, client zbc.Client) {
	t.Helper()
	for _, dir := range []string{"bpmn", "../bpmn", "../../bpmn"} {
		path := filepath.Join(dir, processID+".bpmn")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_, err := client.NewDeployResourceCommand().AddResourceFile(path).Send(ctx)
		require.NoError(t, err, fmt.Sprintf("deploy %s", path))
		return
	}
	t.Fatalf("%s.bpmn not found", processID)
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkSelectTemplate(b *testing.B) {
	eng, err := engine.New()
	require.NoError(b, err)
	specs := map[string]interface{}{
		"projectType":  "tearoff",
		"roofArea":     8000,
		"windSpeed":    110,
		"membraneType": "TPO",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.SelectTemplateFromMap(specs); err != nil {
			b.Fatal(err)
		}
	}
}
