package perf

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/odyssey-erp/odyssey-auth/internal/jobs"
	"github.com/odyssey-erp/odyssey-auth/internal/role"
	"github.com/odyssey-erp/odyssey-auth/internal/store"
	"github.com/odyssey-erp/odyssey-auth/internal/store/memstore"
	"github.com/odyssey-erp/odyssey-auth/jobs"
)

func TestMigrationJobThroughputAndReliability(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	appID, err := store.Seed(ctx, st)
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if _, err := st.InsertRole(ctx, role.Role{
		App:   appID,
		Name:  "drifted",
		Items: role.RoleItems{{Name: "legacy", Values: role.Values{{Name: "flag", Data: role.Boolean(true)}}}},
	}); err != nil {
		t.Fatalf("insert role: %v", err)
	}

	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := jobs.NewTemplateMigrateJob(st, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)

	task, err := jobs.NewTemplateMigrateTask(role.LocalApp)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	// The first run rewrites the drifted role; the rest find everything
	// already in shape and fall through as cheap no-ops.
	for i := 0; i < 30; i++ {
		if err := job.Handle(ctx, task); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	ghost, err := jobs.NewTemplateMigrateTask("ghost")
	if err != nil {
		t.Fatalf("create ghost task: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := job.Handle(ctx, ghost); err == nil {
			t.Fatal("expected a failure for the unknown application")
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	success := metricValue(t, families, "authd_jobs_total", map[string]string{"job": jobs.TaskTemplateMigrate, "status": "success"})
	failure := metricValue(t, families, "authd_jobs_total", map[string]string{"job": jobs.TaskTemplateMigrate, "status": "failure"})
	if success != 30 || failure != 3 {
		t.Fatalf("unexpected run counts: success=%f failure=%f", success, failure)
	}
	if ratio := success / (success + failure); ratio < 0.9 {
		t.Fatalf("migration success ratio too low: %f", ratio)
	}

	if migrated := metricValue(t, families, "authd_roles_migrated_total", map[string]string{"app": role.LocalApp}); migrated != 1 {
		t.Fatalf("expected exactly one role rewrite across all runs, got %f", migrated)
	}

	if mean := histogramMean(t, families, "authd_job_duration_seconds", map[string]string{"job": jobs.TaskTemplateMigrate}); mean > 0.5 {
		t.Fatalf("migration run duration above budget: %f", mean)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if metric.GetCounter() != nil && hasLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if !hasLabels(metric, labels) {
				continue
			}
			hist := metric.GetHistogram()
			if hist == nil || hist.GetSampleCount() == 0 {
				t.Fatalf("histogram %s missing samples", name)
			}
			return hist.GetSampleSum() / float64(hist.GetSampleCount())
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	seen := make(map[string]string, len(metric.GetLabel()))
	for _, pair := range metric.GetLabel() {
		seen[pair.GetName()] = pair.GetValue()
	}
	for k, v := range labels {
		if seen[k] != v {
			return false
		}
	}
	return true
}
