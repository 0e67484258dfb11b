package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerRejectsInvalidCronSpec(t *testing.T) {
	task, err := NewRolesResyncTask("http://localhost:8080/v1/admin/resync", "local-default")
	require.NoError(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Logger:    discardLogger(),
		Cron:      []CronRegistration{{Spec: "definitely not cron", Task: task}},
	})
	require.Error(t, err)
}

func TestNewWorkerAcceptsSchedule(t *testing.T) {
	task, err := NewRolesResyncTask("http://localhost:8080/v1/admin/resync", "local-default")
	require.NoError(t, err)

	w, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Logger:    discardLogger(),
		Handlers:  []TaskHandler{{Type: TaskRolesResync, Handler: func(context.Context, *asynq.Task) error { return nil }}},
		Cron:      []CronRegistration{{Spec: "@every 10m", Task: task, Options: []asynq.Option{asynq.MaxRetry(3)}}},
	})
	require.NoError(t, err)
	require.NotNil(t, w)
}

func TestClientEnqueuesTasks(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})

	info, err := client.EnqueueTemplateMigrate(context.Background(), "local")
	require.NoError(t, err)
	require.Equal(t, TaskTemplateMigrate, info.Type)
	require.Equal(t, QueueDefault, info.Queue)

	info, err = client.EnqueueRolesResync(context.Background(), "http://localhost:8080/v1/admin/resync", "local-default")
	require.NoError(t, err)
	require.Equal(t, TaskRolesResync, info.Type)
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, discardLogger())
	r := chi.NewRouter()
	r.Route("/v1/jobs", func(sub chi.Router) {
		h.MountRoutes(sub)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

func TestJobsHealthReportsMissingQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	insp := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = insp.Close()
	})

	h := NewHandler(insp, discardLogger())
	r := chi.NewRouter()
	r.Route("/v1/jobs", func(sub chi.Router) {
		h.MountRoutes(sub)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
