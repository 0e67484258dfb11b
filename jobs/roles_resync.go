package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-auth/internal/authz"
	jobmetrics "github.com/odyssey-erp/odyssey-auth/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// TaskRolesResync is the task type for the periodic cache reconciliation job.
const TaskRolesResync = "auth:roles_resync"

// RolesResyncPayload names the admin endpoint to hit and the role list the
// request presents to pass the guard.
type RolesResyncPayload struct {
	Endpoint string `json:"endpoint"`
	Roles    string `json:"roles"`
}

// NewRolesResyncTask constructs an Asynq task.
func NewRolesResyncTask(endpoint, roles string) (*asynq.Task, error) {
	data, err := json.Marshal(RolesResyncPayload{Endpoint: endpoint, Roles: roles})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRolesResync, data), nil
}

// RolesResyncJob posts to the authd admin resync endpoint so API nodes reload
// their role caches even when the store cannot deliver change notifications.
type RolesResyncJob struct {
	Client  *http.Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewRolesResyncJob wires dependencies for the resync handler.
func NewRolesResyncJob(client *http.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *RolesResyncJob {
	return &RolesResyncJob{Client: client, Logger: logger, Metrics: metrics}
}

// Handle processes roles resync tasks.
func (j *RolesResyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("roles resync: handler not configured")
	}
	var payload RolesResyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Endpoint == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskRolesResync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("endpoint", payload.Endpoint))
	logger.Info("starting roles resync")

	reqCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, payload.Endpoint, nil)
	if err != nil {
		resultErr = fmt.Errorf("roles resync: build request: %w", err)
		return resultErr
	}
	if payload.Roles != "" {
		req.Header.Set(authz.RoleHeader, payload.Roles)
	}

	resp, err := j.client().Do(req)
	if err != nil {
		resultErr = fmt.Errorf("roles resync: post: %w", err)
		logger.Error("resync request failed", slog.Any("error", err))
		return resultErr
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resultErr = fmt.Errorf("roles resync: endpoint returned %s", resp.Status)
		logger.Error("resync rejected", slog.Int("status", resp.StatusCode))
		return resultErr
	}

	var out struct {
		Roles int `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if !errors.Is(err, io.EOF) {
			logger.Warn("decode resync response", slog.Any("error", err))
		}
		return resultErr
	}
	logger.Info("completed roles resync", slog.Int("roles", out.Roles))
	return resultErr
}

func (j *RolesResyncJob) client() *http.Client {
	if j.Client != nil {
		return j.Client
	}
	return http.DefaultClient
}

func (j *RolesResyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRolesResync))
	}
	return slog.Default().With(slog.String("job", TaskRolesResync))
}

func (j *RolesResyncJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
