package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-auth/internal/jobs"
	"github.com/odyssey-erp/odyssey-auth/internal/role"
	"github.com/odyssey-erp/odyssey-auth/internal/store"
)

// TaskTemplateMigrate is the task type for rewriting stored roles against the
// application's current default-role template.
const TaskTemplateMigrate = "auth:template_migrate"

// TemplateMigratePayload selects the application whose roles are migrated.
type TemplateMigratePayload struct {
	App string `json:"app"`
}

// NewTemplateMigrateTask constructs an Asynq task.
func NewTemplateMigrateTask(app string) (*asynq.Task, error) {
	data, err := json.Marshal(TemplateMigratePayload{App: app})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTemplateMigrate, data), nil
}

// TemplateMigrateJob reshapes every stored role of an application to the
// application's current default-role template: the template supplies the tree
// structure, the stored role supplies the values for the names both sides
// know. Values the template no longer names are dropped, values it gained
// arrive with their defaults. Roles already in template shape are skipped, so
// the job is safe to re-run.
type TemplateMigrateJob struct {
	Store   store.Store
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewTemplateMigrateJob wires dependencies for the migration handler.
func NewTemplateMigrateJob(st store.Store, logger *slog.Logger, metrics *jobmetrics.Metrics) *TemplateMigrateJob {
	return &TemplateMigrateJob{
		Store:   st,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes template migration tasks.
func (j *TemplateMigrateJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("template migrate: handler not configured")
	}
	var payload TemplateMigratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.App == "" {
		payload.App = role.LocalApp
	}

	tracker := j.metrics().Track(TaskTemplateMigrate)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("app", payload.App))
	logger.Info("starting template migration")

	app, err := j.Store.FindAppByName(ctx, payload.App)
	if err != nil {
		resultErr = err
		logger.Error("load app", slog.Any("error", err))
		return resultErr
	}

	roles, err := j.collectRoles(ctx, app.ID)
	if err != nil {
		resultErr = err
		logger.Error("load roles", slog.Any("error", err))
		return resultErr
	}
	if len(roles) == 0 {
		logger.Info("no roles to migrate")
		return resultErr
	}

	started := j.now()
	migrated := 0
	for _, r := range roles {
		next := app.DefaultRole.Clone()
		r.Items.Merge(next)
		if reflect.DeepEqual(next, r.Items) {
			continue
		}
		if err := j.Store.UpdateRoleItems(ctx, r.ID, next); err != nil {
			resultErr = err
			logger.Error("update role", slog.String("role", r.Name), slog.Any("error", err))
			return resultErr
		}
		migrated++
	}
	j.metrics().AddMigrated(app.Name, migrated)

	logger.Info("completed template migration",
		slog.Int("roles", len(roles)),
		slog.Int("migrated", migrated),
		slog.Duration("duration", time.Since(started)))
	return resultErr
}

func (j *TemplateMigrateJob) collectRoles(ctx context.Context, appID string) ([]role.Role, error) {
	it, err := j.Store.ListRolesByApp(ctx, appID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = it.Close(ctx)
	}()

	var roles []role.Role
	for {
		r, err := it.Next(ctx)
		if errors.Is(err, store.ErrIteratorDone) {
			return roles, nil
		}
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
}

func (j *TemplateMigrateJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTemplateMigrate))
	}
	return slog.Default().With(slog.String("job", TaskTemplateMigrate))
}

func (j *TemplateMigrateJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *TemplateMigrateJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
