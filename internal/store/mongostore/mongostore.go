// Package mongostore implements the store contract on MongoDB. Roles and
// applications live in the roles and apps collections; change streams back
// the watch operation.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/odyssey-erp/odyssey-auth/internal/role"
	"github.com/odyssey-erp/odyssey-auth/internal/store"
)

const (
	appsCollection  = "apps"
	rolesCollection = "roles"
)

// Config carries the connection settings.
type Config struct {
	URI        string
	Database   string
	ClientName string
}

// Store is the MongoDB driver.
type Store struct {
	client *mongo.Client
	apps   *mongo.Collection
	roles  *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Connect dials MongoDB and verifies the deployment is reachable, pinging
// under exponential backoff until the server answers or the policy gives up.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ClientName != "" {
		opts = opts.SetAppName(cfg.ClientName)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 1 * time.Minute
	attempt := 1
	err = backoff.Retry(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			logger.Info("waiting for mongodb", slog.Int("attempt", attempt))
			attempt++
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return &Store{
		client: client,
		apps:   db.Collection(appsCollection),
		roles:  db.Collection(rolesCollection),
	}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) FindAppByName(ctx context.Context, name string) (role.App, error) {
	var rec appRecord
	err := s.apps.FindOne(ctx, bson.M{"name": name}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return role.App{}, store.ErrAppNotFound
	}
	if err != nil {
		return role.App{}, fmt.Errorf("mongostore: find app: %w", err)
	}
	return rec.toDomain()
}

func (s *Store) ListRolesByApp(ctx context.Context, appID string) (store.RoleIterator, error) {
	id, err := bson.ObjectIDFromHex(appID)
	if err != nil {
		return nil, fmt.Errorf("mongostore: parse app id: %w", err)
	}

	cur, err := s.roles.Find(ctx, bson.M{"app": id})
	if err != nil {
		return nil, fmt.Errorf("mongostore: find roles: %w", err)
	}
	return &roleIterator{cur: cur}, nil
}

func (s *Store) UpdateRoleItems(ctx context.Context, roleID string, items role.RoleItems) error {
	id, err := bson.ObjectIDFromHex(roleID)
	if err != nil {
		return fmt.Errorf("mongostore: parse role id: %w", err)
	}

	recs := itemsToRecords(items)
	if recs == nil {
		recs = []itemRecord{}
	}
	res, err := s.roles.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"items":     recs,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("mongostore: update role: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertApp(ctx context.Context, a role.App) (string, error) {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	rec, err := appToRecord(a)
	if err != nil {
		return "", err
	}
	res, err := s.apps.InsertOne(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("mongostore: insert app: %w", err)
	}
	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("mongostore: unexpected inserted id type %T", res.InsertedID)
	}
	return id.Hex(), nil
}

func (s *Store) InsertRole(ctx context.Context, r role.Role) (string, error) {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	rec, err := roleToRecord(r)
	if err != nil {
		return "", err
	}
	res, err := s.roles.InsertOne(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("mongostore: insert role: %w", err)
	}
	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("mongostore: unexpected inserted id type %T", res.InsertedID)
	}
	return id.Hex(), nil
}

type roleIterator struct {
	cur *mongo.Cursor
}

func (it *roleIterator) Next(ctx context.Context) (role.Role, error) {
	if !it.cur.Next(ctx) {
		if err := it.cur.Err(); err != nil {
			return role.Role{}, fmt.Errorf("mongostore: cursor: %w", err)
		}
		return role.Role{}, store.ErrIteratorDone
	}

	var rec roleRecord
	if err := it.cur.Decode(&rec); err != nil {
		return role.Role{}, fmt.Errorf("mongostore: decode role: %w", err)
	}
	return rec.toDomain()
}

func (it *roleIterator) Close(ctx context.Context) error {
	return it.cur.Close(ctx)
}
