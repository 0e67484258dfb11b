// Package pgstore implements the store contract on PostgreSQL. Permission
// trees are stored as canonical JSON in JSONB columns; a trigger on the
// roles table emits pg_notify events that back the watch operation.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-auth/internal/role"
	"github.com/odyssey-erp/odyssey-auth/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Store is the PostgreSQL driver.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Setup applies the embedded schema: tables, index and the notify trigger.
// Statements are idempotent.
func (s *Store) Setup(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("pgstore: apply schema: %w", err)
	}
	return nil
}

func (s *Store) FindAppByName(ctx context.Context, name string) (role.App, error) {
	query := `
		SELECT id::text, name, version, default_role, created_at, updated_at
		FROM apps
		WHERE name = $1`

	var (
		a    role.App
		tree []byte
	)
	err := s.pool.QueryRow(ctx, query, name).
		Scan(&a.ID, &a.Name, &a.Version, &tree, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return role.App{}, store.ErrAppNotFound
	}
	if err != nil {
		return role.App{}, fmt.Errorf("pgstore: find app: %w", err)
	}
	if err := json.Unmarshal(tree, &a.DefaultRole); err != nil {
		return role.App{}, fmt.Errorf("pgstore: decode app %q tree: %w", name, err)
	}
	return a, nil
}

func (s *Store) ListRolesByApp(ctx context.Context, appID string) (store.RoleIterator, error) {
	query := `
		SELECT id::text, app_id::text, name, items, created_at, updated_at
		FROM roles
		WHERE app_id = $1
		ORDER BY name`

	rows, err := s.pool.Query(ctx, query, appID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list roles: %w", err)
	}
	return &roleIterator{rows: rows}, nil
}

func (s *Store) UpdateRoleItems(ctx context.Context, roleID string, items role.RoleItems) error {
	tree, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("pgstore: encode tree: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE roles SET items = $2, updated_at = NOW() WHERE id = $1`,
		roleID, tree)
	if err != nil {
		return fmt.Errorf("pgstore: update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertApp(ctx context.Context, a role.App) (string, error) {
	tree, err := json.Marshal(a.DefaultRole)
	if err != nil {
		return "", fmt.Errorf("pgstore: encode tree: %w", err)
	}

	id := uuid.NewString()
	version := a.Version
	if version == 0 {
		version = 1
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO apps (id, name, version, default_role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())`,
		id, a.Name, version, tree)
	if err != nil {
		return "", fmt.Errorf("pgstore: insert app: %w", err)
	}
	return id, nil
}

func (s *Store) InsertRole(ctx context.Context, r role.Role) (string, error) {
	tree, err := json.Marshal(r.Items)
	if err != nil {
		return "", fmt.Errorf("pgstore: encode tree: %w", err)
	}

	id := uuid.NewString()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO roles (id, app_id, name, items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())`,
		id, r.App, r.Name, tree)
	if err != nil {
		return "", fmt.Errorf("pgstore: insert role: %w", err)
	}
	return id, nil
}

type roleIterator struct {
	rows pgx.Rows
}

func (it *roleIterator) Next(ctx context.Context) (role.Role, error) {
	if err := ctx.Err(); err != nil {
		return role.Role{}, err
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return role.Role{}, fmt.Errorf("pgstore: rows: %w", err)
		}
		return role.Role{}, store.ErrIteratorDone
	}

	var (
		r    role.Role
		tree []byte
	)
	if err := it.rows.Scan(&r.ID, &r.App, &r.Name, &tree, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return role.Role{}, fmt.Errorf("pgstore: scan role: %w", err)
	}
	if err := json.Unmarshal(tree, &r.Items); err != nil {
		return role.Role{}, fmt.Errorf("pgstore: decode role %q tree: %w", r.Name, err)
	}
	return r, nil
}

func (it *roleIterator) Close(ctx context.Context) error {
	it.rows.Close()
	return nil
}
