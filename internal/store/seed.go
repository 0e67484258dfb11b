package store

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-auth/internal/role"
)

// Seed makes sure the local application and its local-default role exist,
// inserting whichever is missing. The role starts from the application's
// current default-role template. Returns the application id. Safe to run
// repeatedly.
func Seed(ctx context.Context, s Store) (string, error) {
	app, err := s.FindAppByName(ctx, role.LocalApp)
	switch {
	case errors.Is(err, ErrAppNotFound):
		a := role.DefaultApp()
		id, err := s.InsertApp(ctx, a)
		if err != nil {
			return "", err
		}
		app = a
		app.ID = id
	case err != nil:
		return "", err
	}

	it, err := s.ListRolesByApp(ctx, app.ID)
	if err != nil {
		return "", err
	}
	defer it.Close(ctx)
	for {
		r, err := it.Next(ctx)
		if errors.Is(err, ErrIteratorDone) {
			break
		}
		if err != nil {
			return "", err
		}
		if r.Name == role.LocalRole {
			return app.ID, nil
		}
	}

	r := role.DefaultRole()
	r.App = app.ID
	r.Items = app.DefaultRole.Clone()
	if _, err := s.InsertRole(ctx, r); err != nil {
		return "", err
	}
	return app.ID, nil
}
