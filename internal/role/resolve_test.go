package role

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindValueOnLocalTree(t *testing.T) {
	tree := Local()

	got, err := tree.FindValue("/users/create.boolean")
	require.NoError(t, err)
	require.Equal(t, Boolean(true), got)

	got, err = tree.FindValue("/roles/delete.boolean")
	require.NoError(t, err)
	require.Equal(t, Boolean(true), got)
}

func TestFindValueTypedVariants(t *testing.T) {
	tree := RoleItems{
		item("limits", Values{
			grant("max", Integer(25)),
			grant("ratio", Float(0.5)),
			grant("label", String("bronze")),
			grant("active", Boolean(false)),
		}),
	}

	cases := []struct {
		path string
		want DataValue
	}{
		{"/limits/max.integer", Integer(25)},
		{"/limits/ratio.float", Float(0.5)},
		{"/limits/label.string", String("bronze")},
		{"/limits/active.boolean", Boolean(false)},
	}
	for _, tt := range cases {
		t.Run(tt.path, func(t *testing.T) {
			got, err := tree.FindValue(tt.path)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFindValueSkipsSecondToLastSegment(t *testing.T) {
	tree := RoleItems{
		item("a", nil,
			item("leaf", Values{grant("v", Boolean(true))}),
		),
	}

	// The component before the terminal item is never used to descend, so
	// the terminal item resolves one level higher than the textual nesting
	// suggests. "b" does not exist anywhere in the tree.
	got, err := tree.FindValue("/a/b/leaf/v.boolean")
	require.NoError(t, err)
	require.Equal(t, Boolean(true), got)

	// For the same reason a path nested one level under an existing item
	// looks the terminal item up at the root instead.
	_, err = Local().FindValue("/users/extra/create.boolean")
	require.ErrorIs(t, err, ErrInvalidAuthPath)

	// Components before the skipped one are still walked.
	_, err = tree.FindValue("/x/b/leaf/v.boolean")
	require.ErrorIs(t, err, ErrInvalidAuthPath)
}

func TestFindValueNormalizesPath(t *testing.T) {
	tree := Local()

	got, err := tree.FindValue("//users//./create.boolean")
	require.NoError(t, err)
	require.Equal(t, Boolean(true), got)
}

func TestFindValueErrors(t *testing.T) {
	tree := Local()

	cases := []struct {
		name string
		path string
		want error
	}{
		{"empty path", "", ErrMissingParentPath},
		{"bare root", "/", ErrMissingParentPath},
		{"no directory", "create.boolean", ErrMissingLastItem},
		{"unknown item", "/missing/create.boolean", ErrInvalidAuthPath},
		{"unknown value", "/users/missing.boolean", ErrMissingValue},
		{"no extension", "/users/create", ErrMissingValueExtension},
		{"dot file", "/users/.boolean", ErrMissingValueExtension},
		{"empty extension", "/users/create.", ErrInvalidDataValueType},
		{"type mismatch", "/users/create.integer", ErrInvalidDataValueType},
		{"unknown extension", "/users/create.json", ErrInvalidDataValueType},
		{"invalid unicode", "/bad\xff/create.boolean", ErrInvalidUnicode},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tree.FindValue(tt.path)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFindValueReportsOffendingSegment(t *testing.T) {
	_, err := Local().FindValue("/missing/create.boolean")
	require.ErrorIs(t, err, ErrInvalidAuthPath)
	require.Contains(t, err.Error(), "missing")
}
