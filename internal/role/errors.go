package role

import "errors"

// Resolution errors returned by FindValue. Callers classify them with
// errors.Is; ErrInvalidAuthPath is wrapped together with the offending
// segment.
var (
	ErrMissingParentPath     = errors.New("role: path has no parent directory")
	ErrMissingLastItem       = errors.New("role: path has no terminal item")
	ErrMissingValueName      = errors.New("role: path has no value name")
	ErrMissingValueExtension = errors.New("role: path has no value extension")
	ErrMissingValue          = errors.New("role: value not present on item")
	ErrInvalidAuthPath       = errors.New("role: path segment not present")
	ErrInvalidDataValueType  = errors.New("role: extension does not match value type")
	ErrInvalidUnicode        = errors.New("role: path is not valid unicode")
)
