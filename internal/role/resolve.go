package role

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"
)

// FindValue resolves a slash-separated permission path of the form
// /<segment>*/<itemName>/<valueName>.<ext> against the forest and returns a
// copy of the matched value's data. The extension must name the value's
// active variant (boolean, float, integer or string).
//
// Traversal skips the root marker and the final two directory components:
// the last one is the terminal item name, and the one before it is never
// used to descend. Deeply nested paths therefore resolve their terminal item
// one level higher than the textual nesting suggests; stored trees rely on
// that exact rule, so it is preserved verbatim.
func (items RoleItems) FindValue(src string) (DataValue, error) {
	if src == "" {
		return nil, ErrMissingParentPath
	}

	p := path.Clean(src)
	if p == "/" {
		return nil, ErrMissingParentPath
	}

	dir, base := splitLast(p)

	parts := splitDir(dir)

	cursor := items
	take := len(parts) - 2
	if take < 0 {
		take = 0
	}
	for _, name := range parts[:take] {
		if !utf8.ValidString(name) {
			return nil, ErrInvalidUnicode
		}
		if name == "/" {
			continue
		}
		next := cursor.Find(name)
		if next == nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAuthPath, name)
		}
		cursor = next.Items
	}

	if len(parts) == 0 {
		return nil, ErrMissingLastItem
	}
	lastName := parts[len(parts)-1]
	if !utf8.ValidString(lastName) {
		return nil, ErrInvalidUnicode
	}
	lastItem := cursor.Find(lastName)
	if lastItem == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAuthPath, lastName)
	}

	if base == "" {
		return nil, ErrMissingValueName
	}
	stem, ext, hasExt := splitExt(base)
	if !utf8.ValidString(stem) {
		return nil, ErrInvalidUnicode
	}
	if !hasExt {
		return nil, ErrMissingValueExtension
	}
	if !utf8.ValidString(ext) {
		return nil, ErrInvalidUnicode
	}

	value := lastItem.Values.Find(stem)
	if value == nil {
		return nil, ErrMissingValue
	}

	if value.Data == nil || ext != value.Data.Kind() {
		return nil, ErrInvalidDataValueType
	}

	return value.Data, nil
}

// splitLast separates the directory portion from the final path component of
// an already cleaned path.
func splitLast(p string) (dir, base string) {
	i := strings.LastIndexByte(p, '/')
	switch {
	case i < 0:
		return "", p
	case i == 0:
		return "/", p[1:]
	default:
		return p[:i], p[i+1:]
	}
}

// splitDir breaks a directory path into its components, keeping a leading
// "/" marker for absolute paths so the traversal can skip it by name.
func splitDir(dir string) []string {
	switch dir {
	case "":
		return nil
	case "/":
		return []string{"/"}
	}
	if strings.HasPrefix(dir, "/") {
		rest := strings.Split(dir[1:], "/")
		return append([]string{"/"}, rest...)
	}
	return strings.Split(dir, "/")
}

// splitExt mirrors file-stem/extension semantics: no embedded dot means no
// extension, and a name whose only dot is the leading one is all stem.
func splitExt(base string) (stem, ext string, hasExt bool) {
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return base, "", false
	}
	return base[:dot], base[dot+1:], true
}
