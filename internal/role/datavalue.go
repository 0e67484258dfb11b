// Package role implements the permission tree domain: typed leaf values,
// named item forests, the merge/add combination algebra and the path-based
// value resolver. Trees are plain values owned by the caller; nothing in this
// package spawns goroutines or touches a store.
package role

// DataValue is the typed payload carried by a permission Value. Exactly one
// of the four variants (String, Float, Integer, Boolean) is active; the
// dynamic type of the interface value is the runtime type of the datum.
type DataValue interface {
	// Kind reports the wire tag of the variant. The same tag is used as the
	// permission path extension and as the serialized field key.
	Kind() string

	isDataValue()
}

// String is the text variant of DataValue.
type String string

// Float is the 64-bit floating point variant of DataValue.
type Float float64

// Integer is the 64-bit signed integer variant of DataValue.
type Integer int64

// Boolean is the true/false grant variant of DataValue.
type Boolean bool

const (
	KindString  = "string"
	KindFloat   = "float"
	KindInteger = "integer"
	KindBoolean = "boolean"
)

var (
	_ DataValue = String("")
	_ DataValue = Float(0)
	_ DataValue = Integer(0)
	_ DataValue = Boolean(false)
)

func (String) isDataValue()  {}
func (Float) isDataValue()   {}
func (Integer) isDataValue() {}
func (Boolean) isDataValue() {}

func (String) Kind() string  { return KindString }
func (Float) Kind() string   { return KindFloat }
func (Integer) Kind() string { return KindInteger }
func (Boolean) Kind() string { return KindBoolean }

// DataOptions carries optional numeric bounds alongside a Value. The bounds
// are descriptive metadata for consumers; the core never enforces them.
type DataOptions struct {
	MinValue DataValue
	MaxValue DataValue
}

// Clone returns an independent copy.
func (o *DataOptions) Clone() *DataOptions {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}
