package role

import (
	"encoding/json"
	"errors"
)

var errDataVariant = errors.New("role: data must carry exactly one of string, float, integer or boolean")

// dataValueJSON is the externally tagged wire form of a DataValue: exactly
// one variant key is present.
type dataValueJSON struct {
	String  *string  `json:"string,omitempty"`
	Float   *float64 `json:"float,omitempty"`
	Integer *int64   `json:"integer,omitempty"`
	Boolean *bool    `json:"boolean,omitempty"`
}

func encodeDataValue(v DataValue) dataValueJSON {
	var out dataValueJSON
	switch d := v.(type) {
	case String:
		s := string(d)
		out.String = &s
	case Float:
		f := float64(d)
		out.Float = &f
	case Integer:
		i := int64(d)
		out.Integer = &i
	case Boolean:
		b := bool(d)
		out.Boolean = &b
	}
	return out
}

func (w dataValueJSON) decode() (DataValue, error) {
	var (
		out DataValue
		n   int
	)
	if w.String != nil {
		out, n = String(*w.String), n+1
	}
	if w.Float != nil {
		out, n = Float(*w.Float), n+1
	}
	if w.Integer != nil {
		out, n = Integer(*w.Integer), n+1
	}
	if w.Boolean != nil {
		out, n = Boolean(*w.Boolean), n+1
	}
	if n != 1 {
		return nil, errDataVariant
	}
	return out, nil
}

// valueJSON flattens the data variant into the value object itself, so a
// boolean grant reads {"name":"create","boolean":true}.
type valueJSON struct {
	Name string `json:"name"`
	dataValueJSON
	Options *DataOptions `json:"options,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueJSON{
		Name:          v.Name,
		dataValueJSON: encodeDataValue(v.Data),
		Options:       v.Options,
	})
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var w valueJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	data, err := w.decode()
	if err != nil {
		return err
	}
	v.Name = w.Name
	v.Data = data
	v.Options = w.Options
	return nil
}

type dataOptionsJSON struct {
	MinValue dataValueJSON `json:"minValue"`
	MaxValue dataValueJSON `json:"maxValue"`
}

func (o DataOptions) MarshalJSON() ([]byte, error) {
	return json.Marshal(dataOptionsJSON{
		MinValue: encodeDataValue(o.MinValue),
		MaxValue: encodeDataValue(o.MaxValue),
	})
}

func (o *DataOptions) UnmarshalJSON(b []byte) error {
	var w dataOptionsJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	lo, err := w.MinValue.decode()
	if err != nil {
		return err
	}
	hi, err := w.MaxValue.decode()
	if err != nil {
		return err
	}
	o.MinValue = lo
	o.MaxValue = hi
	return nil
}

// MarshalJSON renders a nil forest as an empty array so role and app
// documents always carry an items list.
func (items RoleItems) MarshalJSON() ([]byte, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Item(items))
}

// TaggedValue wraps a bare DataValue so it travels in its tagged wire form,
// e.g. Boolean(true) encodes to {"boolean":true}.
type TaggedValue struct {
	Data DataValue
}

func (t TaggedValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(encodeDataValue(t.Data))
}

func (t *TaggedValue) UnmarshalJSON(b []byte) error {
	var w dataValueJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	data, err := w.decode()
	if err != nil {
		return err
	}
	t.Data = data
	return nil
}
