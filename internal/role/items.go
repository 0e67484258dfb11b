package role

// Value is a single named grant: a typed datum plus optional bounds. Within
// one Values collection names are unique by construction; lookups return the
// first match.
type Value struct {
	Name    string
	Data    DataValue
	Options *DataOptions
}

// Clone returns an independent copy of the value.
func (v Value) Clone() Value {
	c := v
	c.Options = v.Options.Clone()
	return c
}

// Values is an ordered collection of named values.
type Values []Value

// Find returns a pointer to the first value with the given name, or nil.
func (vs Values) Find(name string) *Value {
	for i := range vs {
		if vs[i].Name == name {
			return &vs[i]
		}
	}
	return nil
}

// Clone returns an independent copy of the collection.
func (vs Values) Clone() Values {
	if len(vs) == 0 {
		return nil
	}
	out := make(Values, len(vs))
	for i := range vs {
		out[i] = vs[i].Clone()
	}
	return out
}

// Item is a named tree node holding leaf values and/or nested items. A node
// with neither is a pure organizational placeholder and stays legal.
type Item struct {
	Name   string    `json:"name"`
	Values Values    `json:"values,omitempty"`
	Items  RoleItems `json:"items,omitempty"`
}

// Clone returns an independent deep copy of the item.
func (it Item) Clone() Item {
	return Item{Name: it.Name, Values: it.Values.Clone(), Items: it.Items.Clone()}
}

// RoleItems is an ordered forest of items constituting one permission tree.
// Order is preserved from construction; all lookups go by name.
type RoleItems []Item

// Find returns a pointer to the first item with the given name, or nil.
func (items RoleItems) Find(name string) *Item {
	for i := range items {
		if items[i].Name == name {
			return &items[i]
		}
	}
	return nil
}

// Clone returns an independent deep copy of the forest.
func (items RoleItems) Clone() RoleItems {
	if len(items) == 0 {
		return nil
	}
	out := make(RoleItems, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

// Merge copies values that exist in both forests from src over dst, in
// place. For every dst item with a same-named src item, every dst value whose
// name also exists in the src item is replaced wholesale with the src value
// (any type, unconditionally), and the two sub-forests are merged the same
// way. Merge never adds or removes names in dst: items and values present
// only in dst are left untouched, items present only in src are ignored.
//
// This is the schema-migration primitive: dst is the current template shape,
// src the previously stored tree, and the result is the current shape filled
// with the prior answers wherever the field still exists.
func (src RoleItems) Merge(dst RoleItems) {
	for i := range dst {
		n := &dst[i]
		a := src.Find(n.Name)
		if a == nil {
			continue
		}
		for j := range n.Values {
			if av := a.Values.Find(n.Values[j].Name); av != nil {
				n.Values[j] = av.Clone()
			}
		}
		a.Items.Merge(n.Items)
	}
}

// Add unions src into dst, mutating dst in place. Two passes run at every
// recursion depth:
//
// First the union pass: for each src item present in dst, each src value
// either overwrites the same-named dst value (skipped when the src value is
// Boolean(false)) or is appended as a clone when missing; matched
// sub-forests recurse through Add. Src items absent from dst are appended
// as full clones.
//
// Then the merge pass re-runs the Merge procedure over dst at the same
// depth, unconditionally re-overwriting every value pair that exists in
// both forests.
//
// The net effect is that the boolean no-downgrade rule is observable only
// for values dst did not contain before the call; for pre-existing pairs the
// final value is src's value, exactly as Merge would leave it. Callers
// depend on this composed behavior; keep the pass order as is.
func (src RoleItems) Add(dst *RoleItems) {
	for i := range src {
		item := &src[i]
		if t := dst.Find(item.Name); t != nil {
			for j := range item.Values {
				value := &item.Values[j]
				if w := t.Values.Find(value.Name); w != nil {
					if b, ok := value.Data.(Boolean); !ok || bool(b) {
						w.Data = value.Data
					}
				} else {
					t.Values = append(t.Values, value.Clone())
				}
			}
			item.Items.Add(&t.Items)
		} else {
			*dst = append(*dst, item.Clone())
		}
	}

	src.Merge(*dst)
}

func crudItem(name string) Item {
	return Item{
		Name: name,
		Values: Values{
			{Name: "create", Data: Boolean(true)},
			{Name: "read", Data: Boolean(true)},
			{Name: "update", Data: Boolean(true)},
			{Name: "delete", Data: Boolean(true)},
		},
	}
}

// Local returns the built-in local permission tree: full create, read,
// update and delete grants over users, roles and apps. It backs the default
// App template and the seeded local-default role.
func Local() RoleItems {
	return RoleItems{crudItem("users"), crudItem("roles"), crudItem("apps")}
}
