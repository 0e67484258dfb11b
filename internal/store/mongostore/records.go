package mongostore

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/odyssey-erp/odyssey-auth/internal/role"
)

// Document shapes stored in the apps and roles collections. Data variants are
// pointer fields with omitempty so exactly one key lands in the document,
// matching the canonical JSON form.

type appRecord struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Name        string        `bson:"name"`
	Version     uint64        `bson:"version"`
	DefaultRole []itemRecord  `bson:"defaultRole"`
	CreatedAt   *time.Time    `bson:"createdAt,omitempty"`
	UpdatedAt   *time.Time    `bson:"updatedAt,omitempty"`
}

type roleRecord struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	App       bson.ObjectID `bson:"app"`
	Name      string        `bson:"name"`
	Items     []itemRecord  `bson:"items"`
	CreatedAt *time.Time    `bson:"createdAt,omitempty"`
	UpdatedAt *time.Time    `bson:"updatedAt,omitempty"`
}

type itemRecord struct {
	Name   string        `bson:"name"`
	Values []valueRecord `bson:"values,omitempty"`
	Items  []itemRecord  `bson:"items,omitempty"`
}

type valueRecord struct {
	Name    string         `bson:"name"`
	String  *string        `bson:"string,omitempty"`
	Float   *float64       `bson:"float,omitempty"`
	Integer *int64         `bson:"integer,omitempty"`
	Boolean *bool          `bson:"boolean,omitempty"`
	Options *optionsRecord `bson:"options,omitempty"`
}

type optionsRecord struct {
	MinValue dataRecord `bson:"minValue"`
	MaxValue dataRecord `bson:"maxValue"`
}

type dataRecord struct {
	String  *string  `bson:"string,omitempty"`
	Float   *float64 `bson:"float,omitempty"`
	Integer *int64   `bson:"integer,omitempty"`
	Boolean *bool    `bson:"boolean,omitempty"`
}

func dataToRecord(v role.DataValue) dataRecord {
	var out dataRecord
	switch d := v.(type) {
	case role.String:
		s := string(d)
		out.String = &s
	case role.Float:
		f := float64(d)
		out.Float = &f
	case role.Integer:
		i := int64(d)
		out.Integer = &i
	case role.Boolean:
		b := bool(d)
		out.Boolean = &b
	}
	return out
}

func (w dataRecord) toDomain() (role.DataValue, error) {
	var (
		out role.DataValue
		n   int
	)
	if w.String != nil {
		out, n = role.String(*w.String), n+1
	}
	if w.Float != nil {
		out, n = role.Float(*w.Float), n+1
	}
	if w.Integer != nil {
		out, n = role.Integer(*w.Integer), n+1
	}
	if w.Boolean != nil {
		out, n = role.Boolean(*w.Boolean), n+1
	}
	if n != 1 {
		return nil, fmt.Errorf("mongostore: document value carries %d data variants", n)
	}
	return out, nil
}

func itemsToRecords(items role.RoleItems) []itemRecord {
	if len(items) == 0 {
		return nil
	}
	out := make([]itemRecord, len(items))
	for i, it := range items {
		rec := itemRecord{Name: it.Name, Items: itemsToRecords(it.Items)}
		for _, v := range it.Values {
			vr := valueRecord{Name: v.Name}
			d := dataToRecord(v.Data)
			vr.String, vr.Float, vr.Integer, vr.Boolean = d.String, d.Float, d.Integer, d.Boolean
			if v.Options != nil {
				vr.Options = &optionsRecord{
					MinValue: dataToRecord(v.Options.MinValue),
					MaxValue: dataToRecord(v.Options.MaxValue),
				}
			}
			rec.Values = append(rec.Values, vr)
		}
		out[i] = rec
	}
	return out
}

func recordsToItems(recs []itemRecord) (role.RoleItems, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	out := make(role.RoleItems, len(recs))
	for i, rec := range recs {
		it := role.Item{Name: rec.Name}
		for _, vr := range rec.Values {
			data, err := dataRecord{
				String: vr.String, Float: vr.Float, Integer: vr.Integer, Boolean: vr.Boolean,
			}.toDomain()
			if err != nil {
				return nil, fmt.Errorf("value %q: %w", vr.Name, err)
			}
			v := role.Value{Name: vr.Name, Data: data}
			if vr.Options != nil {
				lo, err := vr.Options.MinValue.toDomain()
				if err != nil {
					return nil, fmt.Errorf("value %q options: %w", vr.Name, err)
				}
				hi, err := vr.Options.MaxValue.toDomain()
				if err != nil {
					return nil, fmt.Errorf("value %q options: %w", vr.Name, err)
				}
				v.Options = &role.DataOptions{MinValue: lo, MaxValue: hi}
			}
			it.Values = append(it.Values, v)
		}
		sub, err := recordsToItems(rec.Items)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", rec.Name, err)
		}
		it.Items = sub
		out[i] = it
	}
	return out, nil
}

func appToRecord(a role.App) (appRecord, error) {
	rec := appRecord{
		Name:        a.Name,
		Version:     a.Version,
		DefaultRole: itemsToRecords(a.DefaultRole),
	}
	if rec.DefaultRole == nil {
		rec.DefaultRole = []itemRecord{}
	}
	if a.ID != "" {
		id, err := bson.ObjectIDFromHex(a.ID)
		if err != nil {
			return appRecord{}, fmt.Errorf("mongostore: parse app id: %w", err)
		}
		rec.ID = id
	}
	if !a.CreatedAt.IsZero() {
		ts := a.CreatedAt
		rec.CreatedAt = &ts
	}
	if !a.UpdatedAt.IsZero() {
		ts := a.UpdatedAt
		rec.UpdatedAt = &ts
	}
	return rec, nil
}

func (rec appRecord) toDomain() (role.App, error) {
	tree, err := recordsToItems(rec.DefaultRole)
	if err != nil {
		return role.App{}, fmt.Errorf("mongostore: app %q: %w", rec.Name, err)
	}
	a := role.App{
		ID:          rec.ID.Hex(),
		Name:        rec.Name,
		Version:     rec.Version,
		DefaultRole: tree,
	}
	if rec.ID.IsZero() {
		a.ID = ""
	}
	if rec.CreatedAt != nil {
		a.CreatedAt = *rec.CreatedAt
	}
	if rec.UpdatedAt != nil {
		a.UpdatedAt = *rec.UpdatedAt
	}
	return a, nil
}

func roleToRecord(r role.Role) (roleRecord, error) {
	rec := roleRecord{
		Name:  r.Name,
		Items: itemsToRecords(r.Items),
	}
	if rec.Items == nil {
		rec.Items = []itemRecord{}
	}
	if r.ID != "" {
		id, err := bson.ObjectIDFromHex(r.ID)
		if err != nil {
			return roleRecord{}, fmt.Errorf("mongostore: parse role id: %w", err)
		}
		rec.ID = id
	}
	if r.App != "" {
		app, err := bson.ObjectIDFromHex(r.App)
		if err != nil {
			return roleRecord{}, fmt.Errorf("mongostore: parse app id: %w", err)
		}
		rec.App = app
	}
	if !r.CreatedAt.IsZero() {
		ts := r.CreatedAt
		rec.CreatedAt = &ts
	}
	if !r.UpdatedAt.IsZero() {
		ts := r.UpdatedAt
		rec.UpdatedAt = &ts
	}
	return rec, nil
}

func (rec roleRecord) toDomain() (role.Role, error) {
	tree, err := recordsToItems(rec.Items)
	if err != nil {
		return role.Role{}, fmt.Errorf("mongostore: role %q: %w", rec.Name, err)
	}
	r := role.Role{
		ID:    rec.ID.Hex(),
		App:   rec.App.Hex(),
		Name:  rec.Name,
		Items: tree,
	}
	if rec.ID.IsZero() {
		r.ID = ""
	}
	if rec.App.IsZero() {
		r.App = ""
	}
	if rec.CreatedAt != nil {
		r.CreatedAt = *rec.CreatedAt
	}
	if rec.UpdatedAt != nil {
		r.UpdatedAt = *rec.UpdatedAt
	}
	return r, nil
}
