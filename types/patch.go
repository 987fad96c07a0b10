package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Optional marks whether a JSON field was supplied.
// A key with a null value is treated the same as an absent key.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value = zero
		o.Set = false
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Set = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// ContactPatch carries the mutable contact fields of a create or update request.
type ContactPatch struct {
	Name     Optional[string] `json:"name"`
	Lastname Optional[string] `json:"lastname"`
	Email    Optional[string] `json:"email"`
	Phone    Optional[string] `json:"phone"`
}

// Normalize trims surrounding whitespace from every present field.
func (p ContactPatch) Normalize() ContactPatch {
	trim := func(o Optional[string]) Optional[string] {
		if o.Set {
			o.Value = strings.TrimSpace(o.Value)
		}
		return o
	}
	return ContactPatch{
		Name:     trim(p.Name),
		Lastname: trim(p.Lastname),
		Email:    trim(p.Email),
		Phone:    trim(p.Phone),
	}
}

// Empty reports whether no field is present.
func (p ContactPatch) Empty() bool {
	return !p.Name.Set && !p.Lastname.Set && !p.Email.Set && !p.Phone.Set
}

// ApplyTo merges the present fields over c. Absent fields are left untouched;
// a present but empty lastname or phone clears the column.
func (p ContactPatch) ApplyTo(c *Contact) {
	if p.Name.Set {
		c.Name = p.Name.Value
	}
	if p.Lastname.Set {
		c.Lastname = nullable(p.Lastname.Value)
	}
	if p.Email.Set {
		c.Email = p.Email.Value
	}
	if p.Phone.Set {
		c.Phone = nullable(p.Phone.Value)
	}
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
