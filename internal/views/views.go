// Package views projects entities into their outward-facing shapes.
//
// A stored entity holds ciphertext in its encrypted fields. Response and
// Form decrypt those fields for clients; FromForm seals client input back
// into a storable entity. Sanitize and Validate operate on form input.
package views

import (
	"github.com/roach88/rowkit/internal/crypt"
	"github.com/roach88/rowkit/internal/entity"
	"github.com/roach88/rowkit/internal/nulls"
	"github.com/roach88/rowkit/internal/schema"
)

// Response projects a stored entity for output. Encrypted fields are
// decrypted and empty decrypted strings become Undefined so they are
// omitted from the wire form. Decryption is all-or-nothing.
func Response(c *crypt.Codec, e entity.Entity) (entity.Entity, error) {
	return project(c, e)
}

// Form projects a stored entity into editable form input. It applies the
// same conversions as Response.
func Form(c *crypt.Codec, e entity.Entity) (entity.Entity, error) {
	return project(c, e)
}

func project(c *crypt.Codec, e entity.Entity) (entity.Entity, error) {
	out, err := c.Decrypt(e)
	if err != nil {
		return entity.Entity{}, err
	}
	for f, v := range out.All() {
		if !f.Encrypted {
			continue
		}
		if s, ok := v.ValueOr(nil).(string); ok && s == "" {
			out, _ = out.Unset(f.Name)
		}
	}
	return out, nil
}

// FromForm converts form input into a storable entity. Encrypted string
// fields with a non-empty value and encrypted int fields with a positive
// value are sealed; any other encrypted field becomes Undefined. Plain
// fields are copied as they are.
func FromForm(c *crypt.Codec, form entity.Entity) (entity.Entity, error) {
	out := form
	for f, v := range form.All() {
		if !f.Encrypted {
			continue
		}
		if !sealable(f, v) {
			out, _ = out.Unset(f.Name)
			continue
		}
		pv, _ := v.Take()
		ct, err := c.EncryptValue(f, pv)
		if err != nil {
			return entity.Entity{}, &crypt.Error{Op: crypt.OpEncrypt, Entity: form.Schema().Name, Field: f.Name, Err: err}
		}
		if out, err = out.Set(f.Name, ct); err != nil {
			return entity.Entity{}, err
		}
	}
	return out, nil
}

func sealable(f schema.Field, v nulls.Null[any]) bool {
	pv, ok := v.Take()
	if !ok {
		return false
	}
	switch x := pv.(type) {
	case string:
		return f.Type == schema.TypeString && x != ""
	case int64:
		return x > 0
	default:
		return false
	}
}

// Sanitize returns a copy of form with every string field's sanitize rule
// applied to its value.
func Sanitize(form entity.Entity) entity.Entity {
	out := form
	for f, v := range form.All() {
		if f.Sanitize == schema.SanitizeNone {
			continue
		}
		s, ok := v.ValueOr(nil).(string)
		if !ok {
			continue
		}
		out, _ = out.Set(f.Name, f.Sanitize.Apply(s))
	}
	return out
}
