package crypt

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/rowkit/internal/entity"
	"github.com/roach88/rowkit/internal/nulls"
	"github.com/roach88/rowkit/internal/schema"
)

// Codec applies a Keyring to the encrypted fields of entities.
type Codec struct {
	ring *Keyring
}

// NewCodec returns a Codec backed by ring.
func NewCodec(ring *Keyring) *Codec {
	return &Codec{ring: ring}
}

// Keyring returns the codec's keyring.
func (c *Codec) Keyring() *Keyring { return c.ring }

// Encrypt returns a copy of e with every encrypted field that holds a
// non-empty value replaced by its ciphertext. Undefined, Null and empty
// values ("" and 0) pass through. If any field fails, no entity is returned.
func (c *Codec) Encrypt(e entity.Entity) (entity.Entity, error) {
	out := e
	for f, v := range e.All() {
		if !f.Encrypted {
			continue
		}
		pv, ok := v.Take()
		if !ok || entity.IsEmptyValue(pv) {
			continue
		}
		ct, err := c.EncryptValue(f, pv)
		if err != nil {
			return entity.Entity{}, &Error{Op: OpEncrypt, Entity: e.Schema().Name, Field: f.Name, Err: err}
		}
		if out, err = out.Set(f.Name, ct); err != nil {
			return entity.Entity{}, &Error{Op: OpEncrypt, Entity: e.Schema().Name, Field: f.Name, Err: err}
		}
	}
	return out, nil
}

// Decrypt is the mirror of Encrypt. Decrypted int fields hold int64.
func (c *Codec) Decrypt(e entity.Entity) (entity.Entity, error) {
	out := e
	for f, v := range e.All() {
		if !f.Encrypted {
			continue
		}
		cv, ok := v.Take()
		if !ok || entity.IsEmptyValue(cv) {
			continue
		}
		ct, isString := cv.(string)
		if !isString {
			return entity.Entity{}, &Error{Op: OpDecrypt, Entity: e.Schema().Name, Field: f.Name,
				Err: fmt.Errorf("%w: %T is not ciphertext", ErrMalformed, cv)}
		}
		pv, err := c.DecryptValue(f, ct)
		if err != nil {
			return entity.Entity{}, &Error{Op: OpDecrypt, Entity: e.Schema().Name, Field: f.Name, Err: err}
		}
		if out, err = out.Put(f.Name, nulls.New(pv)); err != nil {
			return entity.Entity{}, &Error{Op: OpDecrypt, Entity: e.Schema().Name, Field: f.Name, Err: err}
		}
	}
	return out, nil
}

// EncryptValue seals a single plaintext value of field f. Int values are
// sealed as their decimal text.
func (c *Codec) EncryptValue(f schema.Field, v any) (string, error) {
	var plaintext string
	switch f.Type {
	case schema.TypeInt:
		n, err := entity.Coerce(schema.Field{Name: f.Name, Type: schema.TypeInt}, v)
		if err != nil {
			return "", err
		}
		plaintext = strconv.FormatInt(n.(int64), 10)
	case schema.TypeString:
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("cannot encrypt %T as string", v)
		}
		plaintext = s
	default:
		return "", fmt.Errorf("field type %s cannot be encrypted", f.Type)
	}
	if c == nil || c.ring == nil {
		return "", ErrNoKey
	}
	return c.ring.Seal(plaintext)
}

// DecryptValue opens a single ciphertext of field f and returns the value in
// the field's canonical type.
func (c *Codec) DecryptValue(f schema.Field, ciphertext string) (any, error) {
	if c == nil || c.ring == nil {
		return nil, ErrNoKey
	}
	plaintext, err := c.ring.Open(ciphertext)
	if err != nil {
		return nil, err
	}
	if f.Type == schema.TypeInt {
		n, err := strconv.ParseInt(plaintext, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: plaintext is not an integer", ErrMalformed)
		}
		return n, nil
	}
	return plaintext, nil
}

// String decrypts the named string field on read. It is best effort: any
// failure, including a Null or Undefined field, yields "". Do not use it
// where a decryption failure must be detected.
func (c *Codec) String(e entity.Entity, name string) string {
	v, err := c.field(e, name)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Int is the best-effort integer counterpart of String; failures yield 0.
func (c *Codec) Int(e entity.Entity, name string) int64 {
	v, err := c.field(e, name)
	if err != nil {
		return 0
	}
	n, _ := v.(int64)
	return n
}

func (c *Codec) field(e entity.Entity, name string) (any, error) {
	f, ok := e.Schema().Field(name)
	if !ok {
		return nil, entity.ErrUnknownField
	}
	ct, ok := entity.Value[string](e, name).Take()
	if !ok {
		return nil, errors.New("no ciphertext")
	}
	return c.DecryptValue(f, ct)
}
