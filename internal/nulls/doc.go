// Package nulls provides Null[T], a tri-state optional value.
//
// A Null[T] is in exactly one of three states:
//
//	Undefined  the field was not provided (client side) or not requested
//	Null       the field is explicitly null (SQL NULL, JSON null)
//	Value      the field holds a T
//
// The zero value is Undefined. Storage reads of selected columns only ever
// produce Null or Value; Undefined belongs to defaults and partial payloads.
//
// # JSON
//
// Null emits `null`, Value emits the encoded T. Undefined has no JSON form of
// its own: struct fields should be tagged `json:",omitzero"` so encoding/json
// drops them (IsZero reports true only for Undefined). Decoding `null` yields
// Null, any other token yields Value, and a key that is absent from the
// payload leaves the field Undefined because UnmarshalJSON is never called.
//
//	type Patch struct {
//	    Name nulls.Null[string] `json:"name,omitzero"`
//	}
//
// For every Null or Value x: decode(encode(x)) == x.
//
// # SQL
//
// Null[T] implements sql.Scanner and driver.Valuer by delegating to
// sql.Null[T]. Undefined and Null both bind as SQL NULL.
package nulls
