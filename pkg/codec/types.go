// Package codec converts between JSON parameter payloads and the typed
// values command handlers declare. The set of built-in shapes is closed:
// scalar wrappers ({"value": ...}), Vector3 ({"x","y","z"}), Color
// ({"r","g","b","a"}), plus open-ended structured records decoded against
// a prototype supplied at registration.
package codec

import "fmt"

// Kind discriminates the supported parameter shapes.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt32
	KindFloat32
	KindString
	KindVector3
	KindColor
	KindRecord
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "Int32"
	case KindFloat32:
		return "Float32"
	case KindString:
		return "String"
	case KindVector3:
		return "Vector3"
	case KindColor:
		return "Color"
	case KindRecord:
		return "Record"
	default:
		return "Invalid"
	}
}

// TypeTag identifies a handler's declared input shape. Tags for the
// built-in shapes are package variables; record tags are built with
// Record. The zero TypeTag is invalid and rejected at registration.
type TypeTag struct {
	kind  Kind
	name  string
	proto func() any
}

// Built-in shape tags.
var (
	Int32   = TypeTag{kind: KindInt32, name: "Int32"}
	Float32 = TypeTag{kind: KindFloat32, name: "Float32"}
	String  = TypeTag{kind: KindString, name: "String"}
	Vector3 = TypeTag{kind: KindVector3, name: "Vector3"}
	Color   = TypeTag{kind: KindColor, name: "Color"}
)

// Record builds a TypeTag for a structured record type. Decoding yields a
// *T; name is used in diagnostics.
func Record[T any](name string) TypeTag {
	return TypeTag{
		kind:  KindRecord,
		name:  name,
		proto: func() any { return new(T) },
	}
}

// Kind returns the tag's discriminant.
func (t TypeTag) Kind() Kind { return t.kind }

// Name returns the tag's diagnostic name.
func (t TypeTag) Name() string { return t.name }

// Valid reports whether the tag identifies a usable shape.
func (t TypeTag) Valid() bool {
	if t.kind == KindRecord {
		return t.proto != nil
	}
	return t.kind != KindInvalid
}

// Vec3 is the decoded value for Vector3 parameters.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// RGBA is the decoded value for Color parameters. A defaults to 1.0
// (fully opaque) when absent from the payload.
type RGBA struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
	A float32 `json:"a"`
}

// ConversionError describes a failed decode or encode. It names the
// target type and carries the offending value; no coercion across JSON
// kinds is ever attempted.
type ConversionError struct {
	TypeName string
	Value    string
	Reason   string
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("cannot convert to %s: %s", e.TypeName, e.Reason)
	}
	return fmt.Sprintf("cannot convert %s to %s: %s", e.Value, e.TypeName, e.Reason)
}
