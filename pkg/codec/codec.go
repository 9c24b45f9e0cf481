package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// scalarWrapper is the JSON shape for Int32, Float32 and String payloads.
type scalarWrapper struct {
	Value json.RawMessage `json:"value"`
}

// Decode materializes a typed value from a JSON parameter payload
// according to tag. Absent (or JSON null) parameters are valid only for
// record targets, which decode to nil; handlers registered with a record
// tag must tolerate a nil argument. All other targets require a payload.
func Decode(params json.RawMessage, tag TypeTag) (any, *ConversionError) {
	if !tag.Valid() {
		return nil, &ConversionError{TypeName: tag.Name(), Reason: "invalid type tag"}
	}

	if isAbsent(params) {
		if tag.kind == KindRecord {
			return nil, nil
		}
		return nil, &ConversionError{
			TypeName: tag.Name(),
			Reason:   fmt.Sprintf("parameters required for type %s", tag.Name()),
		}
	}

	switch tag.kind {
	case KindInt32:
		raw, cerr := valueField(params, tag)
		if cerr != nil {
			return nil, cerr
		}
		var n int32
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, wrongKind(tag, raw, "value is not an integer")
		}
		return n, nil

	case KindFloat32:
		raw, cerr := valueField(params, tag)
		if cerr != nil {
			return nil, cerr
		}
		var f float32
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, wrongKind(tag, raw, "value is not a number")
		}
		return f, nil

	case KindString:
		raw, cerr := valueField(params, tag)
		if cerr != nil {
			return nil, cerr
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, wrongKind(tag, raw, "value is not a string")
		}
		return s, nil

	case KindVector3:
		fields, cerr := objectFields(params, tag)
		if cerr != nil {
			return nil, cerr
		}
		var v Vec3
		for _, f := range []struct {
			name string
			dst  *float32
		}{{"x", &v.X}, {"y", &v.Y}, {"z", &v.Z}} {
			n, cerr := numericField(fields, f.name, tag)
			if cerr != nil {
				return nil, cerr
			}
			*f.dst = n
		}
		return v, nil

	case KindColor:
		fields, cerr := objectFields(params, tag)
		if cerr != nil {
			return nil, cerr
		}
		c := RGBA{A: 1.0}
		for _, f := range []struct {
			name string
			dst  *float32
		}{{"r", &c.R}, {"g", &c.G}, {"b", &c.B}} {
			n, cerr := numericField(fields, f.name, tag)
			if cerr != nil {
				return nil, cerr
			}
			*f.dst = n
		}
		if raw, ok := fields["a"]; ok {
			if isNullLiteral(raw) {
				return nil, wrongKind(tag, raw, "field a is null")
			}
			if err := json.Unmarshal(raw, &c.A); err != nil {
				return nil, wrongKind(tag, raw, "field a is not a number")
			}
		}
		return c, nil

	case KindRecord:
		v := tag.proto()
		if err := json.Unmarshal(params, v); err != nil {
			return nil, wrongKind(tag, params, err.Error())
		}
		return v, nil
	}

	return nil, &ConversionError{TypeName: tag.Name(), Reason: "unsupported kind"}
}

// Encode serializes a typed value to the JSON parameter shape for tag.
// It is the inverse of Decode for every built-in shape. Record values
// containing reference cycles are truncated: a pointer already on the
// encoding path is emitted as null instead of recursing.
func Encode(v any, tag TypeTag) (json.RawMessage, *ConversionError) {
	if !tag.Valid() {
		return nil, &ConversionError{TypeName: tag.Name(), Reason: "invalid type tag"}
	}

	switch tag.kind {
	case KindInt32:
		n, ok := v.(int32)
		if !ok {
			return nil, wrongGoType(tag, v, "int32")
		}
		return marshalValue(n)

	case KindFloat32:
		f, ok := v.(float32)
		if !ok {
			return nil, wrongGoType(tag, v, "float32")
		}
		return marshalValue(f)

	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, wrongGoType(tag, v, "string")
		}
		return marshalValue(s)

	case KindVector3:
		vec, ok := v.(Vec3)
		if !ok {
			return nil, wrongGoType(tag, v, "codec.Vec3")
		}
		return marshal(tag, vec)

	case KindColor:
		c, ok := v.(RGBA)
		if !ok {
			return nil, wrongGoType(tag, v, "codec.RGBA")
		}
		return marshal(tag, c)

	case KindRecord:
		if v == nil {
			return json.RawMessage("null"), nil
		}
		data, err := json.Marshal(v)
		if err == nil {
			return data, nil
		}
		// Cycles surface as UnsupportedValueError; retry with the
		// path-tracking walk that truncates repeats to null.
		var uve *json.UnsupportedValueError
		if errors.As(err, &uve) {
			return marshal(tag, pruneCycles(v))
		}
		return nil, &ConversionError{TypeName: tag.Name(), Reason: err.Error()}
	}

	return nil, &ConversionError{TypeName: tag.Name(), Reason: "unsupported kind"}
}

// isAbsent reports whether the payload carries no parameters at all.
func isAbsent(params json.RawMessage) bool {
	trimmed := bytes.TrimSpace(params)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// isNullLiteral reports whether a raw field value is JSON null. Null is
// its own JSON kind: json.Unmarshal would silently leave the target at
// its zero value, which is exactly the coercion Decode must refuse.
func isNullLiteral(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// objectFields parses the payload as a JSON object keyed by raw field.
func objectFields(params json.RawMessage, tag TypeTag) (map[string]json.RawMessage, *ConversionError) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(params, &fields); err != nil {
		return nil, wrongKind(tag, params, "parameters are not a JSON object")
	}
	return fields, nil
}

// valueField extracts the single recognized "value" field of a scalar wrapper.
func valueField(params json.RawMessage, tag TypeTag) (json.RawMessage, *ConversionError) {
	fields, cerr := objectFields(params, tag)
	if cerr != nil {
		return nil, cerr
	}
	raw, ok := fields["value"]
	if !ok {
		return nil, &ConversionError{
			TypeName: tag.Name(),
			Value:    compact(params),
			Reason:   "missing field value",
		}
	}
	if isNullLiteral(raw) {
		return nil, &ConversionError{
			TypeName: tag.Name(),
			Value:    compact(params),
			Reason:   "field value is null",
		}
	}
	return raw, nil
}

// numericField extracts a required numeric field; absence is a failure.
func numericField(fields map[string]json.RawMessage, name string, tag TypeTag) (float32, *ConversionError) {
	raw, ok := fields[name]
	if !ok {
		return 0, &ConversionError{
			TypeName: tag.Name(),
			Reason:   fmt.Sprintf("missing field %s", name),
		}
	}
	if isNullLiteral(raw) {
		return 0, &ConversionError{
			TypeName: tag.Name(),
			Reason:   fmt.Sprintf("field %s is null", name),
		}
	}
	var f float32
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, wrongKind(tag, raw, fmt.Sprintf("field %s is not a number", name))
	}
	return f, nil
}

func wrongKind(tag TypeTag, raw json.RawMessage, reason string) *ConversionError {
	return &ConversionError{TypeName: tag.Name(), Value: compact(raw), Reason: reason}
}

func wrongGoType(tag TypeTag, v any, want string) *ConversionError {
	return &ConversionError{
		TypeName: tag.Name(),
		Value:    fmt.Sprintf("%v", v),
		Reason:   fmt.Sprintf("value is %T, want %s", v, want),
	}
}

func marshalValue(v any) (json.RawMessage, *ConversionError) {
	data, _ := json.Marshal(map[string]any{"value": v})
	return data, nil
}

func marshal(tag TypeTag, v any) (json.RawMessage, *ConversionError) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &ConversionError{TypeName: tag.Name(), Reason: err.Error()}
	}
	return data, nil
}

// compact renders a raw payload for diagnostics, bounded to keep error
// events small.
func compact(raw json.RawMessage) string {
	s := string(bytes.TrimSpace(raw))
	if len(s) > 128 {
		s = s[:128] + "..."
	}
	return s
}

// pruneCycles deep-copies v into a JSON-ready tree, emitting null for any
// pointer, map or slice already on the current path.
func pruneCycles(v any) any {
	return pruneValue(reflect.ValueOf(v), map[uintptr]bool{})
}

func pruneValue(rv reflect.Value, onPath map[uintptr]bool) any {
	switch rv.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		if rv.Kind() == reflect.Ptr {
			p := rv.Pointer()
			if onPath[p] {
				return nil
			}
			onPath[p] = true
			defer delete(onPath, p)
		}
		return pruneValue(rv.Elem(), onPath)
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		p := rv.Pointer()
		if onPath[p] {
			return nil
		}
		onPath[p] = true
		defer delete(onPath, p)
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprintf("%v", iter.Key().Interface())] = pruneValue(iter.Value(), onPath)
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		p := rv.Pointer()
		if onPath[p] {
			return nil
		}
		onPath[p] = true
		defer delete(onPath, p)
		return pruneSeq(rv, onPath)
	case reflect.Array:
		return pruneSeq(rv, onPath)
	case reflect.Struct:
		out := make(map[string]any)
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			name := f.Name
			if tag, ok := f.Tag.Lookup("json"); ok {
				parts := strings.Split(tag, ",")
				if parts[0] == "-" {
					continue
				}
				if parts[0] != "" {
					name = parts[0]
				}
			}
			out[name] = pruneValue(rv.Field(i), onPath)
		}
		return out
	default:
		return rv.Interface()
	}
}

func pruneSeq(rv reflect.Value, onPath map[uintptr]bool) any {
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = pruneValue(rv.Index(i), onPath)
	}
	return out
}
