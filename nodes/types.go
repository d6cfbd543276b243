// Package nodes implements the typed function-graph model for implicit
// volumetric geometry: nodes with named parameters (inputs) and ports
// (outputs), type-checked links, a data-driven type-rule engine for
// shape-polymorphic arithmetic, the model/assembly containers, the
// validator, the flattener, and the function extractor.
package nodes

import (
	"fmt"

	"github.com/fieldforge/fieldforge/dirgraph"
)

// NodeID identifies a node within a single Model. Ids are dense and
// monotonically increasing; 0 is reserved as "unassigned".
type NodeID = dirgraph.Identifier

// PortID identifies an output port within a single Model. 0 is reserved.
type PortID int32

// ParameterID identifies an input parameter within a single Model.
// 0 is reserved.
type ParameterID int32

// ResourceID identifies a resource at document level. It is stable across
// edits and flattening and is the only way a FunctionCall names its callee.
type ResourceID uint32

// DataType is the closed set of value shapes flowing through a graph.
type DataType int

const (
	// TypeUnknown is the zero value; it never appears on a well-formed
	// port or parameter.
	TypeUnknown DataType = iota

	// TypeFloat is a 32-bit scalar.
	TypeFloat

	// TypeFloat3 is a 3-component vector.
	TypeFloat3

	// TypeMatrix4 is a 4x4 row-major matrix.
	TypeMatrix4

	// TypeInt is a 32-bit signed integer.
	TypeInt

	// TypeString is a text value (resource paths, labels).
	TypeString

	// TypeResourceID is a document-level resource reference.
	TypeResourceID

	// TypeAny is a rule-pattern sentinel meaning "don't constrain this
	// input". It never appears as a concrete port or parameter type.
	TypeAny
)

// String returns the wire tag of the type, as used by the JSON projection.
func (t DataType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeFloat3:
		return "vec3"
	case TypeMatrix4:
		return "mat4"
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	case TypeResourceID:
		return "resource_id"
	case TypeAny:
		return "any"
	default:
		return "unknown"
	}
}

// DataTypeFromTag parses a wire tag back into a DataType. Unrecognized
// tags map to TypeUnknown.
func DataTypeFromTag(tag string) DataType {
	switch tag {
	case "float":
		return TypeFloat
	case "vec3":
		return TypeFloat3
	case "mat4":
		return TypeMatrix4
	case "int":
		return TypeInt
	case "string":
		return TypeString
	case "resource_id":
		return TypeResourceID
	case "any":
		return TypeAny
	default:
		return TypeUnknown
	}
}

// Float3 is a 3-component vector value.
type Float3 struct {
	X, Y, Z float32
}

// Matrix4 is a 4x4 row-major matrix value.
type Matrix4 [4][4]float32

// IdentityMatrix returns the 4x4 identity.
func IdentityMatrix() Matrix4 {
	var m Matrix4
	for i := 0; i < 4; i++ {
		m[i][i] = 1
	}
	return m
}

// Value is the tagged variant carried by parameters and constants. The
// type tag is queryable without inspecting the payload.
type Value struct {
	kind DataType
	num  float32
	vec  Float3
	mat  Matrix4
	i    int32
	str  string
	res  ResourceID
}

// FloatValue wraps a scalar.
func FloatValue(v float32) Value { return Value{kind: TypeFloat, num: v} }

// Float3Value wraps a vector.
func Float3Value(v Float3) Value { return Value{kind: TypeFloat3, vec: v} }

// Matrix4Value wraps a matrix.
func Matrix4Value(m Matrix4) Value { return Value{kind: TypeMatrix4, mat: m} }

// IntValue wraps an integer.
func IntValue(v int32) Value { return Value{kind: TypeInt, i: v} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: TypeString, str: s} }

// ResourceIDValue wraps a resource reference.
func ResourceIDValue(id ResourceID) Value { return Value{kind: TypeResourceID, res: id} }

// ZeroValue returns the default literal of the given type: zero, or the
// identity for Matrix4.
func ZeroValue(t DataType) Value {
	switch t {
	case TypeFloat:
		return FloatValue(0)
	case TypeFloat3:
		return Float3Value(Float3{})
	case TypeMatrix4:
		return Matrix4Value(IdentityMatrix())
	case TypeInt:
		return IntValue(0)
	case TypeString:
		return StringValue("")
	case TypeResourceID:
		return ResourceIDValue(0)
	default:
		return Value{kind: t}
	}
}

// Type returns the value's type tag.
func (v Value) Type() DataType { return v.kind }

// Float returns the scalar payload; ok is false for other tags.
func (v Value) Float() (float32, bool) { return v.num, v.kind == TypeFloat }

// Float3 returns the vector payload; ok is false for other tags.
func (v Value) Float3() (Float3, bool) { return v.vec, v.kind == TypeFloat3 }

// Matrix4 returns the matrix payload; ok is false for other tags.
func (v Value) Matrix4() (Matrix4, bool) { return v.mat, v.kind == TypeMatrix4 }

// Int returns the integer payload; ok is false for other tags.
func (v Value) Int() (int32, bool) { return v.i, v.kind == TypeInt }

// Str returns the string payload; ok is false for other tags.
func (v Value) Str() (string, bool) { return v.str, v.kind == TypeString }

// ResourceID returns the resource payload; ok is false for other tags.
func (v Value) ResourceID() (ResourceID, bool) { return v.res, v.kind == TypeResourceID }

// String renders the payload for diagnostics and the verbose projection.
func (v Value) String() string {
	switch v.kind {
	case TypeFloat:
		return fmt.Sprintf("%g", v.num)
	case TypeFloat3:
		return fmt.Sprintf("(%g, %g, %g)", v.vec.X, v.vec.Y, v.vec.Z)
	case TypeMatrix4:
		return "matrix4"
	case TypeInt:
		return fmt.Sprintf("%d", v.i)
	case TypeString:
		return v.str
	case TypeResourceID:
		return fmt.Sprintf("#%d", v.res)
	default:
		return ""
	}
}
