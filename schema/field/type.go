package field

import (
	"fmt"
	"strings"
)

// Type is the semantic type of a property.
type Type uint8

// Supported property types.
const (
	TypeInvalid Type = iota
	TypeString
	TypeInt
	TypeInt64
	TypeFloat
	TypeBool
	TypeTime
	TypeEnum
	TypeBytes
	TypeUUID
	TypeJSON
	TypeStrings
	TypeEntity
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeString:  "string",
	TypeInt:     "int",
	TypeInt64:   "int64",
	TypeFloat:   "float",
	TypeBool:    "bool",
	TypeTime:    "time",
	TypeEnum:    "enum",
	TypeBytes:   "bytes",
	TypeUUID:    "uuid",
	TypeJSON:    "json",
	TypeStrings: "strings",
	TypeEntity:  "entity",
}

// String returns the type name.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", t)
}

// Valid reports if the type is a known, non-invalid type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t <= TypeEntity
}

// Numeric reports if the type is a number.
func (t Type) Numeric() bool {
	return t == TypeInt || t == TypeInt64 || t == TypeFloat
}

// Textual reports if the type is stored as text.
func (t Type) Textual() bool {
	return t == TypeString || t == TypeEnum || t == TypeUUID
}

// Temporal reports if the type is a point in time.
func (t Type) Temporal() bool {
	return t == TypeTime
}

// Collection reports if the type holds multiple values.
func (t Type) Collection() bool {
	return t == TypeStrings
}

// ComparableWith reports if values of type o can be compared with a
// property of type t. Invalid types are compatible with everything.
func (t Type) ComparableWith(o Type) bool {
	switch {
	case !t.Valid() || !o.Valid() || t == o:
		return true
	case t.Numeric() && o.Numeric():
		return true
	case t.Textual() && o.Textual():
		return true
	case t == TypeEntity || o == TypeEntity:
		return true
	default:
		return false
	}
}

// ParseType returns the type with the given name. Common aliases such as
// "integer", "long", "double", "boolean" and "timestamp" are accepted.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text":
		return TypeString, nil
	case "int", "integer", "int32":
		return TypeInt, nil
	case "int64", "long":
		return TypeInt64, nil
	case "float", "float64", "double", "number":
		return TypeFloat, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "time", "timestamp", "date", "datetime":
		return TypeTime, nil
	case "enum":
		return TypeEnum, nil
	case "bytes", "binary":
		return TypeBytes, nil
	case "uuid":
		return TypeUUID, nil
	case "json":
		return TypeJSON, nil
	case "strings", "[]string":
		return TypeStrings, nil
	case "entity":
		return TypeEntity, nil
	case "", "any":
		return TypeInvalid, nil
	default:
		return TypeInvalid, fmt.Errorf("field: unknown type %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
