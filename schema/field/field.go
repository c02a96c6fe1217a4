package field

import "errors"

// Field is implemented by property builders.
type Field interface {
	Descriptor() *Descriptor
}

// Descriptor describes a declared property.
type Descriptor struct {
	Name          string
	Type          Type
	Nillable      bool     // Nullable in the store.
	Immutable     bool     // Never part of an update.
	ID            bool     // Identity component.
	Version       bool     // Optimistic lock property.
	Generated     bool     // Assigned by the store or at bind time, never by the caller.
	AutoPopulated bool     // Assigned by a rule on insert.
	UpdateDefault bool     // Assigned by a rule on insert and update.
	PartitionKey  bool     // Document partition key.
	StorageKey    string   // Physical name override.
	Enums         []string // Allowed values of enum properties.
	Comment       string
	Err           error
}

// Builder is the fluent builder returned by the type constructors.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name string, t Type) *Builder {
	b := &Builder{desc: &Descriptor{Name: name, Type: t}}
	if name == "" {
		b.desc.Err = errors.New("field: missing property name")
	}
	return b
}

// String returns a new string property.
func String(name string) *Builder { return newBuilder(name, TypeString) }

// Int returns a new int property.
func Int(name string) *Builder { return newBuilder(name, TypeInt) }

// Int64 returns a new int64 property.
func Int64(name string) *Builder { return newBuilder(name, TypeInt64) }

// Float returns a new floating point property.
func Float(name string) *Builder { return newBuilder(name, TypeFloat) }

// Bool returns a new boolean property.
func Bool(name string) *Builder { return newBuilder(name, TypeBool) }

// Time returns a new temporal property.
func Time(name string) *Builder { return newBuilder(name, TypeTime) }

// UUID returns a new uuid property.
func UUID(name string) *Builder { return newBuilder(name, TypeUUID) }

// Bytes returns a new binary property.
func Bytes(name string) *Builder { return newBuilder(name, TypeBytes) }

// JSON returns a new property holding a JSON document.
func JSON(name string) *Builder { return newBuilder(name, TypeJSON) }

// Strings returns a new property holding a list of strings.
func Strings(name string) *Builder { return newBuilder(name, TypeStrings) }

// Enum returns a new enum property. Use Values to declare the allowed values.
func Enum(name string) *Builder { return newBuilder(name, TypeEnum) }

// Of returns a new property of the given type.
func Of(name string, t Type) *Builder {
	b := newBuilder(name, t)
	if !t.Valid() && b.desc.Err == nil {
		b.desc.Err = errors.New("field: invalid type for property " + name)
	}
	return b
}

// Values sets the allowed values of an enum property.
func (b *Builder) Values(values ...string) *Builder {
	b.desc.Enums = append(b.desc.Enums, values...)
	return b
}

// Optional marks the property as nullable.
func (b *Builder) Optional() *Builder {
	b.desc.Nillable = true
	return b
}

// Nillable is an alias of Optional.
func (b *Builder) Nillable() *Builder {
	return b.Optional()
}

// Immutable excludes the property from updates.
func (b *Builder) Immutable() *Builder {
	b.desc.Immutable = true
	return b
}

// ID marks the property as an identity component.
func (b *Builder) ID() *Builder {
	b.desc.ID = true
	b.desc.Immutable = true
	return b
}

// Version marks the property as the optimistic lock.
func (b *Builder) Version() *Builder {
	b.desc.Version = true
	return b
}

// Generated marks the property value as assigned by the store (numeric
// identities) or generated at bind time (string and uuid identities).
func (b *Builder) Generated() *Builder {
	b.desc.Generated = true
	return b
}

// AutoPopulated marks the property as assigned on insert, e.g. a creation timestamp.
func (b *Builder) AutoPopulated() *Builder {
	b.desc.AutoPopulated = true
	return b
}

// UpdateDefault marks the property as assigned on insert and refreshed on
// every update, e.g. a modification timestamp.
func (b *Builder) UpdateDefault() *Builder {
	b.desc.AutoPopulated = true
	b.desc.UpdateDefault = true
	return b
}

// PartitionKey marks the property as the document partition key.
func (b *Builder) PartitionKey() *Builder {
	b.desc.PartitionKey = true
	return b
}

// StorageKey sets the physical name, bypassing the naming strategy.
func (b *Builder) StorageKey(key string) *Builder {
	b.desc.StorageKey = key
	return b
}

// Comment sets the property comment.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the Field interface.
func (b *Builder) Descriptor() *Descriptor {
	if b.desc.Type == TypeEnum && len(b.desc.Enums) == 0 && b.desc.Err == nil {
		b.desc.Err = errors.New("field: missing values for enum property " + b.desc.Name)
	}
	return b.desc
}
