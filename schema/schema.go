package schema

import (
	"reflect"

	"github.com/syssam/derive/schema/edge"
	"github.com/syssam/derive/schema/field"
)

// Schema is implemented by entity declarations.
type Schema interface {
	Fields() []field.Field
	Edges() []edge.Edge
	Mixin() []Mixin
	Config() Config
}

// Mixin is a reusable set of properties and associations.
type Mixin interface {
	Fields() []field.Field
	Edges() []edge.Edge
}

// Config holds entity level options.
type Config struct {
	Table string // Physical name override.
}

// Base is the default implementation of Schema. Entity declarations embed it
// and override the methods they need.
type Base struct{}

// Fields returns the properties of the entity.
func (Base) Fields() []field.Field { return nil }

// Edges returns the associations of the entity.
func (Base) Edges() []edge.Edge { return nil }

// Mixin returns the mixins of the entity.
func (Base) Mixin() []Mixin { return nil }

// Config returns the entity options.
func (Base) Config() Config { return Config{} }

var _ Schema = (*Base)(nil)

// Def is a Schema assembled from values rather than methods. Loaders that
// read entity declarations from files produce Defs.
type Def struct {
	EntityName string
	Table      string
	FieldList  []field.Field
	EdgeList   []edge.Edge
}

// Name returns the entity name.
func (d Def) Name() string { return d.EntityName }

// Fields implements Schema.
func (d Def) Fields() []field.Field { return d.FieldList }

// Edges implements Schema.
func (d Def) Edges() []edge.Edge { return d.EdgeList }

// Mixin implements Schema.
func (Def) Mixin() []Mixin { return nil }

// Config implements Schema.
func (d Def) Config() Config { return Config{Table: d.Table} }

var _ Schema = Def{}

// nameOf returns the entity name of a declaration: its Name method when it
// has one, the name of its Go type otherwise.
func nameOf(s Schema) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
