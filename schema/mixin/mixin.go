// Package mixin provides reusable property sets for entity declarations.
//
//	func (Product) Mixin() []schema.Mixin {
//	    return []schema.Mixin{
//	        mixin.ID{},      // generated uuid string identity
//	        mixin.Time{},    // createdAt and updatedAt
//	        mixin.Version{}, // optimistic lock
//	    }
//	}
//
// Custom mixins embed Schema and override the methods they need.
package mixin

import (
	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/edge"
	"github.com/syssam/derive/schema/field"
)

// Schema is the default implementation of schema.Mixin.
type Schema struct{}

// Fields returns the properties of the mixin.
func (Schema) Fields() []field.Field { return nil }

// Edges returns the associations of the mixin.
func (Schema) Edges() []edge.Edge { return nil }

var _ schema.Mixin = (*Schema)(nil)

// ID adds a string identity generated at bind time (a random uuid).
type ID struct {
	Schema
}

// Fields returns the identity property.
func (ID) Fields() []field.Field {
	return []field.Field{
		field.String("id").
			ID().
			Generated().
			Comment("Generated identifier"),
	}
}

// Time adds createdAt and updatedAt timestamps. createdAt is assigned on
// insert and never updated; updatedAt is refreshed on every update.
type Time struct {
	Schema
}

// Fields returns the timestamp properties.
func (Time) Fields() []field.Field {
	return []field.Field{
		field.Time("createdAt").
			AutoPopulated().
			Immutable().
			Comment("Timestamp when the entity was created"),
		field.Time("updatedAt").
			UpdateDefault().
			Comment("Timestamp when the entity was last updated"),
	}
}

// Version adds an int64 optimistic lock property.
type Version struct {
	Schema
}

// Fields returns the version property.
func (Version) Fields() []field.Field {
	return []field.Field{
		field.Int64("version").
			Version().
			Comment("Optimistic lock version"),
	}
}

// SoftDelete adds a nullable deletedAt timestamp.
type SoftDelete struct {
	Schema
}

// Fields returns the soft delete property.
func (SoftDelete) Fields() []field.Field {
	return []field.Field{
		field.Time("deletedAt").
			Optional().
			Comment("Timestamp when the entity was soft deleted"),
	}
}
