// Package schema holds the entity metadata consumed by the derivation engine.
//
// Entities are declared the same way they are declared for code generation:
// a type with Fields, Edges and Mixin methods.
//
//	type Book struct{ schema.Base }
//
//	func (Book) Mixin() []schema.Mixin {
//	    return []schema.Mixin{mixin.Version{}}
//	}
//
//	func (Book) Fields() []field.Field {
//	    return []field.Field{
//	        field.Int64("id").ID().Generated(),
//	        field.String("title"),
//	        field.Int("pages"),
//	    }
//	}
//
//	func (Book) Edges() []edge.Edge {
//	    return []edge.Edge{
//	        edge.To("author", "Author").Unique(),
//	    }
//	}
//
// NewRegistry links the declarations into an immutable graph of Entity
// values. The registry is built once at startup and is safe for concurrent
// reads without locking.
package schema
