// Package fixture declares the entities shared by the package tests.
package fixture

import (
	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/edge"
	"github.com/syssam/derive/schema/field"
	"github.com/syssam/derive/schema/mixin"
)

// Person has a numeric identity and an embedded address.
type Person struct{ schema.Base }

func (Person) Fields() []field.Field {
	return []field.Field{
		field.Int64("id").ID().Generated(),
		field.String("name"),
		field.Int("age"),
	}
}

func (Person) Edges() []edge.Edge {
	return []edge.Edge{
		edge.Embed("address", "Address"),
	}
}

// Address is embedded into Person.
type Address struct{ schema.Base }

func (Address) Fields() []field.Field {
	return []field.Field{
		field.String("street"),
		field.String("city"),
	}
}

// Author owns nothing; its books map back through Book.author.
type Author struct{ schema.Base }

func (Author) Fields() []field.Field {
	return []field.Field{
		field.Int64("id").ID().Generated(),
		field.String("name"),
	}
}

func (Author) Edges() []edge.Edge {
	return []edge.Edge{
		edge.From("books", "Book").Ref("author"),
	}
}

// Book is versioned and timestamped.
type Book struct{ schema.Base }

func (Book) Mixin() []schema.Mixin {
	return []schema.Mixin{mixin.Version{}, mixin.Time{}}
}

func (Book) Fields() []field.Field {
	return []field.Field{
		field.Int64("id").ID().Generated(),
		field.String("title"),
		field.Int("pages"),
		field.String("isbn").Optional(),
	}
}

func (Book) Edges() []edge.Edge {
	return []edge.Edge{
		edge.To("author", "Author").Unique(),
		edge.To("tags", "Tag").Through("book_tag"),
	}
}

// Tag is reached from Book through a join table.
type Tag struct{ schema.Base }

func (Tag) Fields() []field.Field {
	return []field.Field{
		field.Int64("id").ID().Generated(),
		field.String("name"),
	}
}

// Product has a generated string identity and a partition key.
type Product struct{ schema.Base }

func (Product) Mixin() []schema.Mixin {
	return []schema.Mixin{mixin.ID{}}
}

func (Product) Fields() []field.Field {
	return []field.Field{
		field.String("productNum"),
		field.String("name"),
		field.Float("price"),
		field.String("category").PartitionKey(),
	}
}

// Number is a plain numeric record.
type Number struct{ schema.Base }

func (Number) Fields() []field.Field {
	return []field.Field{
		field.Int64("id").ID(),
		field.Bool("isOdd"),
	}
}

// Enrollment has a composite identity and a version.
type Enrollment struct{ schema.Base }

func (Enrollment) Mixin() []schema.Mixin {
	return []schema.Mixin{mixin.Version{}}
}

func (Enrollment) Fields() []field.Field {
	return []field.Field{
		field.Int64("studentId").ID(),
		field.Int64("courseId").ID(),
		field.String("grade"),
	}
}

// Schemas returns all fixture declarations.
func Schemas() []schema.Schema {
	return []schema.Schema{
		Person{}, Address{}, Author{}, Book{}, Tag{}, Product{}, Number{}, Enrollment{},
	}
}

// Registry returns a registry of all fixture entities. It panics on error.
func Registry() *schema.Registry {
	r, err := schema.NewRegistry(Schemas()...)
	if err != nil {
		panic(err)
	}
	return r
}
