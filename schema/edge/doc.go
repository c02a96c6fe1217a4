// Package edge provides fluent builders for declaring entity associations.
//
// An association references another entity by name. Its kind decides how a
// renderer reaches the target:
//
//	// to-one owning: Book holds author_id
//	edge.To("author", "Author").Unique()
//
//	// to-many inverse: Author.books is mapped by Book.author
//	edge.From("books", "Book").Ref("author")
//
//	// to-one inverse: Person.passport is mapped by Passport.owner
//	edge.From("passport", "Passport").Ref("owner").Unique()
//
//	// to-many owning through a join table
//	edge.To("tags", "Tag").Through("book_tag")
//
//	// embedded value: columns of Address are flattened into the owner
//	edge.Embed("address", "Address")
package edge
