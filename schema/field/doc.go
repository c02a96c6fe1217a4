// Package field provides fluent builders for declaring entity properties.
//
// Property names are logical names in lowerCamelCase. The physical column or
// attribute name is derived by the target's naming strategy unless a storage
// key is given explicitly:
//
//	field.String("productNum")               // product_num with the default strategy
//	field.String("isbn").StorageKey("ISBN")  // always ISBN
//
// # Property Types
//
//	field.String("title")
//	field.Int("pages")
//	field.Int64("id")
//	field.Float("price")
//	field.Bool("isOdd")
//	field.Time("createdAt")
//	field.UUID("id")
//	field.Enum("status").Values("draft", "published")
//	field.Bytes("cover")
//	field.JSON("attributes")
//	field.Strings("tags")
//
// # Roles and Flags
//
//	field.Int64("id").ID().Generated()           // identity assigned by the store
//	field.String("id").ID().Generated()          // identity generated at bind time
//	field.Int64("version").Version()             // optimistic lock
//	field.Time("createdAt").AutoPopulated()      // set on insert
//	field.Time("updatedAt").UpdateDefault()      // set on insert and on every update
//	field.String("category").PartitionKey()      // document partition key
//
// Declaring ID on more than one property gives the entity a composite identity.
package field
