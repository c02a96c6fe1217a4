// Package dialect defines the rendering and execution contracts shared by
// the dialect implementations.
//
// A Renderer turns a criteria query into a Statement: query text plus the
// parameter bound to each placeholder slot. Statements are pure data and are
// cached by the engine; binding happens per invocation in package bind.
//
// # Dialects
//
//	dialect.Postgres  = "postgres"   // $1 placeholders, LIMIT/OFFSET
//	dialect.MySQL     = "mysql"      // ? placeholders, backtick quoting
//	dialect.SQLite    = "sqlite"     // ? placeholders, LIMIT -1 OFFSET n
//	dialect.SQLServer = "sqlserver"  // @p1 placeholders, OFFSET/FETCH
//	dialect.Oracle    = "oracle"     // :1 placeholders, OFFSET/FETCH
//	dialect.Cosmos    = "cosmos"     // @name placeholders, driver paging, patches
//	dialect.DynamoDB  = "dynamodb"   // PartiQL, ? placeholders
//
// # Sub-packages
//
//   - dialect/sql: relational renderer and database/sql driver
//   - dialect/document: document renderer with partition keys and patches
//   - dialect/dynamodb: PartiQL renderer and attribute value encoding
package dialect
