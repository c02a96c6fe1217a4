// Package sql renders criteria queries as SQL and runs bound statements
// through database/sql.
//
// A Renderer targets one relational dialect. Dialects differ in identifier
// quoting, placeholder style, pagination, boolean literals and a handful of
// functions:
//
//	r, _ := sql.NewRenderer(dialect.Postgres, sql.WithNaming(naming.SnakeCase))
//	st, _ := r.Render(q)
//	// SELECT id, name, age, address_street, address_city FROM person WHERE name = $1 AND age > $2
//
// Identifiers are quoted only when they are reserved words or contain
// characters outside [A-Za-z0-9_], unless WithAlwaysQuote is given. Queries
// that join associations alias the root table and every joined table with
// names derived from the association path, so repeated renders of the same
// query produce identical text.
//
// Collection parameters render as a single placeholder that the binder
// expands to one placeholder per element.
//
// Driver adapts a *database/sql.DB to dialect.Driver, and Exec, Query,
// Count and Exists run bound statements against it. Constraint violations
// reported by the postgres, mysql and sqlite drivers are returned as
// *ConstraintError.
package sql
