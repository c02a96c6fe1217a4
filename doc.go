// Package derive compiles data-access operation descriptions into
// store-specific executable queries.
//
// An operation is described either by a method signature that follows a
// naming convention (findByNameAndAgeGreaterThan) or by a small declarative
// query string (WHERE age > ?1 ORDER BY name). Both front ends produce the
// same store-agnostic criteria tree, which a per-dialect renderer turns into
// query text plus an ordered parameter list. A binder then maps call-site
// values onto that list for each invocation.
//
// # Packages
//
//   - schema: entity metadata (properties, identity, version, associations)
//   - criteria: the criteria tree and its builder
//   - finder: method signature matcher
//   - jdql: declarative query parser
//   - dialect, dialect/sql, dialect/document, dialect/dynamodb: renderers
//   - bind: parameter binder
//   - engine: caches, targets and the prepare/bind pipeline
//   - catalog: ahead-of-time compilation into Go source
//
// This package holds the error taxonomy shared by all of them and the
// memo cache used by the engine.
package derive
