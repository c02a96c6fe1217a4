// Package jdql parses declarative query strings and lowers them to criteria.
//
// The grammar is a small subset of the Jakarta Data query language:
//
//	SELECT DISTINCT b.title FROM Book b WHERE b.pages > ?1 AND b.author.name LIKE :name ORDER BY b.title DESC
//	UPDATE Book SET pages = pages + 1 WHERE id = ?1
//	DELETE FROM Book WHERE isbn IS NULL
//
// Keywords are case-insensitive. When FROM is omitted the root entity is
// supplied by the caller. Parsing and lowering are separate passes: Parse
// builds a concrete syntax tree carrying source positions, and Lower resolves
// it against a schema registry.
package jdql
