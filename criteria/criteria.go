// Package criteria is the store-agnostic intermediate representation shared
// by the method matcher, the query parser and the renderers.
//
// A Query is a root entity plus joins, a predicate tree, a selection, an
// ordering, update assignments and a limit. Queries are produced by Build and
// are never modified afterwards, which makes them safe to cache and share
// between goroutines.
package criteria

import (
	"fmt"
	"strings"

	"github.com/syssam/derive/schema/field"
)

// Kind is the operation kind of a query.
type Kind uint8

// Operation kinds.
const (
	KindQuery Kind = iota
	KindCount
	KindExists
	KindDelete
	KindUpdate
	KindInsert
)

var kindNames = [...]string{
	KindQuery:  "query",
	KindCount:  "count",
	KindExists: "exists",
	KindDelete: "delete",
	KindUpdate: "update",
	KindInsert: "insert",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Mutation reports if the kind changes stored data.
func (k Kind) Mutation() bool {
	return k == KindDelete || k == KindUpdate || k == KindInsert
}

// ParseKind returns the kind with the given name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(k), nil
		}
	}
	if s == "" || strings.EqualFold(s, "select") {
		return KindQuery, nil
	}
	return 0, fmt.Errorf("criteria: unknown operation kind %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Role is the role of a declared parameter.
type Role uint8

// Parameter roles.
const (
	RoleNone Role = iota
	RoleID
	RoleVersion
	RoleEntity
	RoleEntities
	RolePartitionKey
)

var roleNames = [...]string{
	RoleNone:         "",
	RoleID:           "id",
	RoleVersion:      "version",
	RoleEntity:       "entity",
	RoleEntities:     "entities",
	RolePartitionKey: "partition_key",
}

// String returns the role name.
func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", r)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, name := range roleNames {
		if name == s {
			*r = Role(i)
			return nil
		}
	}
	return fmt.Errorf("criteria: unknown parameter role %q", s)
}

// ParamDecl is a declared parameter of an operation.
type ParamDecl struct {
	Name       string     `yaml:"name"`
	Type       field.Type `yaml:"type,omitempty"`
	Role       Role       `yaml:"role,omitempty"`
	Collection bool       `yaml:"collection,omitempty"`
	// Named marks an explicit name annotation. Named parameters are bound to
	// the property of the same name before positional binding is attempted.
	Named bool `yaml:"named,omitempty"`
}

// EntityInstance reports if the parameter carries whole entities.
func (d ParamDecl) EntityInstance() bool {
	return d.Role == RoleEntity || d.Role == RoleEntities
}
