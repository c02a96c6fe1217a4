// Package naming maps logical entity and property names to physical
// identifiers.
package naming

import (
	"fmt"
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/edge"
)

// Strategy maps a logical name to a physical one. Implementations must be
// pure functions.
type Strategy interface {
	MappedName(name string) string
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(string) string

// MappedName implements Strategy.
func (f StrategyFunc) MappedName(name string) string { return f(name) }

var upper = cases.Upper(language.Und)

// Built-in strategies.
var (
	// SnakeCase maps productNum to product_num. It is the default.
	SnakeCase Strategy = StrategyFunc(inflect.Underscore)

	// UpperSnakeCase maps productNum to PRODUCT_NUM.
	UpperSnakeCase Strategy = StrategyFunc(func(s string) string {
		return upper.String(inflect.Underscore(s))
	})

	// CamelCase maps product_num and ProductNum to productNum.
	CamelCase Strategy = StrategyFunc(inflect.CamelizeDownFirst)

	// KebabCase maps productNum to product-num.
	KebabCase Strategy = StrategyFunc(inflect.Dasherize)

	// Raw keeps names unchanged.
	Raw Strategy = StrategyFunc(func(s string) string { return s })
)

// Default is the strategy used when a target does not configure one.
var Default = SnakeCase

// ByName returns the built-in strategy with the given name.
func ByName(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "snake", "snake_case", "underscore":
		return SnakeCase, nil
	case "upper", "upper_snake", "upper_case":
		return UpperSnakeCase, nil
	case "camel", "camel_case":
		return CamelCase, nil
	case "kebab", "kebab_case":
		return KebabCase, nil
	case "raw":
		return Raw, nil
	default:
		return nil, fmt.Errorf("naming: unknown strategy %q", name)
	}
}

// Table returns the physical name of an entity.
func Table(s Strategy, e *schema.Entity) string {
	if e.Table != "" {
		return e.Table
	}
	return s.MappedName(e.Name)
}

// Column returns the physical name of a property reached through the
// embedded associations in prefix. To-one owning associations map to their
// foreign key column.
func Column(s Strategy, prefix []*schema.Property, p *schema.Property) string {
	if p.StorageKey != "" {
		return p.StorageKey
	}
	logical := p.Name
	if p.Assoc != nil && p.Assoc.Kind == edge.ToOneOwning {
		if p.Assoc.ForeignKey != "" {
			return p.Assoc.ForeignKey
		}
		logical += "Id"
	}
	for i := len(prefix) - 1; i >= 0; i-- {
		logical = prefix[i].Name + capitalize(logical)
	}
	return s.MappedName(logical)
}

// ForeignKey returns the column on the owning side of an association that
// references the target's identity. For inverse associations it is the
// column of the mapping association on the target.
func ForeignKey(s Strategy, p *schema.Property) string {
	if p.Assoc.Kind.Inverse() {
		return Column(s, nil, p.Assoc.Target.Property(p.Assoc.MappedBy))
	}
	return Column(s, nil, p)
}

// JoinTable returns the join table of a to-many owning association and the
// columns referencing the owner and the target.
func JoinTable(s Strategy, p *schema.Property) (table, ownerColumn, targetColumn string) {
	table = p.Assoc.JoinTable
	if table == "" {
		table = s.MappedName(p.Owner.Name + capitalize(p.Name))
	}
	ownerColumn = s.MappedName(decapitalize(p.Owner.Name) + "Id")
	targetColumn = s.MappedName(decapitalize(p.Assoc.Target.Name) + "Id")
	return table, ownerColumn, targetColumn
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func decapitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
