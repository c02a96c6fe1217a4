package edge

import (
	"errors"
	"fmt"
)

// Kind is the association kind.
type Kind uint8

// Association kinds.
const (
	ToOneOwning Kind = iota + 1
	ToOneInverse
	ToManyOwning
	ToManyInverse
	Embedded
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case ToOneOwning:
		return "to_one_owning"
	case ToOneInverse:
		return "to_one_inverse"
	case ToManyOwning:
		return "to_many_owning"
	case ToManyInverse:
		return "to_many_inverse"
	case Embedded:
		return "embedded"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// ToOne reports if the association references at most one target.
func (k Kind) ToOne() bool { return k == ToOneOwning || k == ToOneInverse }

// ToMany reports if the association references a collection of targets.
func (k Kind) ToMany() bool { return k == ToManyOwning || k == ToManyInverse }

// Inverse reports if the foreign key lives on the target side.
func (k Kind) Inverse() bool { return k == ToOneInverse || k == ToManyInverse }

// ParseKind parses a kind name as written in schema files.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "to_one", "to_one_owning", "many_to_one":
		return ToOneOwning, nil
	case "to_one_inverse", "one_to_one_inverse":
		return ToOneInverse, nil
	case "to_many", "to_many_owning", "many_to_many":
		return ToManyOwning, nil
	case "to_many_inverse", "one_to_many":
		return ToManyInverse, nil
	case "embedded":
		return Embedded, nil
	default:
		return 0, fmt.Errorf("edge: unknown kind %q", s)
	}
}

// Edge is implemented by association builders.
type Edge interface {
	Descriptor() *Descriptor
}

// Descriptor describes a declared association.
type Descriptor struct {
	Name       string
	Target     string // Target entity name.
	Kind       Kind
	ForeignKey string // Physical foreign key column, owning side.
	JoinTable  string // Physical join table, to-many owning side.
	MappedBy   string // Owning association name on the target, inverse side.
	Optional   bool
	Comment    string
	Err        error
}

// Builder is the fluent builder returned by To, From and Embed.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name, target string, kind Kind) *Builder {
	b := &Builder{desc: &Descriptor{Name: name, Target: target, Kind: kind}}
	switch {
	case name == "":
		b.desc.Err = errors.New("edge: missing association name")
	case target == "":
		b.desc.Err = fmt.Errorf("edge: missing target of association %q", name)
	}
	return b
}

// To returns a new owning association. It is to-many unless Unique is called.
func To(name, target string) *Builder {
	return newBuilder(name, target, ToManyOwning)
}

// From returns a new inverse association. It is to-many unless Unique is called.
func From(name, target string) *Builder {
	return newBuilder(name, target, ToManyInverse)
}

// Embed returns a new embedded association.
func Embed(name, target string) *Builder {
	return newBuilder(name, target, Embedded)
}

// Unique makes the association reference a single target.
func (b *Builder) Unique() *Builder {
	switch b.desc.Kind {
	case ToManyOwning:
		b.desc.Kind = ToOneOwning
	case ToManyInverse:
		b.desc.Kind = ToOneInverse
	}
	return b
}

// Ref sets the owning association on the target that maps an inverse association.
func (b *Builder) Ref(name string) *Builder {
	b.desc.MappedBy = name
	return b
}

// Field sets the physical foreign key column of an owning association.
func (b *Builder) Field(column string) *Builder {
	b.desc.ForeignKey = column
	return b
}

// Through sets the physical join table of a to-many owning association.
func (b *Builder) Through(table string) *Builder {
	b.desc.JoinTable = table
	return b
}

// Optional marks the association as nullable.
func (b *Builder) Optional() *Builder {
	b.desc.Optional = true
	return b
}

// Comment sets the association comment.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the Edge interface.
func (b *Builder) Descriptor() *Descriptor {
	if b.desc.Err == nil && b.desc.Kind.Inverse() && b.desc.MappedBy == "" {
		b.desc.Err = fmt.Errorf("edge: inverse association %q requires Ref", b.desc.Name)
	}
	return b.desc
}
