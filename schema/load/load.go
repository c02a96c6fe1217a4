// Package load reads entity declarations from YAML documents.
//
//	entities:
//	  - name: Book
//	    table: books
//	    mixins: [version, time]
//	    fields:
//	      - {name: id, type: int64, id: true, generated: true}
//	      - {name: title, type: string}
//	    edges:
//	      - {name: author, kind: to_one, target: Author}
package load

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/edge"
	"github.com/syssam/derive/schema/field"
	"github.com/syssam/derive/schema/mixin"
)

// Document is the top level of a schema file.
type Document struct {
	Entities []*Entity `yaml:"entities"`
}

// Entity is an entity declaration as written in a schema file.
type Entity struct {
	Name   string   `yaml:"name"`
	Table  string   `yaml:"table,omitempty"`
	Mixins []string `yaml:"mixins,omitempty"`
	Fields []*Field `yaml:"fields,omitempty"`
	Edges  []*Edge  `yaml:"edges,omitempty"`
}

// Field is a property declaration as written in a schema file.
type Field struct {
	Name          string     `yaml:"name"`
	Type          field.Type `yaml:"type"`
	Optional      bool       `yaml:"optional,omitempty"`
	Immutable     bool       `yaml:"immutable,omitempty"`
	ID            bool       `yaml:"id,omitempty"`
	Version       bool       `yaml:"version,omitempty"`
	Generated     bool       `yaml:"generated,omitempty"`
	AutoPopulated bool       `yaml:"auto_populated,omitempty"`
	UpdateDefault bool       `yaml:"update_default,omitempty"`
	PartitionKey  bool       `yaml:"partition_key,omitempty"`
	StorageKey    string     `yaml:"storage_key,omitempty"`
	Values        []string   `yaml:"values,omitempty"`
	Comment       string     `yaml:"comment,omitempty"`
}

// Edge is an association declaration as written in a schema file.
type Edge struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Target     string `yaml:"target"`
	ForeignKey string `yaml:"foreign_key,omitempty"`
	JoinTable  string `yaml:"join_table,omitempty"`
	MappedBy   string `yaml:"mapped_by,omitempty"`
	Optional   bool   `yaml:"optional,omitempty"`
}

var mixins = map[string]schema.Mixin{
	"id":          mixin.ID{},
	"time":        mixin.Time{},
	"version":     mixin.Version{},
	"soft_delete": mixin.SoftDelete{},
}

// File reads the schema file at path and returns its declarations.
func File(path string) ([]schema.Schema, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: read schema file: %w", err)
	}
	return Parse(buf)
}

// Parse decodes a schema document and returns its declarations.
func Parse(buf []byte) ([]schema.Schema, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("load: decode schema: %w", err)
	}
	defs := make([]schema.Schema, 0, len(doc.Entities))
	for _, e := range doc.Entities {
		d, err := e.def()
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// Registry reads the schema file at path and links it into a registry.
func Registry(path string) (*schema.Registry, error) {
	defs, err := File(path)
	if err != nil {
		return nil, err
	}
	return schema.NewRegistry(defs...)
}

func (e *Entity) def() (schema.Def, error) {
	d := schema.Def{EntityName: e.Name, Table: e.Table}
	for _, name := range e.Mixins {
		m, ok := mixins[name]
		if !ok {
			return d, fmt.Errorf("load: entity %q: unknown mixin %q", e.Name, name)
		}
		d.FieldList = append(d.FieldList, m.Fields()...)
		d.EdgeList = append(d.EdgeList, m.Edges()...)
	}
	for _, f := range e.Fields {
		d.FieldList = append(d.FieldList, f.builder())
	}
	for _, ed := range e.Edges {
		b, err := ed.builder()
		if err != nil {
			return d, fmt.Errorf("load: entity %q: %w", e.Name, err)
		}
		d.EdgeList = append(d.EdgeList, b)
	}
	return d, nil
}

func (f *Field) builder() *field.Builder {
	b := field.Of(f.Name, f.Type)
	if f.Type == field.TypeEnum {
		b.Values(f.Values...)
	}
	if f.Optional {
		b.Optional()
	}
	if f.Immutable {
		b.Immutable()
	}
	if f.ID {
		b.ID()
	}
	if f.Version {
		b.Version()
	}
	if f.Generated {
		b.Generated()
	}
	if f.AutoPopulated {
		b.AutoPopulated()
	}
	if f.UpdateDefault {
		b.UpdateDefault()
	}
	if f.PartitionKey {
		b.PartitionKey()
	}
	if f.StorageKey != "" {
		b.StorageKey(f.StorageKey)
	}
	return b.Comment(f.Comment)
}

func (e *Edge) builder() (*edge.Builder, error) {
	kind, err := edge.ParseKind(e.Kind)
	if err != nil {
		return nil, err
	}
	var b *edge.Builder
	switch kind {
	case edge.ToOneOwning:
		b = edge.To(e.Name, e.Target).Unique()
	case edge.ToManyOwning:
		b = edge.To(e.Name, e.Target)
	case edge.ToOneInverse:
		b = edge.From(e.Name, e.Target).Unique()
	case edge.ToManyInverse:
		b = edge.From(e.Name, e.Target)
	default:
		b = edge.Embed(e.Name, e.Target)
	}
	if e.ForeignKey != "" {
		b.Field(e.ForeignKey)
	}
	if e.JoinTable != "" {
		b.Through(e.JoinTable)
	}
	if e.MappedBy != "" {
		b.Ref(e.MappedBy)
	}
	if e.Optional {
		b.Optional()
	}
	return b, nil
}
