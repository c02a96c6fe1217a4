// Package catalog compiles a manifest of operations ahead of time. Every
// operation is derived and rendered for the manifest's target, and the
// resulting statements are written to a Go source file that embeds the
// query text and parameter order, so applications can ship pre-rendered
// statements without deriving them at startup.
//
// A manifest is a YAML document:
//
//	package: queries
//	schema: library.yaml
//	target: {name: pg, dialect: postgres}
//	operations:
//	  - name: BooksByTitle
//	    entity: Book
//	    method: findByTitle
//	    params: [{name: title, type: string}]
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/syssam/derive/dialect"
	"github.com/syssam/derive/engine"
	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/load"
)

// Manifest lists the operations to compile for one target.
type Manifest struct {
	// Package is the package clause of the generated file.
	Package string `yaml:"package"`
	// Schema is the path of the YAML entity declarations, relative to the
	// manifest.
	Schema     string              `yaml:"schema"`
	Target     engine.TargetConfig `yaml:"target"`
	Operations []Entry             `yaml:"operations"`

	dir string
}

// Entry is a named operation of a manifest.
type Entry struct {
	// Name is the exported Go identifier of the generated statement.
	Name             string `yaml:"name"`
	engine.Operation `yaml:",inline"`
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read manifest: %w", err)
	}
	m, err := Parse(buf)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// Parse parses a manifest.
func Parse(buf []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	m := &Manifest{}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("catalog: parse manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) validate() error {
	var errs []error
	if !token.IsIdentifier(m.Package) {
		errs = append(errs, fmt.Errorf("catalog: invalid package name %q", m.Package))
	}
	if m.Target.Dialect == "" {
		errs = append(errs, errors.New("catalog: target has no dialect"))
	}
	seen := make(map[string]bool, len(m.Operations))
	for i, e := range m.Operations {
		switch {
		case !token.IsIdentifier(e.Name) || !token.IsExported(e.Name):
			errs = append(errs, fmt.Errorf("catalog: operation %d: %q is not an exported identifier", i, e.Name))
		case seen[e.Name]:
			errs = append(errs, fmt.Errorf("catalog: duplicate operation %q", e.Name))
		}
		seen[e.Name] = true
	}
	return errors.Join(errs...)
}

// SchemaPath returns the schema path resolved against the manifest
// directory.
func (m *Manifest) SchemaPath() string {
	if m.Schema == "" || filepath.IsAbs(m.Schema) || m.dir == "" {
		return m.Schema
	}
	return filepath.Join(m.dir, m.Schema)
}

// Registry loads the entity registry named by the manifest.
func (m *Manifest) Registry() (*schema.Registry, error) {
	if m.Schema == "" {
		return nil, errors.New("catalog: manifest has no schema")
	}
	return load.Registry(m.SchemaPath())
}

// Compiled is a rendered manifest entry.
type Compiled struct {
	Name      string
	Operation engine.Operation
	Statement *dialect.Statement
}

// Catalog is a compiled manifest.
type Catalog struct {
	Package string
	Dialect string
	Entries []Compiled
}

// Compile renders every operation of the manifest against reg. All
// failing operations are reported together.
func Compile(ctx context.Context, m *Manifest, reg *schema.Registry, opts ...engine.Option) (*Catalog, error) {
	r, err := engine.NewRenderer(m.Target.Dialect, m.Target.Naming, m.Target.AlwaysQuote)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	name := m.Target.Name
	if name == "" {
		name = r.Dialect()
	}
	eng, err := engine.New(reg, append(opts[:len(opts):len(opts)], engine.WithTarget(name, r))...)
	if err != nil {
		return nil, err
	}
	ops := make([]engine.Operation, len(m.Operations))
	for i, e := range m.Operations {
		ops[i] = e.Operation
	}
	ps, err := eng.PrepareAll(ctx, name, ops)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	c := &Catalog{Package: m.Package, Dialect: r.Dialect(), Entries: make([]Compiled, len(ps))}
	for i, p := range ps {
		c.Entries[i] = Compiled{Name: m.Operations[i].Name, Operation: p.Operation, Statement: p.Statement()}
	}
	return c, nil
}
