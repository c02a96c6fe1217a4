package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/imports"

	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/dialect"
	"github.com/syssam/derive/engine"
)

// Header is the first line of generated files.
const Header = "Code generated by derive. DO NOT EDIT."

// multi renders a composite literal with one element per line.
var multi = jen.Options{Open: "{", Close: "}", Separator: ",", Multi: true}

// Generate returns the Go source of a compiled catalog. The file declares
// its own Statement type and has no dependency on this module.
func Generate(c *Catalog) ([]byte, error) {
	f := jen.NewFile(c.Package)
	f.HeaderComment(Header)

	f.Comment("Dialect is the dialect the statements are rendered for.")
	f.Const().Id("Dialect").Op("=").Lit(c.Dialect)
	f.Line()

	f.Comment("Param describes the value bound to a placeholder. Index is the position")
	f.Comment("of the declared parameter, or -1 for values generated at bind time.")
	f.Comment("Property selects a property of an entity argument.")
	f.Type().Id("Param").Struct(
		jen.Id("Index").Int(),
		jen.Id("Name").String(),
		jen.Id("Property").String(),
		jen.Id("Type").String(),
		jen.Id("Collection").Bool(),
		jen.Id("Auto").String(),
	)
	f.Line()

	f.Comment("PatchOp is a document patch operation.")
	f.Type().Id("PatchOp").Struct(
		jen.Id("Op").String(),
		jen.Id("Path").String(),
		jen.Id("Slot").Int(),
	)
	f.Line()

	f.Comment("Statement is a pre-rendered statement. Params holds the parameter of")
	f.Comment("each placeholder of Text, in placeholder order.")
	f.Type().Id("Statement").Struct(
		jen.Id("Name").String(),
		jen.Id("Kind").String(),
		jen.Id("Entity").String(),
		jen.Id("Text").String(),
		jen.Id("Params").Index().Id("Param"),
		jen.Id("Names").Index().String(),
		jen.Id("Columns").Index().String(),
		jen.Id("Limit").Int(),
		jen.Id("Offset").Int(),
		jen.Id("PartitionKeyPath").String(),
		jen.Id("PartitionKeySlot").Int(),
		jen.Id("Patch").Index().Id("PatchOp"),
		jen.Id("Replace").Bool(),
		jen.Id("EntityParam").Int(),
		jen.Id("Batch").Bool(),
		jen.Id("Guarded").Bool(),
	)

	index := jen.Dict{}
	for _, e := range c.Entries {
		f.Line()
		f.Comment(fmt.Sprintf("%s renders %s.", e.Name, e.Operation))
		f.Var().Id(e.Name).Op("=").Op("&").Id("Statement").Custom(multi, fields(e)...)
		index[jen.Lit(e.Name)] = jen.Id(e.Name)
	}
	f.Line()
	f.Comment("Statements indexes the statements by name.")
	f.Var().Id("Statements").Op("=").Map(jen.String()).Op("*").Id("Statement").Values(index)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("catalog: render: %w", err)
	}
	out, err := imports.Process(c.Package+".go", buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: format: %w", err)
	}
	return out, nil
}

func fields(e Compiled) []jen.Code {
	st := e.Statement
	out := []jen.Code{
		field("Name", jen.Lit(e.Name)),
		field("Kind", jen.Lit(st.Kind.String())),
		field("Entity", jen.Lit(st.Entity.Name)),
		field("Text", text(st.Text)),
	}
	if len(st.Params) > 0 {
		params := make([]jen.Code, len(st.Params))
		for i, p := range st.Params {
			params[i] = param(p)
		}
		out = append(out, field("Params", jen.Index().Id("Param").Custom(multi, params...)))
	}
	if len(st.Names) > 0 {
		out = append(out, field("Names", strs(st.Names)))
	}
	if len(st.Columns) > 0 {
		out = append(out, field("Columns", strs(st.Columns)))
	}
	if p := st.Paging; p != nil {
		if p.Limit > 0 {
			out = append(out, field("Limit", jen.Lit(p.Limit)))
		}
		if p.Offset > 0 {
			out = append(out, field("Offset", jen.Lit(p.Offset)))
		}
	}
	if pk := st.PartitionKey; pk != nil {
		out = append(out,
			field("PartitionKeyPath", jen.Lit(pk.Path)),
			field("PartitionKeySlot", jen.Lit(pk.Slot)),
		)
	}
	if len(st.Patch) > 0 {
		ops := make([]jen.Code, len(st.Patch))
		for i, op := range st.Patch {
			ops[i] = jen.Values(
				field("Op", jen.Lit(op.Op)),
				field("Path", jen.Lit(op.Path)),
				field("Slot", jen.Lit(op.Slot)),
			)
		}
		out = append(out, field("Patch", jen.Index().Id("PatchOp").Custom(multi, ops...)))
	}
	if st.Replace {
		out = append(out, field("Replace", jen.True()))
	}
	out = append(out, field("EntityParam", jen.Lit(st.EntityParam)))
	if st.Batch {
		out = append(out, field("Batch", jen.True()))
	}
	if st.Guarded {
		out = append(out, field("Guarded", jen.True()))
	}
	return out
}

func param(p *criteria.Param) jen.Code {
	vals := []jen.Code{field("Index", jen.Lit(p.Index))}
	if p.Name != "" {
		vals = append(vals, field("Name", jen.Lit(p.Name)))
	}
	if p.Property != "" {
		vals = append(vals, field("Property", jen.Lit(p.Property)))
	}
	if p.Type.Valid() {
		vals = append(vals, field("Type", jen.Lit(p.Type.String())))
	}
	if p.Collection {
		vals = append(vals, field("Collection", jen.True()))
	}
	if a := autoName(p.Auto); a != "" {
		vals = append(vals, field("Auto", jen.Lit(a)))
	}
	return jen.Values(vals...)
}

func autoName(a criteria.Auto) string {
	switch a {
	case criteria.AutoID:
		return "id"
	case criteria.AutoNow:
		return "now"
	case criteria.AutoIncrement:
		return "increment"
	case criteria.AutoInitial:
		return "initial"
	default:
		return ""
	}
}

func field(name string, v jen.Code) jen.Code {
	return jen.Id(name).Op(":").Add(v)
}

func strs(ss []string) jen.Code {
	vals := make([]jen.Code, len(ss))
	for i, s := range ss {
		vals[i] = jen.Lit(s)
	}
	return jen.Index().String().Values(vals...)
}

// text prefers a raw string literal for statements with quoted
// identifiers.
func text(s string) jen.Code {
	if strings.Contains(s, `"`) && strconv.CanBackquote(s) {
		return jen.Op("`" + s + "`")
	}
	return jen.Lit(s)
}

// WriteFile compiles the manifest at path and writes the generated source
// to out. It returns the compiled catalog.
func WriteFile(ctx context.Context, path, out string, opts ...engine.Option) (*Catalog, error) {
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	reg, err := m.Registry()
	if err != nil {
		return nil, err
	}
	c, err := Compile(ctx, m, reg, opts...)
	if err != nil {
		return nil, err
	}
	src, err := Generate(c)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, fmt.Errorf("catalog: create directory: %w", err)
	}
	if err := os.WriteFile(out, src, 0o644); err != nil {
		return nil, fmt.Errorf("catalog: write %s: %w", out, err)
	}
	return c, nil
}

// Statement returns the compiled statement of an entry by name.
func (c *Catalog) Statement(name string) (*dialect.Statement, bool) {
	for _, e := range c.Entries {
		if e.Name == name {
			return e.Statement, true
		}
	}
	return nil, false
}
