package bind_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/derive"
	"github.com/syssam/derive/bind"
	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/dialect"
	"github.com/syssam/derive/dialect/document"
	"github.com/syssam/derive/dialect/sql"
	"github.com/syssam/derive/finder"
	"github.com/syssam/derive/internal/fixture"
	"github.com/syssam/derive/jdql"
	"github.com/syssam/derive/schema/field"
)

var (
	reg = fixture.Registry()
	now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func binder() *bind.Binder {
	return bind.New(
		bind.WithClock(func() time.Time { return now }),
		bind.WithIDGenerator(func() string { return "gen-1" }),
	)
}

func match(t *testing.T, entity, method string, params ...criteria.ParamDecl) *criteria.Query {
	t.Helper()
	q, err := finder.New(reg).Match(finder.Signature{Method: method, Entity: entity, Params: params})
	require.NoError(t, err)
	return q
}

func render(t *testing.T, name string, q *criteria.Query) *dialect.Statement {
	t.Helper()
	r, err := sql.NewRenderer(name)
	require.NoError(t, err)
	st, err := r.Render(q)
	require.NoError(t, err)
	return st
}

func str(name string) criteria.ParamDecl { return criteria.ParamDecl{Name: name, Type: field.TypeString} }
func num(name string) criteria.ParamDecl { return criteria.ParamDecl{Name: name, Type: field.TypeInt} }

func entity(name string, r criteria.Role) criteria.ParamDecl {
	return criteria.ParamDecl{Name: name, Type: field.TypeEntity, Role: r}
}

func TestBindDeclarativeQuery(t *testing.T) {
	q, err := jdql.Compile(reg, "WHERE isOdd = true AND id BETWEEN 21 AND ?1 ORDER BY id ASC", jdql.Target{
		Entity: "Number",
		Params: []criteria.ParamDecl{{Name: "max", Type: field.TypeInt64}},
	})
	require.NoError(t, err)
	st := render(t, dialect.SQLite, q)
	ex, err := binder().Bind(st, bind.Args(50))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(50)}, ex.Args)
	assert.Equal(t, st.Text, ex.Text)
	require.Len(t, ex.Bindings, 1)
	assert.Empty(t, ex.Bindings[0].Name)
	assert.Nil(t, ex.PartitionKey)
}

func TestBindConversion(t *testing.T) {
	st := render(t, dialect.Postgres, match(t, "Person", "findByNameAndAgeGreaterThan", str("name"), num("age")))
	tests := []struct {
		name string
		args []any
		want []any
	}{
		{name: "native", args: []any{"Ann", 30}, want: []any{"Ann", int64(30)}},
		{name: "narrow_int", args: []any{"Ann", int32(30)}, want: []any{"Ann", int64(30)}},
		{name: "string_number", args: []any{"Ann", "30"}, want: []any{"Ann", int64(30)}},
		{name: "pointer", args: []any{ptr("Ann"), ptr(30)}, want: []any{"Ann", int64(30)}},
		{name: "nil", args: []any{nil, nil}, want: []any{nil, nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := binder().Bind(st, bind.Args(tt.args...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ex.Args)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestBindErrors(t *testing.T) {
	st := render(t, dialect.Postgres, match(t, "Person", "findByNameAndAgeGreaterThan", str("name"), num("age")))

	_, err := binder().Bind(st, bind.Args("Ann"))
	require.Error(t, err)
	assert.True(t, derive.IsParameterResolution(err))
	assert.Contains(t, err.Error(), "age")

	_, err = binder().Bind(st, bind.Args("Ann", true))
	require.Error(t, err)
	assert.True(t, derive.IsParameterResolution(err))

	_, err = binder().Bind(st, bind.Args("Ann", 1.5))
	assert.True(t, derive.IsParameterResolution(err))

	ages := criteria.ParamDecl{Name: "ages", Type: field.TypeInt, Collection: true}
	in := render(t, dialect.Postgres, match(t, "Person", "countByAgeIn", ages))
	_, err = binder().Bind(in, bind.Args(3))
	assert.True(t, derive.IsParameterResolution(err))
}

func TestBindCollection(t *testing.T) {
	ages := criteria.ParamDecl{Name: "ages", Type: field.TypeInt, Collection: true}
	st := render(t, dialect.Postgres, match(t, "Person", "findByAgeInAndName", ages, str("name")))
	ex, err := binder().Bind(st, bind.Args([]int{1, 2}, "Ann"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name, age, address_street, address_city FROM person WHERE age IN ($1, $2) AND name = $3", ex.Text)
	assert.Equal(t, []any{int64(1), int64(2), "Ann"}, ex.Args)
	require.Len(t, ex.Bindings, 2)
	assert.Equal(t, []any{int64(1), int64(2)}, ex.Bindings[0].Value)

	// Named dialects bind the collection as a single value.
	doc, err := document.NewRenderer().Render(match(t, "Person", "findByAgeInAndName", ages, str("name")))
	require.NoError(t, err)
	ex, err = binder().Bind(doc, bind.Args([3]int{4, 5, 6}, "Ann"))
	require.NoError(t, err)
	assert.Equal(t, doc.Text, ex.Text)
	assert.Equal(t, []any{[]any{int64(4), int64(5), int64(6)}, "Ann"}, ex.Args)
	assert.Equal(t, "@ages", ex.Bindings[0].Name)
}

func TestBindNamed(t *testing.T) {
	q, err := jdql.Compile(reg, "FROM Person WHERE name = :name AND age > :min", jdql.Target{})
	require.NoError(t, err)
	st := render(t, dialect.MySQL, q)

	ex, err := binder().Bind(st, bind.Values{}.With("name", "Ann").With("min", 18))
	require.NoError(t, err)
	assert.Equal(t, []any{"Ann", int64(18)}, ex.Args)

	_, err = binder().Bind(st, bind.Values{}.With("name", "Ann"))
	require.Error(t, err)
	assert.True(t, derive.IsParameterResolution(err))
	assert.Contains(t, err.Error(), "min")
}

func TestBindInsertEntity(t *testing.T) {
	st := render(t, dialect.SQLite, match(t, "Book", "save", entity("book", criteria.RoleEntity)))
	tests := []struct {
		name   string
		author any
		want   any
	}{
		{name: "author_map", author: map[string]any{"id": 5, "name": "Frank"}, want: int64(5)},
		{name: "author_id", author: 5, want: int64(5)},
		{name: "author_nil", author: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := map[string]any{"title": "Dune", "pages": 412, "isbn": nil, "author": tt.author}
			ex, err := binder().Bind(st, bind.Args(book))
			require.NoError(t, err)
			assert.Equal(t, []any{int64(0), now, now, "Dune", int64(412), nil, tt.want}, ex.Args)
		})
	}
}

type product struct {
	ID       string `derive:"id"`
	Number   string `derive:"productNum"`
	Name     string
	Price    float64
	Category string
}

func TestBindGeneratedID(t *testing.T) {
	st, err := document.NewRenderer().Render(match(t, "Product", "save", entity("product", criteria.RoleEntity)))
	require.NoError(t, err)

	ex, err := binder().Bind(st, bind.Args(product{Number: "P-1", Name: "Pen", Price: 2, Category: "office"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "gen-1"}, ex.Generated)
	assert.Equal(t, []any{"gen-1", "P-1", "Pen", float64(2), "office"}, ex.Args)
	assert.Equal(t, "office", ex.PartitionKey)

	ex, err = binder().Bind(st, bind.Args(&product{ID: "p-9", Number: "P-2", Category: "home"}))
	require.NoError(t, err)
	assert.Empty(t, ex.Generated)
	assert.Equal(t, "p-9", ex.Args[0])
	assert.Equal(t, "home", ex.PartitionKey)
}

func TestBindPartitionKeyRole(t *testing.T) {
	st, err := document.NewRenderer().Render(match(t, "Product", "findByName",
		criteria.ParamDecl{Name: "category", Type: field.TypeString, Role: criteria.RolePartitionKey},
		str("name"),
	))
	require.NoError(t, err)
	ex, err := binder().Bind(st, bind.Args("office", "Pen"))
	require.NoError(t, err)
	assert.Equal(t, "office", ex.PartitionKey)
	assert.Equal(t, []bind.Binding{
		{Name: "@name", Param: st.Params[0], Value: "Pen"},
		{Name: "@category", Param: st.Params[1], Value: "office"},
	}, ex.Bindings)
}

type book struct {
	ID      int64
	Version int
	Title   string
	Pages   int
	ISBN    *string
	Author  *author
}

type author struct {
	ID   int64
	Name string
}

func TestBindVersionedUpdate(t *testing.T) {
	st := render(t, dialect.Postgres, match(t, "Book", "update", entity("book", criteria.RoleEntity)))
	assert.Equal(t, "UPDATE book SET version = $1, updated_at = $2, title = $3, pages = $4, isbn = $5, author_id = $6 WHERE id = $7 AND version = $8", st.Text)

	isbn := "978-0441013593"
	ex, err := binder().Bind(st, bind.Args(&book{ID: 3, Version: 4, Title: "Dune", Pages: 412, ISBN: &isbn, Author: &author{ID: 9}}))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(5), now, "Dune", int64(412), isbn, int64(9), int64(3), int64(4)}, ex.Args)
	assert.Equal(t, map[string]any{"version": 4}, ex.Previous)
}

func TestBindBatch(t *testing.T) {
	st := render(t, dialect.SQLite, match(t, "Book", "deleteAll", entity("books", criteria.RoleEntities)))
	require.True(t, st.Batch)
	books := []map[string]any{
		{"id": 1, "version": 0},
		{"id": 2, "version": 3},
	}
	exs, err := binder().BindBatch(st, bind.Args(books))
	require.NoError(t, err)
	require.Len(t, exs, 2)
	assert.Equal(t, []any{int64(1), int64(0)}, exs[0].Args)
	assert.Equal(t, []any{int64(2), int64(3)}, exs[1].Args)

	_, err = binder().BindBatch(st, bind.Args(books[0]))
	assert.True(t, derive.IsParameterResolution(err))

	single := render(t, dialect.SQLite, match(t, "Person", "existsByName", str("name")))
	exs, err = binder().BindBatch(single, bind.Args("Ann"))
	require.NoError(t, err)
	require.Len(t, exs, 1)
	assert.Equal(t, []any{"Ann"}, exs[0].Args)
}

func TestValuesWith(t *testing.T) {
	base := bind.Args(1).With("a", 1)
	next := base.With("b", 2)
	assert.Equal(t, map[string]any{"a": 1}, base.Named)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, next.Named)
	assert.Equal(t, []any{1}, next.Positional)
}
