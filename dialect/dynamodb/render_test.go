package dynamodb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/derive"
	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/dialect"
	"github.com/syssam/derive/dialect/dynamodb"
	"github.com/syssam/derive/finder"
	"github.com/syssam/derive/internal/fixture"
	"github.com/syssam/derive/jdql"
	"github.com/syssam/derive/naming"
	"github.com/syssam/derive/schema/field"
)

var reg = fixture.Registry()

func match(t *testing.T, entity, method string, params ...criteria.ParamDecl) *criteria.Query {
	t.Helper()
	q, err := finder.New(reg).Match(finder.Signature{Method: method, Entity: entity, Params: params})
	require.NoError(t, err)
	return q
}

func compile(t *testing.T, src string) *criteria.Query {
	t.Helper()
	q, err := jdql.Compile(reg, src, jdql.Target{})
	require.NoError(t, err)
	return q
}

func str(name string) criteria.ParamDecl { return criteria.ParamDecl{Name: name, Type: field.TypeString} }
func num(name string) criteria.ParamDecl { return criteria.ParamDecl{Name: name, Type: field.TypeInt} }

func entity(name string) criteria.ParamDecl {
	return criteria.ParamDecl{Name: name, Type: field.TypeEntity, Role: criteria.RoleEntity}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		q       *criteria.Query
		want    string
		columns []string
		paging  *dialect.Paging
		guarded bool
	}{
		{
			name: "conjunction",
			q:    match(t, "Person", "findByNameAndAgeGreaterThan", str("name"), num("age")),
			want: `SELECT * FROM "Person" WHERE "name" = ? AND "age" > ?`,
		},
		{
			name: "embedded",
			q:    match(t, "Person", "findByAddressCity", str("city")),
			want: `SELECT * FROM "Person" WHERE "address"."city" = ?`,
		},
		{
			name: "begins_with",
			q:    match(t, "Book", "findByTitleStartsWith", str("prefix")),
			want: `SELECT * FROM "Book" WHERE begins_with("title", ?)`,
		},
		{
			name: "contains",
			q:    match(t, "Book", "findByTitleContains", str("q")),
			want: `SELECT * FROM "Book" WHERE contains("title", ?)`,
		},
		{
			name: "null",
			q:    match(t, "Person", "findByNameIsNull"),
			want: `SELECT * FROM "Person" WHERE ("name" IS NULL OR "name" IS MISSING)`,
		},
		{
			name: "bool",
			q:    match(t, "Number", "findByIsOddTrue"),
			want: `SELECT * FROM "Number" WHERE "isOdd" = true`,
		},
		{
			name: "reference_id",
			q:    match(t, "Book", "findByAuthorId", criteria.ParamDecl{Name: "id", Type: field.TypeInt64}),
			want: `SELECT * FROM "Book" WHERE "authorId" = ?`,
		},
		{
			name:    "projection",
			q:       match(t, "Person", "findNameByAge", num("age")),
			want:    `SELECT "name" FROM "Person" WHERE "age" = ?`,
			columns: []string{"name"},
		},
		{
			name:    "count",
			q:       match(t, "Person", "countByAgeGreaterThan", num("age")),
			want:    `SELECT "id" FROM "Person" WHERE "age" > ?`,
			columns: []string{"id"},
		},
		{
			name:    "exists",
			q:       match(t, "Person", "existsByName", str("name")),
			want:    `SELECT "id" FROM "Person" WHERE "name" = ?`,
			columns: []string{"id"},
			paging:  &dialect.Paging{Limit: 1},
		},
		{
			name:   "top",
			q:      match(t, "Person", "findTop3ByOrderByAgeDescAndName"),
			want:   `SELECT * FROM "Person" ORDER BY "age" DESC, "name" ASC`,
			paging: &dialect.Paging{Limit: 3},
		},
		{
			name:    "delete_entity",
			q:       match(t, "Book", "delete", entity("book")),
			want:    `DELETE FROM "Book" WHERE "id" = ? AND "version" = ?`,
			guarded: true,
		},
		{
			name:    "update_entity",
			q:       match(t, "Book", "update", entity("book")),
			want:    `UPDATE "Book" SET "version" = ? SET "updatedAt" = ? SET "title" = ? SET "pages" = ? SET "isbn" = ? SET "authorId" = ? WHERE "id" = ? AND "version" = ?`,
			guarded: true,
		},
		{
			name: "insert_embedded",
			q:    match(t, "Person", "save", entity("person")),
			want: `INSERT INTO "Person" VALUE {'name' : ?, 'age' : ?, 'address' : {'street' : ?, 'city' : ?}}`,
		},
		{
			name: "update_composite_key",
			q:    compile(t, "UPDATE Enrollment SET grade = 'A' WHERE courseId = ?2 AND studentId = ?1"),
			want: `UPDATE "Enrollment" SET "grade" = 'A' WHERE "courseId" = ? AND "studentId" = ?`,
		},
		{
			name: "jdql_update",
			q:    compile(t, "UPDATE Book SET pages = pages + 1 WHERE id = ?1"),
			want: `UPDATE "Book" SET "pages" = "pages" + 1 WHERE "id" = ?`,
		},
		{
			name: "jdql_size",
			q:    compile(t, "SELECT name FROM Person WHERE LENGTH(name) > 3 AND name <> 'O''Brien'"),
			want: `SELECT "name" FROM "Person" WHERE size("name") > 3 AND "name" <> 'O''Brien'`,
		},
	}
	r := dynamodb.NewRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := r.Render(tt.q)
			require.NoError(t, err)
			assert.Equal(t, dialect.DynamoDB, st.Dialect)
			assert.Equal(t, tt.want, st.Text)
			if tt.columns != nil {
				assert.Equal(t, tt.columns, st.Columns)
			}
			assert.Equal(t, tt.paging, st.Paging)
			assert.Equal(t, tt.guarded, st.Guarded)
		})
	}
}

func TestRenderCollection(t *testing.T) {
	ages := criteria.ParamDecl{Name: "ages", Type: field.TypeInt, Collection: true}
	st, err := dynamodb.NewRenderer().Render(match(t, "Person", "findByAgeInAndName", ages, str("name")))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "Person" WHERE "age" IN [?] AND "name" = ?`, st.Text)
	require.True(t, st.Expandable())
	assert.Equal(t, `SELECT * FROM "Person" WHERE "age" IN [?, ?, ?] AND "name" = ?`, st.Expand([]int{3, 0}))
	assert.Equal(t, `SELECT * FROM "Person" WHERE "age" IN [NULL] AND "name" = ?`, st.Expand([]int{0, 0}))

	st, err = dynamodb.NewRenderer().Render(match(t, "Person", "findByAgeNotIn", ages))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "Person" WHERE NOT "age" IN [?]`, st.Text)
}

func TestRenderNaming(t *testing.T) {
	st, err := dynamodb.NewRenderer(dynamodb.WithNaming(naming.SnakeCase)).Render(match(t, "Product", "findByProductNum", str("num")))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "product" WHERE "product_num" = ?`, st.Text)
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name string
		q    *criteria.Query
	}{
		{name: "ignore_case", q: match(t, "Person", "findByNameIgnoreCase", str("name"))},
		{name: "ends_with", q: match(t, "Book", "findByTitleEndsWith", str("suffix"))},
		{name: "join", q: match(t, "Book", "findByAuthorName", str("name"))},
		{name: "distinct", q: match(t, "Person", "findDistinctNameByAge", num("age"))},
		{name: "multiply", q: compile(t, "UPDATE Book SET pages = pages * 2 WHERE id = ?1")},
		{name: "delete_by_non_key", q: match(t, "Product", "deleteByProductNum", str("num"))},
		{name: "delete_all", q: match(t, "Book", "deleteAll")},
		{name: "update_by_non_key", q: compile(t, "UPDATE Book SET pages = 1 WHERE title = 'x'")},
		{name: "update_partial_key", q: compile(t, "UPDATE Enrollment SET grade = 'A' WHERE studentId = ?1")},
		{name: "update_key_or", q: compile(t, "UPDATE Book SET pages = 1 WHERE id = ?1 OR id = ?2")},
		{name: "lower", q: compile(t, "SELECT name FROM Person WHERE LOWER(name) = 'ann'")},
	}
	r := dynamodb.NewRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(tt.q)
			require.Error(t, err)
			assert.True(t, derive.IsInvalidCriteria(err), err.Error())
		})
	}
}

func TestRenderRaw(t *testing.T) {
	person, err := reg.Entity("Person")
	require.NoError(t, err)
	st, err := dynamodb.NewRenderer().RenderRaw(dialect.Raw{
		Text:   `SELECT * FROM "Person" WHERE "name" = :name AND "age" > ?2 AND "note" <> '?'`,
		Kind:   criteria.KindQuery,
		Entity: person,
		Params: []criteria.ParamDecl{str("name"), num("age")},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "Person" WHERE "name" = ? AND "age" > ? AND "note" <> '?'`, st.Text)
	require.Len(t, st.Params, 2)
	assert.Equal(t, "name", st.Params[0].Name)
	assert.Equal(t, "age", st.Params[1].Name)

	st, err = dynamodb.NewRenderer().RenderRaw(dialect.Raw{
		Text:   `DELETE FROM "Person" WHERE "id" = ?1`,
		Kind:   criteria.KindDelete,
		Entity: person,
		Params: []criteria.ParamDecl{{Name: "id", Type: field.TypeInt64}},
	})
	require.NoError(t, err)
	assert.Equal(t, criteria.KindDelete, st.Kind)
}

func TestRenderNegation(t *testing.T) {
	person, err := reg.Entity("Person")
	require.NoError(t, err)
	age, err := reg.Resolve("Person", "age")
	require.NoError(t, err)
	q, err := criteria.New(criteria.KindQuery, person).
		Where(criteria.Gt(&criteria.Neg{X: &criteria.Neg{X: criteria.P(age)}}, criteria.Lit(int64(1)))).
		Build()
	require.NoError(t, err)
	st, err := dynamodb.NewRenderer().Render(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "Person" WHERE -(-"age") > 1`, st.Text)
}
