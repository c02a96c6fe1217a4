package document_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/derive"
	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/dialect"
	"github.com/syssam/derive/dialect/document"
	"github.com/syssam/derive/finder"
	"github.com/syssam/derive/internal/fixture"
	"github.com/syssam/derive/jdql"
	"github.com/syssam/derive/schema/field"
)

var reg = fixture.Registry()

func match(t *testing.T, entity, method string, params ...criteria.ParamDecl) *criteria.Query {
	t.Helper()
	q, err := finder.New(reg).Match(finder.Signature{Method: method, Entity: entity, Params: params})
	require.NoError(t, err)
	return q
}

func decl(name string, t field.Type) criteria.ParamDecl {
	return criteria.ParamDecl{Name: name, Type: t}
}

func TestRender(t *testing.T) {
	ages := criteria.ParamDecl{Name: "ages", Type: field.TypeInt, Collection: true}
	tests := []struct {
		name  string
		q     *criteria.Query
		want  string
		names []string
	}{
		{
			name:  "conjunction",
			q:     match(t, "Product", "findByCategoryAndPriceGreaterThan", decl("category", field.TypeString), decl("price", field.TypeFloat)),
			want:  "SELECT * FROM c WHERE c.category = @category AND c.price > @price",
			names: []string{"@category", "@price"},
		},
		{
			name: "embedded",
			q:    match(t, "Person", "findByAddressCity", decl("city", field.TypeString)),
			want: "SELECT * FROM c WHERE c.address.city = @city",
		},
		{
			name: "ignore_case",
			q:    match(t, "Person", "findByNameIgnoreCase", decl("name", field.TypeString)),
			want: "SELECT * FROM c WHERE STRINGEQUALS(c.name, @name, true)",
		},
		{
			name: "contains_fold",
			q:    match(t, "Book", "findByTitleContainsIgnoreCase", decl("q", field.TypeString)),
			want: "SELECT * FROM c WHERE CONTAINS(c.title, @q, true)",
		},
		{
			name: "not_like",
			q:    match(t, "Book", "findByTitleNotLike", decl("pattern", field.TypeString)),
			want: "SELECT * FROM c WHERE NOT (c.title LIKE @pattern)",
		},
		{
			name:  "count_in",
			q:     match(t, "Person", "countByAgeIn", ages),
			want:  "SELECT VALUE COUNT(1) FROM c WHERE ARRAY_CONTAINS(@ages, c.age)",
			names: []string{"@ages"},
		},
		{
			name: "null_and_not_in",
			q:    match(t, "Person", "findByNameIsNullAndAgeNotIn", ages),
			want: "SELECT * FROM c WHERE IS_NULL(c.name) AND NOT ARRAY_CONTAINS(@ages, c.age)",
		},
		{
			name: "exists",
			q:    match(t, "Person", "existsByName", decl("name", field.TypeString)),
			want: "SELECT VALUE COUNT(1) FROM c WHERE c.name = @name",
		},
		{
			name:  "distinct_between",
			q:     match(t, "Person", "findDistinctNameByAgeBetween", decl("min", field.TypeInt), decl("max", field.TypeInt)),
			want:  "SELECT DISTINCT c.name FROM c WHERE c.age BETWEEN @min AND @max",
			names: []string{"@min", "@max"},
		},
		{
			name: "reference_id",
			q:    match(t, "Book", "findByAuthorId", decl("id", field.TypeInt64)),
			want: "SELECT * FROM c WHERE c.authorId = @id",
		},
		{
			name: "bool",
			q:    match(t, "Number", "findByIsOddTrue"),
			want: "SELECT * FROM c WHERE c.isOdd = true",
		},
		{
			name:  "jdql",
			q:     compile(t, "SELECT name FROM Person WHERE UPPER(name) = ?1 AND LENGTH(address.street) > 3 AND name <> 'x' || 'y'"),
			want:  `SELECT c.name FROM c WHERE UPPER(c.name) = @p AND LENGTH(c.address.street) > 3 AND c.name != CONCAT("x", "y")`,
			names: []string{"@p"},
		},
	}
	r := document.NewRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := r.Render(tt.q)
			require.NoError(t, err)
			assert.Equal(t, dialect.Cosmos, st.Dialect)
			assert.Equal(t, tt.want, st.Text)
			if tt.names != nil {
				assert.Equal(t, tt.names, st.Names)
			}
			assert.False(t, st.Expandable())
		})
	}
}

func compile(t *testing.T, src string) *criteria.Query {
	t.Helper()
	q, err := jdql.Compile(reg, src, jdql.Target{})
	require.NoError(t, err)
	return q
}

func TestRenderPaging(t *testing.T) {
	st, err := document.NewRenderer().Render(match(t, "Person", "findTop3ByOrderByAgeDescAndName"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM c ORDER BY c.age DESC, c.name ASC", st.Text)
	assert.Equal(t, &dialect.Paging{Limit: 3}, st.Paging)
}

func TestRenderPartitionKey(t *testing.T) {
	r := document.NewRenderer()
	st, err := r.Render(match(t, "Product", "findByName",
		criteria.ParamDecl{Name: "category", Type: field.TypeString, Role: criteria.RolePartitionKey},
		decl("name", field.TypeString),
	))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM c WHERE c.name = @name", st.Text)
	assert.Equal(t, []string{"@name", "@category"}, st.Names)
	assert.Equal(t, &dialect.PartitionKey{Path: "/category", Slot: 1}, st.PartitionKey)

	st, err = r.Render(match(t, "Product", "findByName", decl("name", field.TypeString)))
	require.NoError(t, err)
	assert.Equal(t, &dialect.PartitionKey{Path: "/category", Slot: -1}, st.PartitionKey)
}

func TestRenderMutations(t *testing.T) {
	r := document.NewRenderer()
	book := criteria.ParamDecl{Name: "book", Type: field.TypeEntity, Role: criteria.RoleEntity}
	product := criteria.ParamDecl{Name: "product", Type: field.TypeEntity, Role: criteria.RoleEntity}

	t.Run("update_entity", func(t *testing.T) {
		st, err := r.Render(match(t, "Book", "update", book))
		require.NoError(t, err)
		assert.Equal(t, "SELECT c.id FROM c WHERE c.id = @book_id AND c.version = @book_version", st.Text)
		assert.Equal(t, []string{"id"}, st.Columns)
		assert.True(t, st.Replace)
		assert.True(t, st.Guarded)
		assert.Equal(t, []dialect.PatchOp{
			{Op: "set", Path: "/version", Slot: 2},
			{Op: "set", Path: "/updatedAt", Slot: 3},
			{Op: "set", Path: "/title", Slot: 4},
			{Op: "set", Path: "/pages", Slot: 5},
			{Op: "set", Path: "/isbn", Slot: 6},
			{Op: "set", Path: "/authorId", Slot: 7},
		}, st.Patch)
		assert.Equal(t, "@book_version1", st.Names[2])
		assert.Equal(t, criteria.AutoIncrement, st.Params[2].Auto)
		assert.Equal(t, &dialect.PartitionKey{Path: "/id", Slot: 0}, st.PartitionKey)
	})

	t.Run("update_embedded", func(t *testing.T) {
		st, err := r.Render(match(t, "Person", "update", criteria.ParamDecl{Name: "person", Type: field.TypeEntity, Role: criteria.RoleEntity}))
		require.NoError(t, err)
		paths := make([]string, len(st.Patch))
		for i, op := range st.Patch {
			paths[i] = op.Path
		}
		assert.Equal(t, []string{"/name", "/age", "/address/street", "/address/city"}, paths)
		assert.False(t, st.Guarded)
	})

	t.Run("update_by_predicate", func(t *testing.T) {
		st, err := r.Render(match(t, "Book", "updateByTitle", decl("pages", field.TypeInt), decl("title", field.TypeString)))
		require.NoError(t, err)
		assert.Equal(t, "SELECT c.id FROM c WHERE c.title = @title", st.Text)
		assert.False(t, st.Replace)
		require.Len(t, st.Patch, 2)
		assert.Equal(t, "/pages", st.Patch[0].Path)
		assert.Equal(t, "@pages", st.Names[st.Patch[0].Slot])
		assert.Equal(t, &dialect.PartitionKey{Path: "/id", Slot: -1}, st.PartitionKey)
	})

	t.Run("insert_entity", func(t *testing.T) {
		st, err := r.Render(match(t, "Product", "save", product))
		require.NoError(t, err)
		assert.Empty(t, st.Text)
		assert.True(t, st.Replace)
		assert.Equal(t, []dialect.PatchOp{
			{Op: "set", Path: "/id", Slot: 0},
			{Op: "set", Path: "/productNum", Slot: 1},
			{Op: "set", Path: "/name", Slot: 2},
			{Op: "set", Path: "/price", Slot: 3},
			{Op: "set", Path: "/category", Slot: 4},
		}, st.Patch)
		assert.Equal(t, criteria.AutoID, st.Params[0].Auto)
		assert.Equal(t, &dialect.PartitionKey{Path: "/category", Slot: 4}, st.PartitionKey)
	})

	t.Run("delete_by_predicate", func(t *testing.T) {
		st, err := r.Render(match(t, "Product", "deleteByProductNumLike", decl("pattern", field.TypeString)))
		require.NoError(t, err)
		assert.Equal(t, "SELECT c.id, c.category FROM c WHERE c.productNum LIKE @pattern", st.Text)
		assert.Equal(t, []string{"id", "category"}, st.Columns)
		assert.Empty(t, st.Patch)
	})

	t.Run("computed_assignment", func(t *testing.T) {
		_, err := r.Render(compile(t, "UPDATE Book SET pages = pages + 1 WHERE id = ?1"))
		assert.True(t, derive.IsInvalidCriteria(err))
	})
}

func TestRenderErrors(t *testing.T) {
	r := document.NewRenderer()
	_, err := r.Render(match(t, "Book", "findByAuthorName", decl("name", field.TypeString)))
	assert.True(t, derive.IsInvalidCriteria(err))

	person, err := reg.Entity("Person")
	require.NoError(t, err)
	for _, kind := range []criteria.Kind{criteria.KindUpdate, criteria.KindDelete} {
		_, err = r.RenderRaw(dialect.Raw{Text: "DELETE FROM c", Kind: kind, Entity: person})
		assert.True(t, derive.IsUnsupportedRawMutation(err))
	}
}

func TestRenderRaw(t *testing.T) {
	person, err := reg.Entity("Person")
	require.NoError(t, err)
	st, err := document.NewRenderer().RenderRaw(dialect.Raw{
		Text:   `SELECT * FROM c WHERE c.name = @name AND c.age > ?2 AND c.note != "@x"`,
		Kind:   criteria.KindQuery,
		Entity: person,
		Params: []criteria.ParamDecl{decl("name", field.TypeString), decl("age", field.TypeInt)},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM c WHERE c.name = @name AND c.age > @age AND c.note != "@x"`, st.Text)
	assert.Equal(t, []string{"@name", "@age"}, st.Names)
	assert.Equal(t, -1, st.PartitionKey.Slot)
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
	st, err := document.NewRenderer().Render(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM c WHERE -(-c.age) > 1", st.Text)
}
