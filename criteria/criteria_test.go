package criteria_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/derive"
	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/internal/fixture"
	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/field"
)

func path(t *testing.T, reg *schema.Registry, entity, p string) *schema.Path {
	t.Helper()
	r, err := reg.Resolve(entity, p)
	require.NoError(t, err)
	return r
}

func entity(t *testing.T, reg *schema.Registry, name string) *schema.Entity {
	t.Helper()
	e, err := reg.Entity(name)
	require.NoError(t, err)
	return e
}

func TestPredicateString(t *testing.T) {
	reg := fixture.Registry()
	name := criteria.P(path(t, reg, "Person", "name"))
	age := criteria.P(path(t, reg, "Person", "age"))

	tests := []struct {
		P criteria.Predicate
		S string
	}{
		{
			P: criteria.And(criteria.Eq(name, criteria.Arg(0, "name", field.TypeString)), criteria.Gt(age, criteria.Arg(1, "age", field.TypeInt))),
			S: `name == ?0 && age > ?1`,
		},
		{
			P: criteria.Or(criteria.Not(criteria.Eq(name, criteria.Lit("a8m"))), criteria.InList(name, criteria.Lit("x"), criteria.Lit("y"))),
			S: `!(name == "a8m") || name in ["x","y"]`,
		},
		{
			P: criteria.And(criteria.Or(criteria.IsNull(name), criteria.NotNull(age)), criteria.Range(age, criteria.Lit(1), criteria.Named("max", field.TypeInt))),
			S: `(name == null || age != null) && between(age, 1, :max)`,
		},
		{
			P: criteria.Contains(name, criteria.Arg(0, "", field.TypeString)),
			S: `contains(name, ?0)`,
		},
		{
			P: &criteria.Like{L: name, Pattern: criteria.Lit("a%"), Negated: true, IgnoreCase: true},
			S: `!like_fold(name, "a%")`,
		},
		{
			P: &criteria.Comparison{Op: criteria.EQ, L: name, R: criteria.Arg(0, "", 0), IgnoreCase: true},
			S: `lower(name) == lower(?0)`,
		},
		{
			P: criteria.Gt(&criteria.Arith{Op: criteria.Add, L: age, R: criteria.Lit(1)}, &criteria.Func{Fn: criteria.FnLength, Args: []criteria.Expr{name}}),
			S: `(age + 1) > length(name)`,
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.S, tt.P.String())
	}
}

func TestJunctionFlattening(t *testing.T) {
	reg := fixture.Registry()
	name := criteria.P(path(t, reg, "Person", "name"))
	a := criteria.Eq(name, criteria.Lit("a"))
	b := criteria.Eq(name, criteria.Lit("b"))
	c := criteria.Eq(name, criteria.Lit("c"))

	assert.Nil(t, criteria.And())
	assert.Same(t, a, criteria.And(nil, a))

	j, ok := criteria.And(criteria.And(a, b), c).(*criteria.Junction)
	require.True(t, ok)
	assert.Len(t, j.Preds, 3)

	j, ok = criteria.And(criteria.Or(a, b), c).(*criteria.Junction)
	require.True(t, ok)
	assert.Len(t, j.Preds, 2)
	assert.Len(t, criteria.Conjuncts(j), 2)
	assert.Len(t, criteria.Conjuncts(criteria.Or(a, b)), 1)
}

func TestBuild(t *testing.T) {
	reg := fixture.Registry()

	t.Run("defaults", func(t *testing.T) {
		q, err := criteria.New(criteria.KindCount, entity(t, reg, "Book")).Build()
		require.NoError(t, err)
		assert.Equal(t, criteria.SelectCount, q.Selection.Kind)
		assert.Equal(t, -1, q.EntityParam)
		assert.Equal(t, "COUNT Book", q.String())

		q, err = criteria.New(criteria.KindExists, entity(t, reg, "Book")).Build()
		require.NoError(t, err)
		assert.Equal(t, criteria.SelectExists, q.Selection.Kind)
	})

	t.Run("params_and_targets", func(t *testing.T) {
		title := path(t, reg, "Book", "title")
		pages := path(t, reg, "Book", "pages")
		q, err := criteria.New(criteria.KindUpdate, entity(t, reg, "Book")).
			Set(title, criteria.Arg(1, "title", 0)).
			Where(criteria.Gt(criteria.P(pages), criteria.Arg(0, "pages", 0))).
			Build()
		require.NoError(t, err)
		require.Len(t, q.Params, 2)
		assert.Equal(t, 1, q.Params[0].Index)
		assert.Same(t, title.Property, q.Params[0].Target)
		assert.Equal(t, field.TypeString, q.Params[0].Type)
		assert.Equal(t, field.TypeInt, q.Params[1].Type)
		assert.Equal(t, []int{0, 1}, q.Consumed())
		assert.Equal(t, "UPDATE Book SET title = ?1 WHERE pages > ?0", q.String())
	})

	t.Run("auto_join", func(t *testing.T) {
		q, err := criteria.New(criteria.KindQuery, entity(t, reg, "Book")).
			Where(criteria.Eq(criteria.P(path(t, reg, "Book", "author.name")), criteria.Arg(0, "", 0))).
			OrderBy(criteria.Order{Path: path(t, reg, "Book", "title"), Desc: true}).
			Limit(10, 5).
			Build()
		require.NoError(t, err)
		require.Len(t, q.Joins, 1)
		assert.Equal(t, "author", q.Joins[0].Path.String())
		assert.Equal(t, criteria.InnerJoin, q.Joins[0].Kind)
		assert.Equal(t, "QUERY Book JOIN author WHERE author.name == ?0 ORDER BY title DESC LIMIT 10 OFFSET 5", q.String())
	})

	t.Run("foreign_key_shortcut", func(t *testing.T) {
		p := path(t, reg, "Book", "author.id")
		assert.False(t, criteria.NeedsJoin(p))
		q, err := criteria.New(criteria.KindDelete, entity(t, reg, "Book")).
			Where(criteria.Eq(criteria.P(p), criteria.Arg(0, "", 0))).
			Build()
		require.NoError(t, err)
		assert.Empty(t, q.Joins)
	})

	t.Run("explicit_left_fetch_join", func(t *testing.T) {
		q, err := criteria.New(criteria.KindQuery, entity(t, reg, "Book")).
			Join(path(t, reg, "Book", "author"), criteria.LeftJoin, true).
			Where(criteria.Eq(criteria.P(path(t, reg, "Book", "author.name")), criteria.Lit("x"))).
			Build()
		require.NoError(t, err)
		require.Len(t, q.Joins, 1)
		assert.Equal(t, criteria.LeftJoin, q.Joins[0].Kind)
		assert.True(t, q.Joins[0].Fetch)
	})
}

func TestBuildInvariants(t *testing.T) {
	reg := fixture.Registry()
	book := entity(t, reg, "Book")
	enrollment := entity(t, reg, "Enrollment")

	tests := []struct {
		name string
		b    *criteria.Builder
		want string
	}{
		{
			name: "update_without_assignments",
			b:    criteria.New(criteria.KindUpdate, book),
			want: "update without assignments",
		},
		{
			name: "insert_without_values",
			b:    criteria.New(criteria.KindInsert, book),
			want: "insert without values",
		},
		{
			name: "not_updatable",
			b:    criteria.New(criteria.KindUpdate, book).Set(path(t, reg, "Book", "createdAt"), criteria.Arg(0, "", 0)),
			want: "not updatable",
		},
		{
			name: "mutation_join",
			b: criteria.New(criteria.KindDelete, book).
				Where(criteria.Eq(criteria.P(path(t, reg, "Book", "author.name")), criteria.Arg(0, "", 0))),
			want: "cannot traverse association",
		},
		{
			name: "compare_to_many",
			b: criteria.New(criteria.KindQuery, book).
				Where(criteria.Eq(criteria.P(path(t, reg, "Book", "tags")), criteria.Arg(0, "", 0))),
			want: "cannot compare",
		},
		{
			name: "foreign_root",
			b: criteria.New(criteria.KindQuery, book).
				Where(criteria.Eq(criteria.P(path(t, reg, "Person", "name")), criteria.Arg(0, "", 0))),
			want: "starts at Person",
		},
		{
			name: "composite_identity_coverage",
			b: criteria.New(criteria.KindQuery, enrollment).Identity().
				Where(criteria.Eq(criteria.P(path(t, reg, "Enrollment", "studentId")), criteria.Arg(0, "", 0))),
			want: "does not cover courseId",
		},
		{
			name: "versioned_delete_requires_version",
			b: criteria.New(criteria.KindDelete, book).Identity().
				Where(criteria.Eq(criteria.P(path(t, reg, "Book", "id")), &criteria.Param{Index: 0, Property: "id"})),
			want: "requires a version predicate",
		},
		{
			name: "assignments_on_query",
			b:    criteria.New(criteria.KindQuery, book).Set(path(t, reg, "Book", "title"), criteria.Lit("x")),
			want: "query with assignments",
		},
		{
			name: "negative_limit",
			b:    criteria.New(criteria.KindQuery, book).Limit(-1, 0),
			want: "negative limit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			require.Error(t, err)
			assert.True(t, derive.IsInvalidCriteria(err))
			assert.ErrorContains(t, err, tt.want)
		})
	}

	t.Run("versioned_identity_ok", func(t *testing.T) {
		q, err := criteria.New(criteria.KindDelete, book).Identity().EntityParam(0, false).
			Where(criteria.And(
				criteria.Eq(criteria.P(path(t, reg, "Book", "id")), &criteria.Param{Index: 0, Property: "id"}),
				criteria.Eq(criteria.P(path(t, reg, "Book", "version")), &criteria.Param{Index: 0, Property: "version"}),
			)).
			Build()
		require.NoError(t, err)
		assert.Equal(t, "DELETE Book WHERE id == ?0.id && version == ?0.version", q.String())
		assert.Equal(t, []int{0}, q.Consumed())
	})

	t.Run("whole_document_update", func(t *testing.T) {
		_, err := criteria.New(criteria.KindUpdate, book).WholeDocument().Build()
		require.NoError(t, err)
	})
}

func TestKindAndRole(t *testing.T) {
	k, err := criteria.ParseKind("Delete")
	require.NoError(t, err)
	assert.Equal(t, criteria.KindDelete, k)
	assert.True(t, k.Mutation())
	_, err = criteria.ParseKind("merge")
	assert.Error(t, err)

	var r criteria.Role
	require.NoError(t, r.UnmarshalText([]byte("partition_key")))
	assert.Equal(t, criteria.RolePartitionKey, r)
	assert.Error(t, r.UnmarshalText([]byte("owner")))

	assert.True(t, criteria.ParamDecl{Role: criteria.RoleEntities}.EntityInstance())
}

func TestParamString(t *testing.T) {
	assert.Equal(t, "?2", criteria.Arg(2, "x", 0).String())
	assert.Equal(t, ":name", criteria.Named("name", 0).String())
	assert.Equal(t, "next(?0.version)", (&criteria.Param{Index: 0, Property: "version", Auto: criteria.AutoIncrement}).String())
	assert.Equal(t, "now()", (&criteria.Param{Index: 0, Auto: criteria.AutoNow}).String())
}
