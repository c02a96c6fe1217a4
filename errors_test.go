package derive_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/derive"
)

func TestUnknownEntityError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := derive.NewUnknownEntityError("Book")
		assert.Equal(t, `derive: unknown entity "Book"`, err.Error())
	})

	t.Run("IsUnknownEntity", func(t *testing.T) {
		err := derive.NewUnknownEntityError("Book")
		assert.True(t, errors.Is(err, derive.ErrUnknownEntity))
		assert.True(t, derive.IsUnknownEntity(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, derive.IsUnknownEntity(derive.ErrUnknownEntity))
		assert.False(t, derive.IsUnknownEntity(errors.New("other error")))
		assert.False(t, derive.IsUnknownEntity(nil))
	})
}

func TestUnknownPropertyError(t *testing.T) {
	err := derive.NewUnknownPropertyError("Book", "author.nickname")
	assert.Equal(t, `derive: unknown property "author.nickname" on entity "Book"`, err.Error())
	assert.True(t, derive.IsUnknownProperty(fmt.Errorf("wrapper: %w", err)))
	assert.False(t, derive.IsUnknownEntity(err))
}

func TestMethodMatchError(t *testing.T) {
	t.Run("with_token", func(t *testing.T) {
		err := derive.NewMethodMatchError("findByNope", "Book", "Nope", "no such property")
		assert.Equal(t, `derive: cannot match method "findByNope" on entity "Book" at token "Nope": no such property`, err.Error())
		assert.True(t, derive.IsMethodMatch(err))
	})

	t.Run("without_token", func(t *testing.T) {
		err := derive.NewMethodMatchError("update", "Book", "", "no settable property")
		assert.Equal(t, `derive: cannot match method "update" on entity "Book": no settable property`, err.Error())
	})
}

func TestQueryParseError(t *testing.T) {
	t.Run("pointer_at_end_of_line", func(t *testing.T) {
		err := derive.NewQueryParseError("WHERE (", 1, 8, "<EOF>", "unexpected end of input")
		assert.Equal(t, "WHERE (*", err.Pointer())
		assert.Equal(t, "derive: at 1:8 and token '<EOF>', unexpected end of input\nWHERE (*", err.Error())
	})

	t.Run("pointer_on_second_line", func(t *testing.T) {
		err := derive.NewQueryParseError("WHERE a = 1\nAND b ==", 2, 8, "=", "unexpected token")
		assert.Equal(t, "AND b =*=", err.Pointer())
	})

	t.Run("column_clamped", func(t *testing.T) {
		err := derive.NewQueryParseError("x", 1, 10, "<EOF>", "m")
		assert.Equal(t, "x*", err.Pointer())
	})

	t.Run("IsQueryParse", func(t *testing.T) {
		var err error = derive.NewQueryParseError("x", 1, 1, "x", "m")
		assert.True(t, derive.IsQueryParse(fmt.Errorf("wrapper: %w", err)))
		var qe *derive.QueryParseError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, 1, qe.Line)
	})
}

func TestUnsupportedRawMutationError(t *testing.T) {
	err := derive.NewUnsupportedRawMutationError("cosmos", "update")
	assert.Equal(t, "derive: dialect cosmos does not support raw update queries", err.Error())
	assert.True(t, derive.IsUnsupportedRawMutation(err))
}

func TestParameterResolutionError(t *testing.T) {
	cause := errors.New("missing value")
	err := derive.NewParameterResolutionError("title", cause)
	assert.Equal(t, "derive: cannot resolve parameter title: missing value", err.Error())
	assert.True(t, derive.IsParameterResolution(err))
	assert.ErrorIs(t, err, cause)
}

func TestCriteriaError(t *testing.T) {
	err := derive.NewCriteriaError("Book", "update without assignments")
	assert.Equal(t, "derive: invalid criteria for Book: update without assignments", err.Error())
	assert.True(t, derive.IsInvalidCriteria(err))
	assert.False(t, derive.IsMethodMatch(err))
}
