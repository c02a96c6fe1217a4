package edge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/derive/schema/edge"
)

func TestBuilders(t *testing.T) {
	tests := []struct {
		name string
		e    edge.Edge
		kind edge.Kind
	}{
		{"to_many_owning", edge.To("tags", "Tag").Through("book_tag"), edge.ToManyOwning},
		{"to_one_owning", edge.To("author", "Author").Unique(), edge.ToOneOwning},
		{"to_many_inverse", edge.From("books", "Book").Ref("author"), edge.ToManyInverse},
		{"to_one_inverse", edge.From("passport", "Passport").Ref("owner").Unique(), edge.ToOneInverse},
		{"embedded", edge.Embed("address", "Address"), edge.Embedded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.e.Descriptor()
			require.NoError(t, d.Err)
			assert.Equal(t, tt.kind, d.Kind)
		})
	}
}

func TestBuilderErrors(t *testing.T) {
	assert.Error(t, edge.To("", "Author").Descriptor().Err)
	assert.Error(t, edge.To("author", "").Descriptor().Err)
	assert.Error(t, edge.From("books", "Book").Descriptor().Err)
}

func TestDescriptorFields(t *testing.T) {
	d := edge.To("author", "Author").Unique().Field("writer_id").Optional().Comment("c").Descriptor()
	assert.Equal(t, "writer_id", d.ForeignKey)
	assert.True(t, d.Optional)
	assert.Equal(t, "Author", d.Target)
}

func TestKind(t *testing.T) {
	assert.True(t, edge.ToOneOwning.ToOne())
	assert.True(t, edge.ToManyInverse.ToMany())
	assert.True(t, edge.ToOneInverse.Inverse())
	assert.False(t, edge.Embedded.ToOne())
	assert.Equal(t, "embedded", edge.Embedded.String())

	k, err := edge.ParseKind("to_one")
	require.NoError(t, err)
	assert.Equal(t, edge.ToOneOwning, k)
	_, err = edge.ParseKind("sideways")
	assert.Error(t, err)
}
