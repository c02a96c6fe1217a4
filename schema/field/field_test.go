package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/syssam/derive/schema/field"
)

func TestBuilders(t *testing.T) {
	tests := []struct {
		name string
		f    field.Field
		want field.Type
	}{
		{"string", field.String("title"), field.TypeString},
		{"int", field.Int("pages"), field.TypeInt},
		{"int64", field.Int64("id"), field.TypeInt64},
		{"float", field.Float("price"), field.TypeFloat},
		{"bool", field.Bool("isOdd"), field.TypeBool},
		{"time", field.Time("createdAt"), field.TypeTime},
		{"uuid", field.UUID("id"), field.TypeUUID},
		{"bytes", field.Bytes("cover"), field.TypeBytes},
		{"json", field.JSON("attributes"), field.TypeJSON},
		{"strings", field.Strings("tags"), field.TypeStrings},
		{"enum", field.Enum("status").Values("a", "b"), field.TypeEnum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.f.Descriptor()
			require.NoError(t, d.Err)
			assert.Equal(t, tt.want, d.Type)
		})
	}
}

func TestBuilderFlags(t *testing.T) {
	t.Run("id", func(t *testing.T) {
		d := field.Int64("id").ID().Generated().Descriptor()
		assert.True(t, d.ID)
		assert.True(t, d.Immutable)
		assert.True(t, d.Generated)
	})

	t.Run("update_default_implies_auto_populated", func(t *testing.T) {
		d := field.Time("updatedAt").UpdateDefault().Descriptor()
		assert.True(t, d.AutoPopulated)
		assert.True(t, d.UpdateDefault)
	})

	t.Run("optional_and_storage_key", func(t *testing.T) {
		d := field.String("isbn").Optional().StorageKey("ISBN").Comment("c").Descriptor()
		assert.True(t, d.Nillable)
		assert.Equal(t, "ISBN", d.StorageKey)
		assert.Equal(t, "c", d.Comment)
	})

	t.Run("version_and_partition_key", func(t *testing.T) {
		assert.True(t, field.Int64("version").Version().Descriptor().Version)
		assert.True(t, field.String("category").PartitionKey().Descriptor().PartitionKey)
	})
}

func TestBuilderErrors(t *testing.T) {
	assert.Error(t, field.String("").Descriptor().Err)
	assert.Error(t, field.Enum("status").Descriptor().Err)
	assert.Error(t, field.Of("x", field.TypeInvalid).Descriptor().Err)
	assert.NoError(t, field.Of("x", field.TypeInt).Descriptor().Err)
}

func TestType(t *testing.T) {
	assert.True(t, field.TypeInt.Numeric())
	assert.True(t, field.TypeUUID.Textual())
	assert.True(t, field.TypeTime.Temporal())
	assert.True(t, field.TypeStrings.Collection())
	assert.False(t, field.TypeInvalid.Valid())
	assert.Equal(t, "int64", field.TypeInt64.String())

	assert.True(t, field.TypeInt.ComparableWith(field.TypeFloat))
	assert.True(t, field.TypeString.ComparableWith(field.TypeEnum))
	assert.True(t, field.TypeBool.ComparableWith(field.TypeInvalid))
	assert.False(t, field.TypeBool.ComparableWith(field.TypeString))
	assert.False(t, field.TypeTime.ComparableWith(field.TypeInt))
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]field.Type{
		"string":    field.TypeString,
		"Integer":   field.TypeInt,
		"long":      field.TypeInt64,
		"double":    field.TypeFloat,
		"boolean":   field.TypeBool,
		"timestamp": field.TypeTime,
		"":          field.TypeInvalid,
	} {
		got, err := field.ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := field.ParseType("decimal")
	assert.Error(t, err)
}

func TestTypeYAML(t *testing.T) {
	var v struct {
		Type field.Type `yaml:"type"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("type: int64\n"), &v))
	assert.Equal(t, field.TypeInt64, v.Type)
	assert.Error(t, yaml.Unmarshal([]byte("type: decimal\n"), &v))
}
