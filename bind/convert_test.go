package bind

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/derive/schema/field"
)

type stringerLabel string

func (l stringerLabel) String() string { return "stringerLabel:" + string(l) }

type color string

func TestConvert(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		t    field.Type
		in   any
		want any
	}{
		{name: "int_from_uint", t: field.TypeInt, in: uint8(7), want: int64(7)},
		{name: "int_from_whole_float", t: field.TypeInt64, in: 3.0, want: int64(3)},
		{name: "float_from_int", t: field.TypeFloat, in: 2, want: float64(2)},
		{name: "float_from_string", t: field.TypeFloat, in: "1.25", want: 1.25},
		{name: "bool_from_string", t: field.TypeBool, in: "true", want: true},
		{name: "string_from_stringer", t: field.TypeString, in: stringerLabel("x"), want: "stringerLabel:x"},
		{name: "enum_from_named_string", t: field.TypeEnum, in: color("red"), want: "red"},
		{name: "uuid_value", t: field.TypeUUID, in: id, want: id.String()},
		{name: "uuid_string", t: field.TypeUUID, in: "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", want: id.String()},
		{name: "time_value", t: field.TypeTime, in: ts, want: ts},
		{name: "time_string", t: field.TypeTime, in: "2024-01-02T03:04:05Z", want: ts},
		{name: "bytes_from_string", t: field.TypeBytes, in: "ab", want: []byte("ab")},
		{name: "json_struct", t: field.TypeJSON, in: struct{ A int }{1}, want: []byte(`{"A":1}`)},
		{name: "strings", t: field.TypeStrings, in: []any{"a", 1}, want: []string{"a", "1"}},
		{name: "nil_pointer", t: field.TypeString, in: (*string)(nil), want: nil},
		{name: "untyped", t: field.TypeInvalid, in: 1.5, want: 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convert(tt.t, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name string
		t    field.Type
		in   any
	}{
		{name: "fraction", t: field.TypeInt, in: 1.5},
		{name: "overflow", t: field.TypeInt64, in: uint64(1 << 63)},
		{name: "bad_number", t: field.TypeInt, in: "x"},
		{name: "bad_uuid", t: field.TypeUUID, in: "nope"},
		{name: "bad_time", t: field.TypeTime, in: "yesterday"},
		{name: "bool_from_int", t: field.TypeBool, in: 1},
		{name: "string_from_int", t: field.TypeString, in: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convert(tt.t, tt.in)
			assert.Error(t, err)
		})
	}
}

type address struct {
	City string `derive:"city"`
}

type person struct {
	Name    string
	Home    *address `derive:"address"`
	private int
}

func TestProperty(t *testing.T) {
	p := person{Name: "Ann", Home: &address{City: "Oslo"}, private: 1}

	v, err := Property(p, "name")
	require.NoError(t, err)
	assert.Equal(t, "Ann", v)

	v, err = Property(&p, "address.city")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", v)

	v, err = Property(person{}, "address.city")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = Property(p, "private")
	assert.Error(t, err)

	m := map[string]any{"Name": "Bob", "address": map[string]any{"city": "Rome"}}
	v, err = Property(m, "name")
	require.NoError(t, err)
	assert.Equal(t, "Bob", v)
	v, err = Property(m, "address.city")
	require.NoError(t, err)
	assert.Equal(t, "Rome", v)

	_, err = Property(m, "age")
	assert.Error(t, err)
	_, err = Property(map[int]any{1: 1}, "age")
	assert.Error(t, err)
	_, err = Property(42, "age")
	assert.Error(t, err)
}
