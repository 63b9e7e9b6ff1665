package jsonb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Value{
		Null(),
		Bool(true),
		Bool(false),
		Int64(-42),
		Uint64(42),
		Float64(3.25),
		String("hello"),
		Array([]Value{Int64(1), String("two"), Null()}),
		Object([]Field{
			{Key: "a", Value: Int64(1)},
			{Key: "b", Value: Object([]Field{{Key: "c", Value: Bool(true)}})},
		}),
	}
	for _, v := range cases {
		encoded := Encode(v)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.True(t, Equal(v, decoded), "round trip mismatch for %#v", v)
	}
}

func TestEqualNumericCrossKind(t *testing.T) {
	assert.True(t, Equal(Int64(5), Float64(5.0)))
	assert.True(t, Equal(Uint64(5), Int64(5)))
	assert.False(t, Equal(Int64(5), String("5")))
}

func TestFromJSONToJSON(t *testing.T) {
	v, err := FromJSON([]byte(`{"a":1,"b":[1,2.5,"x",null,true]}`))
	require.NoError(t, err)
	a, ok := v.Get("a")
	require.True(t, ok)
	assert.Equal(t, KindInt64, a.Kind())

	out, err := ToJSON(v)
	require.NoError(t, err)
	v2, err := FromJSON(out)
	require.NoError(t, err)
	assert.True(t, Equal(v, v2))
}

func TestFromJSONToJSONPreservesFieldOrder(t *testing.T) {
	v, err := FromJSON([]byte(`{"z":1,"a":2,"m":3}`))
	require.NoError(t, err)

	fields := v.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, []string{"z", "a", "m"}, []string{fields[0].Key, fields[1].Key, fields[2].Key})

	out, err := ToJSON(v)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2,"m":3}`, string(out))

	v2, err := FromJSON(out)
	require.NoError(t, err)
	fields2 := v2.Fields()
	require.Len(t, fields2, 3)
	assert.Equal(t, []string{"z", "a", "m"}, []string{fields2[0].Key, fields2[1].Key, fields2[2].Key})
}

func TestDecodeTruncated(t *testing.T) {
	_, err := Decode([]byte{byte(KindInt64), 1, 2})
	assert.Error(t, err)
}
