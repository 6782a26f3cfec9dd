package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Name
	}{
		{raw: "subject", want: Name{Base: "subject", Kind: KindScalar}},
		{raw: "tag[]", want: Name{Base: "tag", Kind: KindSequence}},
		{raw: "opt{x}", want: Name{Base: "opt", Kind: KindMapping, Key: "x"}},
		{raw: "opt{}", want: Name{Base: "opt", Kind: KindMapping, Key: ""}},
		{raw: "[]", want: Name{Base: "[]", Kind: KindScalar}},
		{raw: "{x}", want: Name{Base: "{x}", Kind: KindScalar}},
		{raw: "odd}", want: Name{Base: "odd}", Kind: KindScalar}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseName(tt.raw))
		})
	}
}

func TestValue_Serialize(t *testing.T) {
	t.Parallel()

	scalar, err := Scalar("v").Serialize()
	require.NoError(t, err)
	assert.Equal(t, "v", scalar)

	sequence, err := Sequence("a", "b").Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, sequence)

	mapping, err := Mapping(map[string]string{"x": "1", "y": "2"}).Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":"1","y":"2"}`, mapping)

	empty, err := Value{Kind: KindSequence}.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}

func TestValue_Empty(t *testing.T) {
	t.Parallel()

	assert.True(t, Scalar("").Empty())
	assert.True(t, Value{Kind: KindSequence}.Empty())
	assert.True(t, Value{Kind: KindMapping}.Empty())
	assert.False(t, Sequence("a").Empty())
	assert.Equal(t, "mapping", KindMapping.String())
}

func TestPairs(t *testing.T) {
	t.Parallel()

	pairs := Pairs{{Name: "a", Value: "1"}, {Name: "a", Value: "2"}, {Name: "b", Value: ""}}

	assert.Equal(t, "1", pairs.Get("a"))
	assert.True(t, pairs.Has("a"))
	assert.False(t, pairs.Has("b"))
	assert.False(t, pairs.Has("c"))
	assert.Equal(t, map[string]string{"a": "1", "b": ""}, pairs.Map())
	assert.Len(t, FromMap(map[string]string{"x": "y"}), 1)
}
