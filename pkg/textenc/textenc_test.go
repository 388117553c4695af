package textenc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEmptyTextIsAbsent(t *testing.T) {
	enc := New(42)
	vec, absent := enc.Encode("   \n\t  ")
	assert.True(t, absent)
	for _, v := range vec {
		assert.Equal(t, 0.0, v)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	enc := New(42)
	v1, absent1 := enc.Encode("GitPulse tracks repository health over time")
	v2, absent2 := enc.Encode("GitPulse tracks repository health over time")
	require.Equal(t, absent1, absent2)
	assert.Equal(t, v1, v2)
}

func TestEncodeDiffersByConstruction(t *testing.T) {
	enc := New(42)
	other := New(7)
	v1, _ := enc.Encode("hello world")
	v2, _ := other.Encode("hello world")
	assert.NotEqual(t, v1, v2)
}

func TestCacheRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "embeddings")
	cache, err := NewCache(dir)
	require.NoError(t, err)

	enc := New(1)
	v1, absent1, err := EncodeCached(enc, cache, "acme/widgets", "v1", "some text")
	require.NoError(t, err)

	v2, absent2, ok := cache.Get("acme/widgets", "v1", "some text")
	require.True(t, ok)
	assert.Equal(t, absent1, absent2)
	assert.Equal(t, v1, v2)
}
