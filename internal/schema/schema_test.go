package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qfilter/internal/value"
)

func TestValidName(t *testing.T) {
	for _, name := range []string{"id", "_x", "camelCase", "snake_case_2", "A"} {
		assert.True(t, ValidName(name), name)
	}
	for _, name := range []string{"", "1abc", "a-b", "a.b", "a b", "ä", "0:id"} {
		assert.False(t, ValidName(name), name)
	}
}

func TestIsAllowed_Undefined(t *testing.T) {
	s := New("user")

	assert.True(t, s.IsAllowed("name"))
	assert.False(t, s.IsAllowed("1name"))
	assert.False(t, s.IsAllowed("profile.age"), "relation-qualified paths need an allow-list")
}

func TestIsAllowed_AllowList(t *testing.T) {
	s := New("user", WithAllowed("id", "name", "profile.age"))

	assert.True(t, s.IsAllowed("id"))
	assert.True(t, s.IsAllowed("profile.age"))
	assert.False(t, s.IsAllowed("email"))
}

func TestIsAllowed_DefaultsImplicitlyAllowed(t *testing.T) {
	s := New("user", WithDefaults(map[string]any{"age": "<18"}))

	assert.True(t, s.IsAllowed("age"))
	assert.False(t, s.IsAllowed("name"), "defined defaults disable the syntactic fallback")

	s = New("user", WithAllowed("id"), WithDefaults(map[string]any{"age": "<18"}))
	assert.True(t, s.IsAllowed("id"))
	assert.True(t, s.IsAllowed("age"))
}

func TestIsAllowed_Closed(t *testing.T) {
	s := New("user", WithAllowed(), WithDefaults(map[string]any{"age": "<18"}))

	assert.True(t, s.Closed())
	assert.False(t, s.IsAllowed("age"))
	assert.False(t, s.IsAllowed("id"))

	allowed, defined := s.Allowed()
	assert.True(t, defined)
	assert.Empty(t, allowed)
}

func TestAllowed_Undefined(t *testing.T) {
	allowed, defined := New("user").Allowed()
	assert.False(t, defined)
	assert.Nil(t, allowed)
	assert.False(t, New("user").Closed())
}

func TestMap(t *testing.T) {
	s := New("user", WithMapping(map[string]string{"uid": "id"}))
	assert.Equal(t, "id", s.Map("uid"))
	assert.Equal(t, "name", s.Map("name"))
}

func TestDefaultValues_Sorted(t *testing.T) {
	s := New("user", WithDefaults(map[string]any{"b": 1, "a": "x"}))
	values, keys, ok := s.DefaultValues()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, 1, values["b"])

	_, _, ok = New("user").DefaultValues()
	assert.False(t, ok)
}

func TestValid(t *testing.T) {
	s := New("user", WithValidator(func(path string, v value.Value) bool {
		n, ok := v.(value.Int)
		return path != "age" || (ok && n >= 0)
	}))
	assert.True(t, s.Valid("age", value.Int(3)))
	assert.False(t, s.Valid("age", value.Int(-1)))
	assert.True(t, s.Valid("name", value.String("x")))
	assert.True(t, New("user").Valid("age", value.Int(-1)))
}

func TestQualifiedAllowed(t *testing.T) {
	s := New("user", WithAllowed("id", "profile.age", "profile.city", "profile.address.zip", "items.sku"))

	paths, ok := s.QualifiedAllowed("profile")
	require.True(t, ok)
	assert.Equal(t, []string{"age", "city", "address.zip"}, paths)

	_, ok = s.QualifiedAllowed("roles")
	assert.False(t, ok)
}

func TestNarrow_DoesNotMutateOriginal(t *testing.T) {
	original := New("profile", WithAllowed("age", "city", "zip"))
	narrowed := original.Narrow([]string{"age"})

	assert.True(t, narrowed.IsAllowed("age"))
	assert.False(t, narrowed.IsAllowed("city"))

	allowed, _ := original.Allowed()
	assert.Equal(t, []string{"age", "city", "zip"}, allowed)
	assert.True(t, original.IsAllowed("city"))
}

func TestOptions_Flags(t *testing.T) {
	s := New("user", WithStrict(), WithDefaultByElement())
	assert.True(t, s.Strict())
	assert.True(t, s.DefaultByElement())
	assert.Equal(t, "user", s.Name())

	plain := New("user")
	assert.False(t, plain.Strict())
	assert.False(t, plain.DefaultByElement())
}
