package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCUE(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadErrorCode(t *testing.T, err error) string {
	t.Helper()
	var le *LoadError
	require.True(t, errors.As(err, &le), "expected *LoadError, got %T", err)
	return le.Code
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "user.cue", `
		schema: user: {
			allowed: ["id", "name", "profile.city"]
			relations: { profile: "user_profile" }
		}
	`)
	writeCUE(t, dir, "nested/profile.cue", `
		schema: user_profile: {
			relations: { owner: "user" }
		}
	`)

	result, errs := LoadDir(dir, LoadModeCollectAll)
	require.Empty(t, errs)

	assert.Equal(t, 2, result.FileCount)
	assert.Equal(t, []string{"user", "user_profile"}, result.Registry.Names())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, []string{"user", "user_profile", "user"}, result.Warnings[0].Path)
}

func TestLoadFilesUnifiesDeclarations(t *testing.T) {
	dir := t.TempDir()
	a := writeCUE(t, dir, "a.cue", `schema: user: allowed: ["id"]`)
	b := writeCUE(t, dir, "b.cue", `schema: user: strict: true`)

	result, errs := LoadFiles([]string{a, b}, LoadModeFailFast)
	require.Empty(t, errs)

	s, ok := result.Registry.Get("user")
	require.True(t, ok)
	assert.True(t, s.Strict())
	allowed, _ := s.Allowed()
	assert.Equal(t, []string{"id"}, allowed)
}

func TestLoadDirErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, errs := LoadDir(filepath.Join(t.TempDir(), "nope"), LoadModeCollectAll)
		require.Len(t, errs, 1)
		assert.Equal(t, ErrCodeNotFound, loadErrorCode(t, errs[0]))
	})

	t.Run("no files", func(t *testing.T) {
		_, errs := LoadDir(t.TempDir(), LoadModeCollectAll)
		require.Len(t, errs, 1)
		assert.Equal(t, ErrCodeNoFiles, loadErrorCode(t, errs[0]))
	})

	t.Run("syntax error", func(t *testing.T) {
		dir := t.TempDir()
		writeCUE(t, dir, "bad.cue", `schema: user: {`)
		_, errs := LoadDir(dir, LoadModeCollectAll)
		require.Len(t, errs, 1)
		assert.Equal(t, ErrCodeLoadFailed, loadErrorCode(t, errs[0]))
	})

	t.Run("conflicting files", func(t *testing.T) {
		dir := t.TempDir()
		writeCUE(t, dir, "a.cue", `schema: user: strict: true`)
		writeCUE(t, dir, "b.cue", `schema: user: strict: false`)
		_, errs := LoadDir(dir, LoadModeCollectAll)
		require.Len(t, errs, 1)
		assert.Equal(t, ErrCodeBuildFailed, loadErrorCode(t, errs[0]))
	})

	t.Run("no schemas", func(t *testing.T) {
		dir := t.TempDir()
		writeCUE(t, dir, "other.cue", `settings: debug: true`)
		_, errs := LoadDir(dir, LoadModeCollectAll)
		require.Len(t, errs, 1)
		assert.Equal(t, ErrCodeNoSchemas, loadErrorCode(t, errs[0]))
	})
}

func TestLoadDirCollectsAll(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "schemas.cue", `
		schema: a: { allowed: "id" }
		schema: b: { relations: { c: "missing" } }
		schema: c: { default: { "x:": "1" } }
	`)

	result, errs := LoadDir(dir, LoadModeCollectAll)
	require.Len(t, errs, 3)
	assert.Equal(t, ErrCodeCompile, loadErrorCode(t, errs[0]))

	var verr ValidationError
	require.True(t, errors.As(errs[1], &verr))
	assert.Equal(t, ErrRelationUnresolved, verr.Code)
	require.True(t, errors.As(errs[2], &verr))
	assert.Equal(t, ErrDefaultInvalid, verr.Code)

	assert.Equal(t, []string{"b", "c"}, result.Registry.Names())

	_, errs = LoadDir(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}
