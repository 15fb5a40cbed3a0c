package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_Success(t *testing.T) {
	tests := []struct {
		name   string
		format string
		data   interface{}
		check  func(t *testing.T, out string)
	}{
		{
			name:   "text prints the value",
			format: "text",
			data:   "and(eq(id, 1))",
			check: func(t *testing.T, out string) {
				assert.Equal(t, "and(eq(id, 1))\n", out)
			},
		},
		{
			name:   "json wraps the value",
			format: "json",
			data:   map[string]int{"count": 42},
			check: func(t *testing.T, out string) {
				var resp CLIResponse
				require.NoError(t, json.Unmarshal([]byte(out), &resp))
				assert.Equal(t, "ok", resp.Status)
				assert.Equal(t, map[string]any{"count": float64(42)}, resp.Data)
				assert.Nil(t, resp.Error)
				assert.Equal(t, "trace-1", resp.TraceID)
			},
		},
		{
			name:   "json keeps SQL operators unescaped",
			format: "json",
			data:   map[string]string{"sql": `"age" < ? AND "name" <> ?`},
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `\"age\" < ? AND \"name\" <> ?`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: tt.format, Writer: buf, TraceID: "trace-1"}
			require.NoError(t, formatter.Success(tt.data))
			tt.check(t, buf.String())
		})
	}
}

func TestOutputFormatter_Error(t *testing.T) {
	details := map[string]string{"key": "0:secret"}

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, formatter.Error("KEY_NOT_ALLOWED", "secret: key is not allowed", details))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "KEY_NOT_ALLOWED", resp.Error.Code)
		assert.Equal(t, "secret: key is not allowed", resp.Error.Message)
		assert.NotNil(t, resp.Error.Details)
	})

	t.Run("text hides details unless verbose", func(t *testing.T) {
		for _, verbose := range []bool{false, true} {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: verbose}
			require.NoError(t, formatter.Error("E104", "targets unknown schema", details))

			assert.Contains(t, buf.String(), "Error [E104]: targets unknown schema")
			if verbose {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		}
	})
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail(ExitFailure, "KEY_NOT_ALLOWED", "name: key is not allowed", nil)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "KEY_NOT_ALLOWED: name: key is not allowed", err.Error())
	assert.Contains(t, buf.String(), "Error [KEY_NOT_ALLOWED]")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		errOut   bool
		wantOut  string
		wantDiag string
	}{
		{"disabled", false, true, "", ""},
		{"falls back to writer", true, false, "Loaded 3 schema(s)\n", ""},
		{"prefers err writer", true, true, "", "Loaded 3 schema(s)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, diag := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, Verbose: tt.verbose}
			if tt.errOut {
				formatter.ErrWriter = diag
			}

			formatter.VerboseLog("Loaded %d schema(s)", 3)
			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, tt.wantDiag, diag.String())
		})
	}
}

func TestGetExitCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "open", errors.New("denied")))

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("plain"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "missing dir"), ExitCommandError},
		{"wrapped exit error", wrapped, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
	assert.Equal(t, "outer: open: denied", wrapped.Error())
}
