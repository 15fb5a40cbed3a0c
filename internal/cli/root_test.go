package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "qfilter", cmd.Use)
	assert.Contains(t, cmd.Long, "CUE schemas")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"parse", "sql", "encode", "validate", "test", "serve"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestParseCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	parseCmd, _, err := cmd.Find([]string{"parse"})
	require.NoError(t, err)

	schemasFlag := parseCmd.Flags().Lookup("schemas")
	require.NotNil(t, schemasFlag)
	assert.Equal(t, "schemas", schemasFlag.DefValue)

	depthFlag := parseCmd.Flags().Lookup("max-depth")
	require.NotNil(t, depthFlag)
	assert.Equal(t, "8", depthFlag.DefValue)

	assert.Nil(t, parseCmd.Flags().Lookup("table"), "--table belongs to sql only")
}

func TestSQLCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sqlCmd, _, err := cmd.Find([]string{"sql"})
	require.NoError(t, err)

	tableFlag := sqlCmd.Flags().Lookup("table")
	require.NotNil(t, tableFlag)
	assert.Equal(t, "", tableFlag.DefValue)
	assert.NotNil(t, sqlCmd.Flags().Lookup("include"))
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	for _, name := range []string{"config", "addr", "schemas", "db"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, ".", serveCmd.Flags().Lookup("config").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, nil, "--format", "xml", "validate", schemasDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
