package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "buildml", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"import"},
		{"trace", "encode"},
		{"trace", "dump"},
		{"scan-tree"},
		{"show", "files"},
		{"show", "actions"},
		{"report", "derived"},
		{"report", "inputs"},
		{"report", "accessors"},
		{"report", "accessed-by"},
		{"report", "never-accessed"},
		{"report", "write-only"},
		{"report", "most-accessed"},
		{"sessions"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "0", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("db"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestSelectorFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{{"show", "files"}, {"report", "derived"}, {"report", "inputs"}, {"report", "accessors"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err)
		for _, flag := range []string{"pattern", "under", "component", "not-in", "components"} {
			assert.NotNil(t, sub.Flags().Lookup(flag), "%v --%s", path, flag)
		}
	}
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
