// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_VersionFlag(t *testing.T) {
	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--version"})

	err := rootCmd.ExecuteContext(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), Version)
}

func TestRootCmd_Help(t *testing.T) {
	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--help"})

	err := rootCmd.ExecuteContext(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "sweep")
	assert.Contains(t, out.String(), "watch")
	assert.Contains(t, out.String(), "--dry-run")
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"detonate"})

	err := rootCmd.ExecuteContext(context.Background())
	assert.Error(t, err)
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	rootCmd := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["sweep"], "sweep command should be registered")
	assert.True(t, names["watch"], "watch command should be registered")
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	rootCmd := NewRootCommand()

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("dry-run"))
}

func TestWatchCmd_IntervalFlag(t *testing.T) {
	rootCmd := NewRootCommand()

	watchCmd, _, err := rootCmd.Find([]string{"watch"})
	require.NoError(t, err)
	assert.NotNil(t, watchCmd.Flags().Lookup("interval"))
}

func TestNewRootCommand_FreshInstances(t *testing.T) {
	// Each call builds an independent command tree; flag state never leaks.
	first := NewRootCommand()
	second := NewRootCommand()
	assert.NotSame(t, first, second)

	require.NoError(t, first.PersistentFlags().Set("dry-run", "true"))
	changed, err := second.PersistentFlags().GetBool("dry-run")
	require.NoError(t, err)
	assert.False(t, changed)
}
