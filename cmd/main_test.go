package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	cmd := newRootCmd()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["probe"])
	assert.True(t, names["devices"])
}

func TestRejectsUnknownHost(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"probe", "--host", "carrier-pigeon", "--config", filepath.Join(t.TempDir(), "none.env")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}
