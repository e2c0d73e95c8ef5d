package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayFlagDefaultsToGatewayPort(t *testing.T) {
	f := rootCmd.PersistentFlags().Lookup("gateway")
	require.NotNil(t, f)
	// 5000 is the advisor backend; the gateway listens on 5009
	assert.Equal(t, "http://localhost:5009", f.DefValue)
}

func TestSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["once"])
	assert.NotNil(t, runCmd.Flags().Lookup("interval"))
	assert.NotNil(t, runCmd.Flags().Lookup("count"))
}
