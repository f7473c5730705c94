package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDetails_RejectsMalformedID(t *testing.T) {
	out, err := run(t, "details", "bridge/9")

	require.NoError(t, err)
	assert.Equal(t, "Place id must be in the form 'node/123', 'way/456', or 'relation/789'.\n", out)
}

func TestNearby_ArgumentErrors(t *testing.T) {
	_, err := run(t, "nearby", "north", "29.0", "cafe")
	assert.ErrorContains(t, err, "latitude")

	_, err = run(t, "nearby", "41.0", "29.0")
	assert.Error(t, err)
}

func TestSubcommands(t *testing.T) {
	var names []string
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"resolve", "text-search", "nearby", "geocode", "details"}, names)
}
