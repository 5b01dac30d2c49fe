package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersions(t *testing.T) {
	got, err := parseVersions([]string{"python=3.11, 3.12", "node=20", "python=3.13"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"python": {"3.13"},
		"node":   {"20"},
	}, got)

	got, err = parseVersions(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseVersions([]string{"=3.12"})
	assert.Error(t, err)
}
