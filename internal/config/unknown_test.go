package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnknownSection(t *testing.T) {
	path := writeTestConfig(t, "[limit]\nlink_ceiling = \"1GB\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "limit"`)
	assert.Contains(t, err.Error(), `did you mean "limits"`)
}

func TestLoad_UnknownKey_InSection(t *testing.T) {
	path := writeTestConfig(t, "[limits]\nlink_cieling = \"1GB\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limits.link_cieling")
	assert.Contains(t, err.Error(), "limits.link_ceiling")
}

func TestLoad_UnknownKey_TopLevel(t *testing.T) {
	path := writeTestConfig(t, "verbose = true\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestLoad_UnknownKey_NoSuggestion(t *testing.T) {
	path := writeTestConfig(t, "[graph]\ncompletely_unrelated_key = true\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"limit", "limits", 1},
		{"link_cieling", "link_ceiling", 2},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, levenshtein(tt.a, tt.b))
		})
	}
}

func TestClosestMatch(t *testing.T) {
	assert.Equal(t, "bucket", closestMatch("buckt", knownKeys["storage"]))
	assert.Equal(t, "server", closestMatch("sever", knownSections))
	assert.Equal(t, "", closestMatch("completely_unrelated", knownSections))
}
