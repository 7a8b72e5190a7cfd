package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize_ValidInputs(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"0", 0},
		{"", 0},
		{"1024", 1024},
		{"1KB", 1000},
		{"1KiB", 1024},
		{"10MB", 10_000_000},
		{"10MiB", 10_485_760},
		{"1GB", 1_000_000_000},
		{"1GiB", 1_073_741_824},
		{"50GB", 50_000_000_000},
		{"1TB", 1_000_000_000_000},
		{"100B", 100},
		{"25 MiB", 26_214_400},
		{"1.5KiB", 1536},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseSize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseSize_InvalidInputs(t *testing.T) {
	for _, input := range []string{"abc", "MB", "-1", "10 parsecs"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseSize(input)
			assert.Error(t, err)
		})
	}
}

func TestParseSize_NegativeWithSuffix(t *testing.T) {
	// Negative sizes with suffixes must be rejected, matching the bare-number
	// path that already rejects negative values.
	tests := []string{"-5MB", "-1GiB", "-100KB"}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseSize(input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "must be non-negative")
		})
	}
}

func TestParseSize_DefaultCeilings(t *testing.T) {
	att, err := ParseSize(defaultAttachmentCeiling)
	require.NoError(t, err)
	assert.Equal(t, int64(25*1024*1024), att)

	link, err := ParseSize(defaultLinkCeiling)
	require.NoError(t, err)
	assert.Equal(t, int64(500*1024*1024), link)
}

func TestParseBandwidth(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"", 0},
		{"0", 0},
		{"5MB/s", 5_000_000},
		{"100KiB/s", 102_400},
		{"2MiB", 2_097_152},
		{"512/S", 512},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBandwidth(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ParseBandwidth("fast/s")
	require.Error(t, err)

	n := NetworkConfig{BandwidthLimit: "1MB/s"}
	assert.Equal(t, int64(1_000_000), n.BandwidthBytes())
}
