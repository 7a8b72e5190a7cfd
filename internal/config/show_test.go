package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEffective_RedactsSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Graph = GraphConfig{TenantID: "t", ClientID: "c", ClientSecret: "hunter2", BaseURL: defaultGraphBaseURL}

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(cfg, "/tmp/config.toml", &buf))

	out := buf.String()
	assert.Contains(t, out, "/tmp/config.toml")
	assert.Contains(t, out, "[limits]")
	assert.Contains(t, out, `client_secret = "(set)"`)
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "disabled (no bucket)")
}

func TestRenderStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderStatus(DefaultConfig(), &buf))
	assert.Contains(t, buf.String(), "direct download rewrite")
	assert.Contains(t, buf.String(), EnvClientSecret)

	cfg := DefaultConfig()
	cfg.Graph = GraphConfig{TenantID: "contoso", ClientID: "c", ClientSecret: "s"}

	buf.Reset()
	require.NoError(t, RenderStatus(cfg, &buf))
	assert.Contains(t, buf.String(), "sharing API (tenant contoso)")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderEffective_WriteError(t *testing.T) {
	err := RenderEffective(DefaultConfig(), "x", failingWriter{})
	assert.EqualError(t, err, "disk full")
}
