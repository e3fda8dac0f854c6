package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const connectionsConfig = `
[connections.prod]
server_url = "https://tableau.example.com/"
site = "analytics"
token_name = "ci"
token_secret = "s3cret"

[connections.staging]
server_url = "https://staging.example.com"
token_name = "ci"
token_secret_env = "STAGING_TOKEN"
`

func resolveConnections(t *testing.T) *Resolved {
	t.Helper()

	resolved, err := Resolve(EnvOverrides{ConfigPath: writeConfig(t, connectionsConfig)}, CLIOverrides{})
	require.NoError(t, err)

	return resolved
}

func TestDescriptor_NamedConnection(t *testing.T) {
	resolved := resolveConnections(t)

	d, err := resolved.Descriptor("prod")
	require.NoError(t, err)
	assert.Equal(t, "https://tableau.example.com", d.ServerURL, "trailing slash trimmed")
	assert.Equal(t, "analytics", d.Site)
	assert.Equal(t, "ci", d.TokenName)
	assert.Equal(t, "s3cret", d.TokenSecret)
}

func TestDescriptor_SecretFromEnv(t *testing.T) {
	resolved := resolveConnections(t)

	t.Setenv("STAGING_TOKEN", "env-secret")

	d, err := resolved.Descriptor("staging")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", d.TokenSecret)
}

func TestDescriptor_EmptySecretEnv(t *testing.T) {
	resolved := resolveConnections(t)

	t.Setenv("STAGING_TOKEN", "")

	_, err := resolved.Descriptor("staging")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STAGING_TOKEN")
}

func TestDescriptor_RawURI(t *testing.T) {
	resolved := resolveConnections(t)

	d, err := resolved.Descriptor("tableau://direct.example.com?site_id=s&token_name=n&token_secret=x")
	require.NoError(t, err)
	assert.Equal(t, "https://direct.example.com", d.ServerURL)
}

func TestDescriptor_Unknown(t *testing.T) {
	resolved := resolveConnections(t)

	_, err := resolved.Descriptor("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)

	_, err = resolved.Descriptor("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no connection given")
}

func TestConnectionSummaries_Redacted(t *testing.T) {
	resolved := resolveConnections(t)

	summaries := resolved.ConnectionSummaries()
	require.Len(t, summaries, 2)

	assert.Equal(t, "prod", summaries[0].Name)
	assert.Equal(t, "***", summaries[0].Secret)
	assert.Equal(t, "staging", summaries[1].Name)
	assert.Equal(t, "env:STAGING_TOKEN", summaries[1].Secret)
}
