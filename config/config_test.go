package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shvgo/shv"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "shv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, "server: localhost:3755\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:3755", cfg.Server)
	assert.Equal(t, "sha1", cfg.LoginType)
	assert.Equal(t, "chainpack", cfg.Protocol)
}

func TestLoadRequiresServer(t *testing.T) {
	path := writeTempConfig(t, "user: alice\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, "server: localhost:3755\nlogin_type: plain\nprotocol: cpon\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "plain", cfg.LoginType)
	assert.Equal(t, "cpon", cfg.Protocol)
}

func TestDumpRedactsPassword(t *testing.T) {
	cfg := &Config{Server: "localhost:3755", Password: "secret"}
	out, err := cfg.Dump()
	require.NoError(t, err)
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "********")
}

func TestConfigClientOption(t *testing.T) {
	cfg := &Config{
		Server:    "localhost:3755",
		User:      "alice",
		Password:  "secret",
		LoginType: "plain",
		Protocol:  "cpon",
	}
	opt, err := cfg.ClientOption()
	require.NoError(t, err)
	require.NotNil(t, opt)

	client := shv.NewClient(opt, nil)
	assert.Equal(t, shv.StateClosed, client.State())
}
