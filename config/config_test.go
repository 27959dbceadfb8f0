package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"prizepool/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.FileExists(t, filepath.Join(dir, "mint.keystore"))
	require.Equal(t, "127.0.0.1:8645", cfg.ListenAddress)

	key, err := crypto.LoadFromKeystore(cfg.MintKeystorePath, "")
	require.NoError(t, err)
	mint, err := cfg.MintAuthorityAddress()
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address(), mint)
	admin, err := cfg.AdminAddress()
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address(), admin)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.MintAuthority, reloaded.MintAuthority)
	require.Equal(t, cfg.Admin, reloaded.Admin)
}

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	admin := crypto.LabelAddress("admin")
	mint := crypto.LabelAddress("mint")
	contents := `ListenAddress = "0.0.0.0:9000"
DataDir = "/var/lib/prizepool"
Admin = "` + admin.String() + `"
MintAuthority = "` + mint.String() + `"

[rpc]
AuthToken = "secret"
RateLimitPerSecond = 2.5
RateLimitBurst = 4
TrustedProxies = ["10.0.0.1", "10.1.0.0/16"]

[logging]
File = "/var/log/prizepool.log"
MaxBackups = 7

[telemetry]
Endpoint = "otel:4318"
Traces = true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.ListenAddress)
	require.Equal(t, "secret", cfg.RPC.AuthToken)
	require.Equal(t, 2.5, cfg.RPC.RateLimitPerSecond)
	require.Equal(t, 4, cfg.RPC.RateLimitBurst)
	require.Equal(t, []string{"10.0.0.1", "10.1.0.0/16"}, cfg.RPC.TrustedProxies)
	require.False(t, cfg.RPC.TrustProxyHeaders)
	require.Equal(t, "/var/log/prizepool.log", cfg.Logging.File)
	require.Equal(t, 100, cfg.Logging.MaxSizeMB)
	require.True(t, cfg.Telemetry.Traces)

	got, err := cfg.AdminAddress()
	require.NoError(t, err)
	require.Equal(t, admin, got)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `MintAuthority = "` + crypto.LabelAddress("mint").String() + `"`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	t.Setenv(envRPCToken, "from-env")
	t.Setenv(envEnvironment, "prod")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.RPC.AuthToken)
	require.Equal(t, "prod", cfg.Environment)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "Bogus = 1\nMintAuthority = \"" + crypto.LabelAddress("mint").String() + "\"",
		"missing mint":   `ListenAddress = "127.0.0.1:1"`,
		"bad admin":      "Admin = \"nope\"\nMintAuthority = \"" + crypto.LabelAddress("mint").String() + "\"",
		"bad listen":     "ListenAddress = \"nohost\"\nMintAuthority = \"" + crypto.LabelAddress("mint").String() + "\"",
		"bad proxy":      "MintAuthority = \"" + crypto.LabelAddress("mint").String() + "\"\n[rpc]\nTrustedProxies = [\"proxy.local\"]",
		"bad proxy cidr": "MintAuthority = \"" + crypto.LabelAddress("mint").String() + "\"\n[rpc]\nTrustedProxies = [\"10.0.0.0/99\"]",
		"negative burst": "MintAuthority = \"" + crypto.LabelAddress("mint").String() + "\"\n[rpc]\nRateLimitBurst = -1",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
