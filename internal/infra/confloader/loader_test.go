package confloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	HTTP struct {
		Address    string `koanf:"address"`
		TrustProxy bool   `koanf:"trust_proxy"`
	} `koanf:"http"`
	Hash struct {
		Algorithm  string `koanf:"algorithm"`
		Iterations int    `koanf:"iterations"`
	} `koanf:"hash"`
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "websec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewLoader_Options(t *testing.T) {
	l := NewLoader()
	assert.Equal(t, DefaultEnvPrefix, l.envPrefix)
	assert.Empty(t, l.FilePath())

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/etc/websec.yaml"))
	assert.Equal(t, "TEST_", l.envPrefix)
	assert.Equal(t, "/etc/websec.yaml", l.FilePath())
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeFile(t, "http:\n  address: 127.0.0.1:8080\n  trust_proxy: true\n")
	var cfg testConfig
	require.NoError(t, NewLoader(WithConfigFile(path)).Load(&cfg))
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTP.Address)
	assert.True(t, cfg.HTTP.TrustProxy)
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	var cfg testConfig
	err := NewLoader(WithConfigFile("/nonexistent/websec.yaml")).Load(&cfg)
	assert.Error(t, err)
}

func TestLoader_EnvKeepsSingleUnderscores(t *testing.T) {
	t.Setenv("WSTEST_HTTP__TRUST_PROXY", "true")
	t.Setenv("WSTEST_HASH__ALGORITHM", "argon2")

	var cfg testConfig
	require.NoError(t, NewLoader(WithEnvPrefix("WSTEST_")).Load(&cfg))
	assert.True(t, cfg.HTTP.TrustProxy)
	assert.Equal(t, "argon2", cfg.Hash.Algorithm)
}

func TestLoader_Priority(t *testing.T) {
	path := writeFile(t, "http:\n  address: file:1\nhash:\n  algorithm: pbkdf2\n  iterations: 1000\n")
	t.Setenv("WSPRIO_HTTP__ADDRESS", "env:2")

	l := NewLoader(WithEnvPrefix("WSPRIO_"), WithConfigFile(path))
	require.NoError(t, l.LoadMap(map[string]any{"hash.iterations": 5}))

	cfg := testConfig{}
	cfg.Hash.Algorithm = "default"
	require.NoError(t, l.Load(&cfg))

	assert.Equal(t, "env:2", cfg.HTTP.Address)
	assert.Equal(t, "pbkdf2", cfg.Hash.Algorithm)
	assert.Equal(t, 5, cfg.Hash.Iterations)
	assert.True(t, l.IsLoaded())
	assert.Equal(t, 5, l.GetInt("hash.iterations"))
	assert.Contains(t, l.Keys(), "http.address")
}

func TestLoader_DefaultsSurvive(t *testing.T) {
	path := writeFile(t, "http:\n  address: :9000\n")
	cfg := testConfig{}
	cfg.Hash.Iterations = 65536
	require.NoError(t, NewLoader(WithEnvPrefix("WSNONE_"), WithConfigFile(path)).Load(&cfg))
	assert.Equal(t, 65536, cfg.Hash.Iterations)
}

func TestLoader_Reload(t *testing.T) {
	path := writeFile(t, "hash:\n  algorithm: pbkdf2\n")
	l := NewLoader(WithEnvPrefix("WSRELOAD_"), WithConfigFile(path))
	require.NoError(t, l.LoadMap(map[string]any{"http.trust_proxy": true}))

	var cfg testConfig
	require.NoError(t, l.Load(&cfg))
	assert.Equal(t, "pbkdf2", cfg.Hash.Algorithm)

	require.NoError(t, os.WriteFile(path, []byte("http:\n  address: :1\n"), 0o600))
	var next testConfig
	require.NoError(t, l.Reload(&next))
	assert.Empty(t, next.Hash.Algorithm, "keys removed from the file are gone after reload")
	assert.Equal(t, ":1", next.HTTP.Address)
	assert.True(t, next.HTTP.TrustProxy, "overrides survive reload")
	assert.Equal(t, ":1", l.GetString("http.address"))
	assert.True(t, l.GetBool("http.trust_proxy"))
}

func TestMapProvider(t *testing.T) {
	out, err := mapProvider{"a.b.c": 1, "a.d": "x", "top": true}.Read()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a":   map[string]any{"b": map[string]any{"c": 1}, "d": "x"},
		"top": true,
	}, out)

	_, err = mapProvider{}.ReadBytes()
	assert.Error(t, err)
}
